package main

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/kinematics"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	failedStyle = cellStyle.Foreground(lipgloss.Color("9"))
)

// channelColors follow kinematics.WireOrder.
var channelColors = [kinematics.NumFingers]string{
	"196", // index: red
	"208", // ring: orange
	"226", // middle: yellow
	"46",  // thumb: green
	"51",  // pinky: cyan
}

type SessionsCommand struct {
	List SessionsListCommand `command:"list" alias:"ls" description:"List recorded sessions, newest first"`
	Show SessionsShowCommand `command:"show" description:"Chart the commands of a session"`
}

type SessionsListCommand struct {
	SessionsDir string `long:"sessions-dir" description:"Directory of recorded sessions"`
}

func (c *SessionsListCommand) Execute(args []string) error {
	cfg, err := loadConfig(handFlags{SessionsDir: c.SessionsDir})
	if err != nil {
		return err
	}
	dir := cfg.ResolvedSessionsDir()

	infos, err := session.List(dir)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println(dimStyle.Render("No sessions in " + dir))
		return nil
	}

	catalog := openCatalog(cfg)
	if catalog != nil {
		defer catalog.Close()
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		started := "-"
		if !info.StartedAt.IsZero() {
			started = info.StartedAt.Format("2006-01-02 15:04:05")
		}
		count := "?"
		if cmds, err := session.Read(info.Path); err == nil {
			count = fmt.Sprintf("%d", len(cmds))
		}
		rows = append(rows, []string{info.Name, started, count, catalogStatus(catalog, info.Path)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Session", "Started", "Rows", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if col == 3 && row >= 0 && row < len(rows) && rows[row][3] == string(store.SessionFailed) {
				return failedStyle
			}
			return cellStyle
		})

	fmt.Println(headerStyle.Render("Sessions in " + dir))
	fmt.Println(t.Render())
	return nil
}

// openCatalog opens the catalog read side if it is enabled; failures just
// hide the status column values.
func openCatalog(cfg config.Config) *store.Store {
	if !cfg.Catalog.Enabled {
		return nil
	}
	st, err := store.New(cfg.CatalogPath())
	if err != nil {
		return nil
	}
	return st
}

func catalogStatus(st *store.Store, path string) string {
	if st == nil {
		return "-"
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sess, err := st.Sessions().GetByPath(abs)
	if err != nil {
		return "-"
	}
	return string(sess.Status)
}

type SessionsShowCommand struct {
	SessionsDir string `long:"sessions-dir" description:"Directory of recorded sessions"`
	Width       int    `long:"width" default:"100" description:"Chart width in columns"`
	Height      int    `long:"height" default:"16" description:"Chart height in rows"`
	Args        struct {
		File string `positional-arg-name:"FILE" description:"Session file (default: newest session)"`
	} `positional-args:"yes"`
}

func (c *SessionsShowCommand) Execute(args []string) error {
	path := c.Args.File
	if path == "" {
		cfg, err := loadConfig(handFlags{SessionsDir: c.SessionsDir})
		if err != nil {
			return err
		}
		path, err = session.Latest(cfg.ResolvedSessionsDir())
		if err != nil {
			return err
		}
		if path == "" {
			fmt.Println("No file selected.")
			return nil
		}
	}

	cmds, err := session.Read(path)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(filepath.Base(path)) + dimStyle.Render(fmt.Sprintf("  %d commands", len(cmds))))
	if len(cmds) == 0 {
		return nil
	}

	fmt.Println(chartStyle.Render(renderChart(cmds, c.Width, c.Height)))
	fmt.Println(renderLegend())
	fmt.Println(renderSummary(cmds))
	return nil
}

// renderChart draws every channel as a line. Only the newest width points
// fit on the chart.
func renderChart(cmds []kinematics.Command, width, height int) string {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range cmds {
		for _, v := range c {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if lo == hi {
		lo, hi = lo-1, hi+1
	}

	chart := streamlinechart.New(max(width, 20), max(height, 5),
		streamlinechart.WithYRange(lo, hi),
	)
	for i, f := range kinematics.WireOrder {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(channelColors[i]))
		chart.SetDataSetStyles(f.String(), runes.ThinLineStyle, style)
	}

	for _, c := range cmds {
		for i, f := range kinematics.WireOrder {
			chart.PushDataSet(f.String(), c[i])
		}
	}
	chart.DrawAll()
	return chart.View()
}

func renderLegend() string {
	var items []string
	for i, h := range kinematics.Header {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(channelColors[i])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+h)
	}
	return strings.Join(items, "  ")
}

func renderSummary(cmds []kinematics.Command) string {
	rows := make([][]string, 0, kinematics.NumFingers)
	for i, h := range kinematics.Header {
		lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
		for _, c := range cmds {
			lo = math.Min(lo, c[i])
			hi = math.Max(hi, c[i])
			sum += c[i]
		}
		rows = append(rows, []string{
			h,
			fmt.Sprintf("%.1f", lo),
			fmt.Sprintf("%.1f", hi),
			fmt.Sprintf("%.1f", sum/float64(len(cmds))),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Channel", "Min", "Max", "Mean").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		}).
		Render()
}
