package operator

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffc799"))
	pickerHelpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#505050"))
	menuCursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#99ffe4"))
)

// Terminal asks in the terminal: a keyed menu for the mode and a file
// browser rooted at the sessions directory.
type Terminal struct {
	dir string
}

// NewTerminal creates a terminal operator browsing dir.
func NewTerminal(dir string) *Terminal {
	return &Terminal{dir: dir}
}

// SelectMode shows the mode menu. 1 picks live, 2 picks replay and q or
// Esc quits; the arrow keys and Enter work too. The terminal operator has
// no display of its own, so a live run started here ends with Ctrl-C.
func (t *Terminal) SelectMode(ctx context.Context) (Mode, error) {
	final, err := tea.NewProgram(newModeModel(), tea.WithContext(ctx)).Run()
	if err != nil {
		if ctx.Err() != nil {
			return ModeQuit, nil
		}
		return ModeQuit, err
	}
	m, ok := final.(modeModel)
	if !ok {
		return ModeQuit, nil
	}
	return m.mode, nil
}

var menuModes = []Mode{ModeLive, ModeReplay, ModeQuit}

// modeModel is the mode menu.
type modeModel struct {
	cursor int
	mode   Mode
	done   bool
}

func newModeModel() modeModel {
	return modeModel{mode: ModeQuit}
}

func (m modeModel) Init() tea.Cmd {
	return nil
}

func (m modeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "esc":
		return m.choose(ModeQuit)
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(menuModes)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		return m.choose(menuModes[m.cursor])
	}

	if key.Type == tea.KeyRunes && len(key.Runes) == 1 {
		if mode, ok := ModeForKey(int(key.Runes[0])); ok {
			return m.choose(mode)
		}
	}
	return m, nil
}

func (m modeModel) choose(mode Mode) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.done = true
	return m, tea.Quit
}

func (m modeModel) View() string {
	if m.done {
		return ""
	}
	labels := []string{"1  Live Mode", "2  Replay Mode", "q  Quit"}

	var b strings.Builder
	b.WriteString(pickerTitleStyle.Render("Select Mode:") + "\n\n")
	for i, label := range labels {
		if i == m.cursor {
			b.WriteString(menuCursorStyle.Render("> "+label) + "\n")
		} else {
			b.WriteString("  " + label + "\n")
		}
	}
	b.WriteString("\n" + pickerHelpStyle.Render("1/2/q or ↑/↓ + enter"))
	return b.String()
}

// SelectFile opens the file browser. Esc or q cancels and returns "".
func (t *Terminal) SelectFile(ctx context.Context) (string, error) {
	if err := os.MkdirAll(t.dir, 0755); err != nil {
		return "", fmt.Errorf("sessions dir: %w", err)
	}

	final, err := tea.NewProgram(newPickerModel(t.dir), tea.WithContext(ctx)).Run()
	if err != nil {
		return "", err
	}
	m, ok := final.(pickerModel)
	if !ok {
		return "", nil
	}
	return m.selected, nil
}

// pickerModel wraps the bubbles file picker, restricted to session files.
type pickerModel struct {
	picker    filepicker.Model
	selected  string
	cancelled bool
}

func newPickerModel(dir string) pickerModel {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".csv"}
	fp.CurrentDirectory = dir
	fp.ShowHidden = false
	return pickerModel{picker: fp}
}

func (m pickerModel) Init() tea.Cmd {
	return m.picker.Init()
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc", "q", "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.selected = path
		return m, tea.Quit
	}
	return m, cmd
}

func (m pickerModel) View() string {
	return pickerTitleStyle.Render("Select a recorded session") + "\n\n" +
		m.picker.View() + "\n" +
		pickerHelpStyle.Render("enter: replay • esc: cancel")
}
