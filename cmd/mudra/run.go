package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/ayusman/mudra/internal/actuator"
	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/operator"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
)

var _ app.Monitor = (*server.Hub)(nil)

// modeAsk lets the operator choose the mode.
const modeAsk operator.Mode = -1

// handFlags override the config file for one invocation.
type handFlags struct {
	Address     string `short:"a" long:"address" description:"Actuator controller address (serial port for feetech)"`
	Link        string `short:"l" long:"link" description:"Actuator link: http, ws, feetech, exec or log"`
	SessionsDir string `long:"sessions-dir" description:"Directory of recorded sessions"`
	Operator    string `long:"operator" description:"Operator: window, terminal or tray"`
	Monitor     string `long:"monitor" description:"Serve the monitor API on this address, e.g. 127.0.0.1:8620"`
}

func (f handFlags) apply(cfg *config.Config) {
	if f.Address != "" {
		cfg.Address = f.Address
	}
	if f.Link != "" {
		cfg.Link.Kind = f.Link
	}
	if f.SessionsDir != "" {
		cfg.SessionsDir = f.SessionsDir
	}
	if f.Operator != "" {
		cfg.Operator.Kind = f.Operator
	}
	if f.Monitor != "" {
		cfg.Server.Addr = f.Monitor
	}
}

func configPath() string {
	if opts.ConfigPath != "" {
		return opts.ConfigPath
	}
	return config.DefaultPath()
}

// loadConfig reads the config file, applies flags and validates the result.
func loadConfig(flags handFlags) (config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath())
	if err != nil {
		return cfg, err
	}
	flags.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// runtime owns everything main builds for the control loop.
type runtime struct {
	cfg      config.Config
	app      *app.App
	tray     *operator.Tray
	closers  []func() error
	serveErr chan error
}

func (r *runtime) onClose(f func() error) {
	r.closers = append(r.closers, f)
}

// Close releases resources in reverse order of acquisition.
func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
	r.closers = nil
}

// newRuntime builds the app. mode is the mode fixed by the subcommand, or
// modeAsk. path is the replay file given to the replay subcommand.
func newRuntime(ctx context.Context, cfg config.Config, mode operator.Mode, path string) (*runtime, error) {
	r := &runtime{cfg: cfg}

	calibration, err := cfg.ResolvedCalibration()
	if err != nil {
		return nil, err
	}

	link, err := actuator.New(cfg.Link)
	if err != nil {
		return nil, err
	}
	liveLink := link
	if cfg.Async.Enabled {
		async := actuator.NewAsync(link, cfg.AsyncOptions())
		liveLink = async
		r.onClose(func() error {
			err := async.Close()
			st := async.Stats()
			log.Printf("link: sent %d, failed %d, dropped %d", st.Sent, st.Failed, st.Dropped)
			return err
		})
	} else {
		r.onClose(link.Close)
	}

	var cam capture.Camera
	var det detector.Detector
	if mode != operator.ModeReplay {
		cam = capture.NewCameraWithOptions(capture.Options{
			DeviceID: cfg.Capture.Device,
			Width:    cfg.Capture.Width,
			Height:   cfg.Capture.Height,
			FPS:      cfg.Capture.FPS,
		})
		if cfg.Capture.Async {
			cam = capture.NewGrabber(cam)
		}

		mp, err := detector.NewMediaPipeDetector(cfg.DetectorOptions())
		if err != nil {
			log.Printf("MediaPipe not available (%v), live mode disabled", err)
		} else {
			det = mp
			r.onClose(mp.Close)
		}
	}

	var st *store.Store
	if cfg.Catalog.Enabled {
		st, err = store.New(cfg.CatalogPath())
		if err != nil {
			log.Printf("catalog disabled: %v", err)
			st = nil
		} else {
			r.onClose(st.Close)
		}
	}

	var monitor app.Monitor
	if cfg.Server.Addr != "" {
		hub := server.NewHub()
		r.onClose(hub.Close)
		monitor = hub

		srv := server.New(server.Config{Store: st, Hub: hub})
		r.serveErr = make(chan error, 1)
		go func() {
			r.serveErr <- srv.ListenAndServe(ctx, cfg.Server.Addr)
		}()
	}

	dir := cfg.ResolvedSessionsDir()
	op, display := r.operator(mode, path, dir)
	if display != nil {
		r.onClose(display.Close)
	}

	player := session.NewPlayer()
	player.Interval = cfg.Replay.Interval

	r.app = app.New(app.Config{
		Camera:      cam,
		Detector:    det,
		Link:        link,
		LiveLink:    liveLink,
		Operator:    op,
		Display:     display,
		Address:     cfg.Address,
		Calibration: calibration,
		SessionsDir: dir,
		Player:      player,
		Store:       st,
		Monitor:     monitor,
	})
	return r, nil
}

func (r *runtime) operator(mode operator.Mode, path, dir string) (operator.Operator, operator.Display) {
	switch r.cfg.Operator.Kind {
	case config.OperatorTray:
		r.tray = operator.NewTray(dir)
		if mode != modeAsk {
			return operator.Static{Mode: mode, Path: path}, r.tray
		}
		return r.tray, r.tray
	case config.OperatorTerminal:
		term := operator.NewTerminal(dir)
		if mode != modeAsk {
			return fixedMode{Terminal: term, mode: mode, path: path}, nil
		}
		return term, nil
	default:
		win := operator.NewWindow("mudra", operator.NewTerminal(dir))
		if mode != modeAsk {
			return fixedMode{Terminal: operator.NewTerminal(dir), mode: mode, path: path}, win
		}
		return win, win
	}
}

// fixedMode answers SelectMode from the subcommand and asks for the replay
// file in the terminal unless one was given.
type fixedMode struct {
	*operator.Terminal
	mode operator.Mode
	path string
}

func (f fixedMode) SelectMode(ctx context.Context) (operator.Mode, error) {
	return f.mode, nil
}

func (f fixedMode) SelectFile(ctx context.Context) (string, error) {
	if f.path != "" {
		return f.path, nil
	}
	return f.Terminal.SelectFile(ctx)
}

// execute runs the app once, or until Quit when loop is set. With the tray
// operator the tray owns the main goroutine.
func execute(cfg config.Config, mode operator.Mode, path string, loop bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := newRuntime(ctx, cfg, mode, path)
	if err != nil {
		return err
	}
	defer r.Close()

	var runErr error
	work := func() {
		runErr = r.loop(ctx, loop || r.tray != nil && mode == modeAsk)
	}

	if r.tray != nil {
		r.tray.Run(work)
	} else {
		work()
	}

	stop()
	if r.serveErr != nil {
		if err := <-r.serveErr; err != nil {
			log.Printf("monitor: %v", err)
		}
	}
	return runErr
}

func (r *runtime) loop(ctx context.Context, loop bool) error {
	for {
		res, err := r.app.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		report(res)
		if !loop || res.Mode == operator.ModeQuit || ctx.Err() != nil {
			return nil
		}
	}
}

func report(res app.Result) {
	switch {
	case res.Live != nil:
		fmt.Printf("Live: %d frames, %d commands (%s)\n", res.Live.Frames, res.Live.Commands, res.Live.Stop)
	case res.Replay != nil && res.Replay.Path != "":
		fmt.Printf("Replay: %d sent, %d failed\n", res.Replay.Sent, res.Replay.Failed)
	}
}

type RunCommand struct {
	Hand handFlags `group:"Hand Options"`
	Loop bool      `long:"loop" description:"Return to mode selection after each run"`
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.Hand)
	if err != nil {
		return err
	}
	return execute(cfg, modeAsk, "", c.Loop)
}

type LiveCommand struct {
	Hand handFlags `group:"Hand Options"`
}

func (c *LiveCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.Hand)
	if err != nil {
		return err
	}
	return execute(cfg, operator.ModeLive, "", false)
}

type ReplayCommand struct {
	Hand     handFlags     `group:"Hand Options"`
	Interval time.Duration `long:"interval" description:"Pause after each command, e.g. 500ms"`
	Latest   bool          `long:"latest" description:"Replay the newest session"`
	Args     struct {
		File string `positional-arg-name:"FILE" description:"Session file (default: choose interactively)"`
	} `positional-args:"yes"`
}

func (c *ReplayCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.Hand)
	if err != nil {
		return err
	}
	if c.Interval > 0 {
		cfg.Replay.Interval = c.Interval
	}

	path := c.Args.File
	if path == "" && c.Latest {
		path, err = session.Latest(cfg.ResolvedSessionsDir())
		if err != nil {
			return err
		}
		if path == "" {
			fmt.Println("No file selected.")
			return nil
		}
	}
	return execute(cfg, operator.ModeReplay, path, false)
}

type InitCommand struct {
	Force bool `short:"f" long:"force" description:"Overwrite an existing config file"`
}

func (c *InitCommand) Execute(args []string) error {
	path := configPath()
	if _, err := os.Stat(path); err == nil && !c.Force && !confirmOverwrite(path) {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Save(path, config.Default()); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

// confirmOverwrite asks before replacing an existing config. Without a
// terminal the form fails and the answer is no.
func confirmOverwrite(path string) bool {
	var overwrite bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("%s already exists. Overwrite it?", path)).
				Affirmative("Overwrite").
				Negative("Keep").
				Value(&overwrite),
		),
	)
	if err := form.Run(); err != nil {
		return false
	}
	return overwrite
}
