package operator

import (
	"context"
	"sync"

	"github.com/getlantern/systray"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/session"
)

// Tray is a system tray operator. The menu offers Live, Replay of the
// newest session, Stop and Quit; Live frames are not displayed.
type Tray struct {
	dir string

	modes chan Mode
	mu    sync.RWMutex
	stop  bool

	// Menu items stored for later updates
	menuStatus *systray.MenuItem
}

// NewTray creates a tray operator that replays the newest session in dir.
func NewTray(dir string) *Tray {
	return &Tray{
		dir:   dir,
		modes: make(chan Mode, 1),
	}
}

// Run starts the system tray and calls work on its own goroutine once the
// menu is ready. The tray exits when work returns.
// This function blocks and must be called from the main goroutine.
func (t *Tray) Run(work func()) {
	systray.Run(func() {
		t.onReady()
		go func() {
			work()
			systray.Quit()
		}()
	}, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra hand control")

	t.menuStatus = systray.AddMenuItem("Idle", "Current mode")
	t.menuStatus.Disable()
	systray.AddSeparator()

	menuLive := systray.AddMenuItem("Live", "Mirror the camera hand and record a session")
	menuReplay := systray.AddMenuItem("Replay latest", "Replay the newest recorded session")
	menuStop := systray.AddMenuItem("Stop", "Stop the live session")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-menuLive.ClickedCh:
				t.choose(ModeLive)
			case <-menuReplay.ClickedCh:
				t.choose(ModeReplay)
			case <-menuStop.ClickedCh:
				t.requestStop()
			case <-menuQuit.ClickedCh:
				t.choose(ModeQuit)
				t.requestStop()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// choose hands a menu choice to SelectMode. Only the first choice counts.
func (t *Tray) choose(m Mode) {
	select {
	case t.modes <- m:
	default:
	}
	t.setStatus(m.String())
}

func (t *Tray) requestStop() {
	t.mu.Lock()
	t.stop = true
	t.mu.Unlock()
	t.setStatus("Stopping")
}

func (t *Tray) setStatus(s string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(s)
	}
}

// SelectMode waits for a menu choice. Choosing Live or Replay clears an
// earlier Stop.
func (t *Tray) SelectMode(ctx context.Context) (Mode, error) {
	select {
	case m := <-t.modes:
		if m != ModeQuit {
			t.mu.Lock()
			t.stop = false
			t.mu.Unlock()
		}
		return m, nil
	case <-ctx.Done():
		return ModeQuit, ctx.Err()
	}
}

// SelectFile returns the newest recorded session, or "" if there is none.
func (t *Tray) SelectFile(ctx context.Context) (string, error) {
	return session.Latest(t.dir)
}

// Show does nothing; the tray has no video surface.
func (t *Tray) Show(frame *gocv.Mat, hands []detector.HandLandmarks) {}

// QuitRequested reports whether Stop or Quit was clicked.
func (t *Tray) QuitRequested() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stop
}

func (t *Tray) Close() error { return nil }
