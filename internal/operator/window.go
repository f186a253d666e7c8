package operator

import (
	"context"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
)

// pollDelay is how long the mode prompt waits for a key before checking
// the context again.
const pollDelay = 100

// Window is an OpenCV window operator. Keys 1 and 2 pick a mode, q quits.
// File selection is delegated because OpenCV has no file dialog.
type Window struct {
	title string
	files FileSelector

	mu   sync.Mutex
	win  *gocv.Window
	quit bool
}

// NewWindow creates a window operator. The window opens on first use.
func NewWindow(title string, files FileSelector) *Window {
	return &Window{title: title, files: files}
}

func (w *Window) window() *gocv.Window {
	if w.win == nil {
		w.win = gocv.NewWindow(w.title)
	}
	return w.win
}

// SelectMode shows the prompt until a mode key is pressed. It also clears
// a q pressed during an earlier live run.
func (w *Window) SelectMode(ctx context.Context) (Mode, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.quit = false

	prompt := NewPromptFrame(640, 480)
	defer prompt.Close()

	win := w.window()
	for {
		if err := ctx.Err(); err != nil {
			return ModeQuit, err
		}
		win.IMShow(prompt)
		if mode, ok := ModeForKey(win.WaitKey(pollDelay)); ok {
			return mode, nil
		}
	}
}

func (w *Window) SelectFile(ctx context.Context) (string, error) {
	if w.files == nil {
		return "", nil
	}
	return w.files.SelectFile(ctx)
}

// Show draws the landmarks onto frame and displays it. A q pressed while
// the frame is up is remembered for QuitRequested.
func (w *Window) Show(frame *gocv.Mat, hands []detector.HandLandmarks) {
	if frame == nil || frame.Empty() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	DrawLandmarks(frame, hands)
	win := w.window()
	win.IMShow(*frame)
	if key := win.WaitKey(1); key == 'q' || key == 'Q' {
		w.quit = true
	}
}

func (w *Window) QuitRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.quit
}

func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.win == nil {
		return nil
	}
	err := w.win.Close()
	w.win = nil
	return err
}
