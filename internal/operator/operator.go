// Package operator is the human side of the control loop: choosing a mode,
// choosing a session file, and watching (and stopping) a Live run.
package operator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
)

// Mode is the run mode chosen at startup.
type Mode int

const (
	ModeLive Mode = iota
	ModeReplay
	ModeQuit
)

func (m Mode) String() string {
	switch m {
	case ModeLive:
		return "live"
	case ModeReplay:
		return "replay"
	case ModeQuit:
		return "quit"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode accepts a mode name or its menu key.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "live", "1":
		return ModeLive, nil
	case "replay", "2":
		return ModeReplay, nil
	case "quit", "q":
		return ModeQuit, nil
	}
	return ModeQuit, fmt.Errorf("unknown mode %q", s)
}

// ModeForKey maps a menu key press to a mode. ok is false for other keys.
func ModeForKey(key int) (Mode, bool) {
	switch key {
	case '1':
		return ModeLive, true
	case '2':
		return ModeReplay, true
	case 'q', 'Q':
		return ModeQuit, true
	}
	return ModeQuit, false
}

// FileSelector picks a session file. An empty path means the user
// cancelled.
type FileSelector interface {
	SelectFile(ctx context.Context) (string, error)
}

// Operator chooses what the control loop does.
type Operator interface {
	FileSelector
	SelectMode(ctx context.Context) (Mode, error)
}

// Display shows Live frames and reports when the user wants to stop.
type Display interface {
	Show(frame *gocv.Mat, hands []detector.HandLandmarks)
	QuitRequested() bool
	Close() error
}

// Headless is a Display without output. Quit requests come from Quit.
type Headless struct {
	mu     sync.Mutex
	quit   bool
	frames int
}

func NewHeadless() *Headless {
	return &Headless{}
}

func (h *Headless) Show(frame *gocv.Mat, hands []detector.HandLandmarks) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames++
}

// Quit makes the next QuitRequested return true.
func (h *Headless) Quit() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.quit = true
}

func (h *Headless) QuitRequested() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.quit
}

// Frames returns how many frames were shown.
func (h *Headless) Frames() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames
}

func (h *Headless) Close() error { return nil }

// Static answers with values fixed up front, typically from command-line
// flags.
type Static struct {
	Mode Mode
	Path string
}

func (s Static) SelectMode(ctx context.Context) (Mode, error) {
	return s.Mode, ctx.Err()
}

func (s Static) SelectFile(ctx context.Context) (string, error) {
	return s.Path, ctx.Err()
}
