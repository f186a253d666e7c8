// Package app runs the control loop of the mudra hand: pick a mode, then
// either drive the hand live from the camera or replay a recorded session.
package app

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"time"

	"github.com/ayusman/mudra/internal/actuator"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/kinematics"
	"github.com/ayusman/mudra/internal/operator"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
	"gocv.io/x/gocv"
)

var (
	// ErrAcquisition is returned when the camera cannot be opened.
	ErrAcquisition = errors.New("frame acquisition failed")
	// ErrNoDetector is returned when Live mode is requested without a detector.
	ErrNoDetector = errors.New("no hand detector configured")
)

// Monitor receives what the live loop produces. The server hub implements it.
// Implementations must not block and must not keep frame past the call.
type Monitor interface {
	PublishCommand(cmd kinematics.Command, at time.Time)
	PublishFrame(frame *gocv.Mat)
}

// Config holds the collaborators of the control loop.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector

	// Link delivers replayed commands. LiveLink, when set, delivers live
	// commands instead; main passes the async wrapper here.
	Link     actuator.Link
	LiveLink actuator.Link

	Operator operator.Operator
	Display  operator.Display

	Address     string
	Calibration kinematics.Calibration
	SessionsDir string
	Player      *session.Player

	// Store and Monitor are optional.
	Store   *store.Store
	Monitor Monitor

	Now func() time.Time
}

// App is the control loop.
type App struct {
	config Config
}

// Result reports what one Run did. Only the field for the chosen mode is set.
type Result struct {
	Mode   operator.Mode
	Live   *LiveResult
	Replay *ReplayResult
}

// New creates an App, filling unset fields with defaults.
func New(config Config) *App {
	if config.Address == "" {
		config.Address = actuator.DefaultAddress
	}
	if config.SessionsDir == "" {
		config.SessionsDir = session.DefaultDir
	}
	if config.Calibration == (kinematics.Calibration{}) {
		config.Calibration = kinematics.DefaultCalibration()
	}
	if config.Player == nil {
		config.Player = session.NewPlayer()
	}
	if config.Display == nil {
		config.Display = operator.NewHeadless()
	}
	if config.LiveLink == nil {
		config.LiveLink = config.Link
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &App{config: config}
}

// Run asks the operator for a mode and runs it once. Cancelling ctx while
// the operator is choosing counts as Quit.
func (a *App) Run(ctx context.Context) (Result, error) {
	mode, err := a.config.Operator.SelectMode(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Result{Mode: operator.ModeQuit}, nil
		}
		return Result{}, err
	}

	result := Result{Mode: mode}
	switch mode {
	case operator.ModeLive:
		live, err := a.Live(ctx)
		result.Live = &live
		return result, err
	case operator.ModeReplay:
		replay, err := a.Replay(ctx)
		result.Replay = &replay
		return result, err
	default:
		log.Println("Quitting")
		return result, nil
	}
}

// absPath makes catalog paths independent of the working directory.
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
