package app

import (
	"context"
	"fmt"
	"log"

	"github.com/ayusman/mudra/internal/kinematics"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
)

// StopReason says why a live run ended.
type StopReason string

const (
	StopQuit        StopReason = "quit"
	StopAcquisition StopReason = "acquisition"
	StopCancelled   StopReason = "cancelled"
	StopError       StopReason = "error"
)

// LiveResult summarizes a live run.
type LiveResult struct {
	SessionPath string
	Frames      int
	Hands       int
	Commands    int
	Stop        StopReason
}

// Live drives the hand from the camera until the operator quits, ctx is
// cancelled or no more frames can be read. Every command is also appended
// to a new session file, which is closed on every exit path.
func (a *App) Live(ctx context.Context) (LiveResult, error) {
	var result LiveResult
	cfg := a.config

	if cfg.Detector == nil {
		return result, ErrNoDetector
	}
	if cfg.Camera == nil {
		return result, fmt.Errorf("%w: no camera configured", ErrAcquisition)
	}
	if !cfg.Camera.IsOpen() {
		if err := cfg.Camera.Open(); err != nil {
			return result, fmt.Errorf("%w: %v", ErrAcquisition, err)
		}
	}
	defer cfg.Camera.Close()

	rec, err := session.Create(cfg.SessionsDir, cfg.Now())
	if err != nil {
		return result, err
	}
	result.SessionPath = rec.Path()

	entry := a.catalogSession(rec.Path())

	loopErr := a.liveLoop(ctx, rec, &result)

	closeErr := rec.Close()
	if loopErr == nil {
		loopErr = closeErr
	}
	log.Printf("Session saved: %s", rec.Path())

	a.finishSession(entry, rec.Rows(), loopErr)
	if loopErr != nil {
		result.Stop = StopError
	}
	return result, loopErr
}

func (a *App) liveLoop(ctx context.Context, rec *session.Recorder, result *LiveResult) error {
	cfg := a.config

	for {
		if ctx.Err() != nil {
			result.Stop = StopCancelled
			return nil
		}

		frame, err := cfg.Camera.ReadFrame()
		if err != nil {
			log.Printf("could not read frame: %v", err)
			result.Stop = StopAcquisition
			return nil
		}
		result.Frames++

		hands, err := cfg.Detector.Detect(frame)
		if err != nil {
			log.Printf("detect: %v", err)
			hands = nil
		}

		for i := range hands {
			cmd := cfg.Calibration.Command(kinematics.JointAngles(&hands[i]))
			result.Hands++

			if err := cfg.LiveLink.Send(ctx, cfg.Address, cmd); err != nil {
				log.Printf("send: %v", err)
			}
			if err := rec.Append(cmd); err != nil {
				frame.Close()
				return err
			}
			result.Commands++

			if cfg.Monitor != nil {
				cfg.Monitor.PublishCommand(cmd, cfg.Now())
			}
		}

		cfg.Display.Show(frame, hands)
		if cfg.Monitor != nil {
			cfg.Monitor.PublishFrame(frame)
		}
		frame.Close()

		if cfg.Display.QuitRequested() {
			result.Stop = StopQuit
			return nil
		}
	}
}

func (a *App) catalogSession(path string) *store.Session {
	if a.config.Store == nil {
		return nil
	}
	entry := &store.Session{
		Path:      absPath(path),
		Address:   a.config.Address,
		StartedAt: a.config.Now(),
	}
	if err := a.config.Store.Sessions().Create(entry); err != nil {
		log.Printf("catalog: %v", err)
		return nil
	}
	return entry
}

func (a *App) finishSession(entry *store.Session, rows int, cause error) {
	if entry == nil {
		return
	}
	var err error
	if cause != nil {
		err = a.config.Store.Sessions().Fail(entry.ID, rows, cause)
	} else {
		err = a.config.Store.Sessions().Finish(entry.ID, rows)
	}
	if err != nil {
		log.Printf("catalog: %v", err)
	}
}
