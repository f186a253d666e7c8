package app

import (
	"context"
	"log"

	"github.com/ayusman/mudra/internal/store"
)

// ReplayResult summarizes a replay run.
type ReplayResult struct {
	// Path is empty when the operator selected nothing.
	Path   string
	Sent   int
	Failed int
}

// Replay asks the operator for a session file and plays it to the
// configured address. Selecting nothing is not an error.
func (a *App) Replay(ctx context.Context) (ReplayResult, error) {
	var result ReplayResult
	cfg := a.config

	path, err := cfg.Operator.SelectFile(ctx)
	if err != nil {
		return result, err
	}
	if path == "" {
		log.Println("No file selected.")
		return result, nil
	}
	result.Path = path

	run := a.catalogReplay(path)

	played, err := cfg.Player.Play(ctx, path, cfg.Link, cfg.Address)
	result.Sent = played.Sent
	result.Failed = played.Failed
	if err != nil && ctx.Err() == nil {
		log.Printf("Error reading file: %v", err)
	}

	if run != nil {
		if ferr := cfg.Store.Replays().Finish(run.ID, result.Sent, result.Failed, err); ferr != nil {
			log.Printf("catalog: %v", ferr)
		}
	}
	return result, err
}

func (a *App) catalogReplay(path string) *store.Replay {
	if a.config.Store == nil {
		return nil
	}
	run := &store.Replay{
		Path:      absPath(path),
		Address:   a.config.Address,
		StartedAt: a.config.Now(),
	}
	if err := a.config.Store.Replays().Start(run); err != nil {
		log.Printf("catalog: %v", err)
		return nil
	}
	return run
}
