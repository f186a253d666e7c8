package session

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/ayusman/mudra/internal/kinematics"
)

// DefaultInterval is the pause after each replayed command.
const DefaultInterval = 500 * time.Millisecond

// Sender delivers one command. actuator.Link satisfies it.
type Sender interface {
	Send(ctx context.Context, address string, cmd kinematics.Command) error
}

// Player replays session files at a fixed cadence.
type Player struct {
	// Interval is the wait after every command, the last one included.
	Interval time.Duration

	// Wait pauses for d or until ctx is done. Tests replace it.
	Wait func(ctx context.Context, d time.Duration) error
}

// PlayResult summarizes a replay.
type PlayResult struct {
	Path string
	// Sent counts commands handed to the link, failed deliveries included.
	Sent   int
	Failed int
}

// NewPlayer returns a Player with the default interval.
func NewPlayer() *Player {
	return &Player{Interval: DefaultInterval, Wait: Sleep}
}

// Play sends every row of the file at path to address. Delivery errors are
// logged and counted but do not stop playback; a malformed row does, after
// the rows before it have been sent.
func (p *Player) Play(ctx context.Context, path string, link Sender, address string) (PlayResult, error) {
	result := PlayResult{Path: path}

	r, err := Open(path)
	if err != nil {
		return result, err
	}
	defer r.Close()

	wait := p.Wait
	if wait == nil {
		wait = Sleep
	}

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		cmd, _, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, err
		}

		log.Printf("Performing action: %s", cmd)
		if err := link.Send(ctx, address, cmd); err != nil {
			log.Printf("session: send failed: %v", err)
			result.Failed++
		}
		result.Sent++

		if err := wait(ctx, p.Interval); err != nil {
			return result, err
		}
	}

	log.Println("Session completed.")
	return result, nil
}

// Sleep waits for d unless ctx is cancelled first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
