package actuator

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/ayusman/mudra/internal/kinematics"
)

// LogLink is a dry-run transport that only logs commands.
type LogLink struct {
	sent atomic.Uint64
}

func NewLogLink() *LogLink {
	return &LogLink{}
}

func (l *LogLink) Send(ctx context.Context, address string, cmd kinematics.Command) error {
	l.sent.Add(1)
	log.Printf("actuator %s <- %s", address, cmd)
	return nil
}

// Sent returns how many commands were logged.
func (l *LogLink) Sent() uint64 {
	return l.sent.Load()
}

func (l *LogLink) Close() error { return nil }
