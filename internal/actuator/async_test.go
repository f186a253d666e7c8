package actuator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/kinematics"
)

// gateLink blocks every Send until the test releases it.
type gateLink struct {
	Recorder
	gate    chan struct{}
	entered chan struct{}
}

func newGateLink() *gateLink {
	return &gateLink{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 16),
	}
}

func (g *gateLink) Send(ctx context.Context, address string, cmd kinematics.Command) error {
	g.entered <- struct{}{}
	<-g.gate
	return g.Recorder.Send(ctx, address, cmd)
}

// flakyLink fails the first n sends.
type flakyLink struct {
	Recorder
	mu       sync.Mutex
	failures int
}

func (f *flakyLink) Send(ctx context.Context, address string, cmd kinematics.Command) error {
	f.mu.Lock()
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()
	if fail {
		return errors.New("device busy")
	}
	return f.Recorder.Send(ctx, address, cmd)
}

func TestAsync_SendNeverBlocksAndKeepsLatest(t *testing.T) {
	link := newGateLink()
	a := NewAsync(link, AsyncOptions{Timeout: time.Second})

	a.Send(context.Background(), DefaultAddress, kinematics.Command{1})
	<-link.entered // worker is now stuck delivering the first command

	start := time.Now()
	for i := 2; i <= 50; i++ {
		if err := a.Send(context.Background(), DefaultAddress, kinematics.Command{float64(i)}); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Send() blocked for %s behind a slow device", elapsed)
	}

	close(link.gate)
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got := link.Commands()
	if len(got) != 2 {
		t.Fatalf("delivered %d commands, want 2 (first and latest)", len(got))
	}
	if got[0][0] != 1 || got[1][0] != 50 {
		t.Errorf("delivered %v and %v, want 1 then 50", got[0], got[1])
	}

	stats := a.Stats()
	if stats.Sent != 2 || stats.Dropped != 48 || stats.Failed != 0 {
		t.Errorf("Stats() = %+v, want sent 2, dropped 48", stats)
	}
	if !link.Closed() {
		t.Error("Close() should close the wrapped link")
	}
}

func TestAsync_Retries(t *testing.T) {
	t.Run("recovers within retry budget", func(t *testing.T) {
		link := &flakyLink{failures: 2}
		a := NewAsync(link, AsyncOptions{Retries: 2, Backoff: time.Millisecond})

		a.Send(context.Background(), "hand", kinematics.Command{7})
		a.Close()

		if stats := a.Stats(); stats.Sent != 1 || stats.Failed != 0 {
			t.Errorf("Stats() = %+v, want one sent", stats)
		}
	})

	t.Run("gives up and counts the failure", func(t *testing.T) {
		link := &flakyLink{failures: 10}
		a := NewAsync(link, AsyncOptions{Retries: 1, Backoff: time.Millisecond})

		a.Send(context.Background(), "hand", kinematics.Command{7})
		a.Close()

		if stats := a.Stats(); stats.Sent != 0 || stats.Failed != 1 {
			t.Errorf("Stats() = %+v, want one failed", stats)
		}
		if len(link.Commands()) != 0 {
			t.Error("no command should have been recorded")
		}
	})
}

func TestAsync_CloseIsIdempotent(t *testing.T) {
	rec := NewRecorder()
	a := NewAsync(rec, AsyncOptions{})

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	a.Send(context.Background(), "hand", kinematics.Command{1})
	if len(rec.Commands()) != 0 {
		t.Error("Send after Close should be discarded")
	}
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	notify := rec.Notify(4)

	rec.Send(context.Background(), "a", kinematics.Command{1})
	wantErr := errors.New("unplugged")
	rec.SetError(wantErr)
	if err := rec.Send(context.Background(), "b", kinematics.Command{2}); !errors.Is(err, wantErr) {
		t.Errorf("Send() error = %v, want %v", err, wantErr)
	}

	sent := rec.Sent()
	if len(sent) != 2 || sent[0].Address != "a" || sent[1].Command[0] != 2 {
		t.Errorf("Sent() = %+v", sent)
	}
	if len(notify) != 2 {
		t.Errorf("notify buffered %d, want 2", len(notify))
	}
}
