package actuator

import (
	"context"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/kinematics"
)

// Sent is one command observed by a Recorder.
type Sent struct {
	Address string
	Command kinematics.Command
	At      time.Time
}

// Recorder is an in-memory Link that remembers every command, for tests and
// for checking a session without a device.
type Recorder struct {
	mu     sync.Mutex
	sent   []Sent
	err    error
	closed bool
	notify chan Sent
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// SetError makes every following Send record the command and return err.
func (r *Recorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Notify returns a channel that receives each recorded command. Sends on it
// never block; commands are skipped when the buffer is full.
func (r *Recorder) Notify(buffer int) <-chan Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notify = make(chan Sent, buffer)
	return r.notify
}

func (r *Recorder) Send(ctx context.Context, address string, cmd kinematics.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Sent{Address: address, Command: cmd, At: time.Now()}
	r.sent = append(r.sent, s)
	if r.notify != nil {
		select {
		case r.notify <- s:
		default:
		}
	}
	return r.err
}

// Sent returns a copy of everything recorded so far.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

// Commands returns the recorded commands in order.
func (r *Recorder) Commands() []kinematics.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]kinematics.Command, len(r.sent))
	for i, s := range r.sent {
		out[i] = s.Command
	}
	return out
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
