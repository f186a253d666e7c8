package actuator

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/mudra/internal/kinematics"
	"github.com/ayusman/mudra/internal/mailbox"
)

// AsyncOptions tunes an Async link.
type AsyncOptions struct {
	// Timeout bounds each delivery attempt.
	Timeout time.Duration
	// Retries is how many extra attempts a failed delivery gets, unless a
	// newer command is already waiting.
	Retries int
	// Backoff is the pause between attempts.
	Backoff time.Duration
}

// Stats counts what happened to the commands given to an Async link.
type Stats struct {
	Sent    uint64 `json:"sent"`
	Failed  uint64 `json:"failed"`
	Dropped uint64 `json:"dropped"`
}

type pending struct {
	address string
	cmd     kinematics.Command
}

// Async delivers commands on a background goroutine. Send never blocks:
// it replaces any command the worker has not picked up yet, so a slow
// device always receives the newest command and never a backlog.
type Async struct {
	link Link
	opts AsyncOptions
	box  *mailbox.Mailbox[pending]

	sent   atomic.Uint64
	failed atomic.Uint64

	once sync.Once
	done chan struct{}
}

// NewAsync wraps link and starts the worker.
func NewAsync(link Link, opts AsyncOptions) *Async {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 20 * time.Millisecond
	}

	a := &Async{
		link: link,
		opts: opts,
		box:  mailbox.New[pending](),
		done: make(chan struct{}),
	}
	go a.run()
	return a
}

// Send queues cmd for delivery and returns immediately. Commands sent after
// Close are discarded.
func (a *Async) Send(ctx context.Context, address string, cmd kinematics.Command) error {
	a.box.Put(pending{address: address, cmd: cmd})
	return nil
}

func (a *Async) run() {
	defer close(a.done)

	for {
		p, err := a.box.Take(context.Background())
		if err != nil {
			return
		}
		a.deliver(p)
	}
}

func (a *Async) deliver(p pending) {
	var err error
	for attempt := 0; attempt <= a.opts.Retries; attempt++ {
		if attempt > 0 {
			if a.box.Pending() {
				break
			}
			time.Sleep(a.opts.Backoff)
		}

		ctx, cancel := context.WithTimeout(context.Background(), a.opts.Timeout)
		err = a.link.Send(ctx, p.address, p.cmd)
		cancel()
		if err == nil {
			a.sent.Add(1)
			return
		}
	}

	a.failed.Add(1)
	log.Printf("actuator: send to %s failed: %v", p.address, err)
}

// Stats returns delivery counters.
func (a *Async) Stats() Stats {
	return Stats{
		Sent:    a.sent.Load(),
		Failed:  a.failed.Load(),
		Dropped: a.box.Drops(),
	}
}

// Close delivers any pending command, stops the worker and closes the
// wrapped link.
func (a *Async) Close() error {
	var err error
	a.once.Do(func() {
		a.box.Close()
		<-a.done
		err = a.link.Close()
	})
	return err
}
