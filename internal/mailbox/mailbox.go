// Package mailbox provides a single-slot hand-off between a producer and a
// consumer goroutine where the newest value always replaces an unconsumed one.
package mailbox

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Take once the mailbox is closed and drained.
var ErrClosed = errors.New("mailbox closed")

// Mailbox holds at most one value. Put never blocks.
type Mailbox[T any] struct {
	mu     sync.Mutex
	value  T
	full   bool
	closed bool
	ready  chan struct{}
	done   chan struct{}
	drops  atomic.Uint64
}

// New creates an empty mailbox.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Put stores v, overwriting any value that has not been taken yet.
// It returns the value that did not make it into the mailbox (the overwritten
// one, or v itself when the mailbox is closed) so the caller can release it.
func (m *Mailbox[T]) Put(v T) (evicted T, ok bool) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return v, true
	}

	if m.full {
		evicted, ok = m.value, true
		m.drops.Add(1)
	}
	m.value = v
	m.full = true
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return evicted, ok
}

// Take blocks until a value is available. A closed mailbox still hands out
// its pending value before returning ErrClosed.
func (m *Mailbox[T]) Take(ctx context.Context) (T, error) {
	for {
		if v, ok := m.TryTake(); ok {
			return v, nil
		}

		m.mu.Lock()
		closed := m.closed
		m.mu.Unlock()
		if closed {
			var zero T
			return zero, ErrClosed
		}

		select {
		case <-m.ready:
		case <-m.done:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryTake returns the pending value without blocking.
func (m *Mailbox[T]) TryTake() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if !m.full {
		return zero, false
	}
	v := m.value
	m.value = zero
	m.full = false
	return v, true
}

// Pending reports whether a value is waiting to be taken.
func (m *Mailbox[T]) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.full
}

// Drops returns how many values were overwritten before being taken.
func (m *Mailbox[T]) Drops() uint64 {
	return m.drops.Load()
}

// Close stops accepting values and wakes any blocked Take.
// Closing twice is a no-op.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.done)
}
