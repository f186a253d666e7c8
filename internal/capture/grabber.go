package capture

import (
	"context"
	"errors"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/mailbox"
)

// Grabber reads a Camera on its own goroutine and keeps only the newest
// frame, so a slow consumer always sees the latest image instead of a
// backlog. Overwritten frames are closed.
type Grabber struct {
	cam Camera

	mu      sync.Mutex
	box     *mailbox.Mailbox[*gocv.Mat]
	stop    chan struct{}
	done    chan struct{}
	err     error
	running bool
}

// NewGrabber wraps cam. The camera is opened by Open.
func NewGrabber(cam Camera) *Grabber {
	return &Grabber{cam: cam}
}

// Open opens the camera and starts the reader goroutine.
func (g *Grabber) Open() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return nil
	}
	if err := g.cam.Open(); err != nil {
		return err
	}

	g.box = mailbox.New[*gocv.Mat]()
	g.stop = make(chan struct{})
	g.done = make(chan struct{})
	g.err = nil
	g.running = true

	go g.run(g.box, g.stop, g.done)
	return nil
}

func (g *Grabber) run(box *mailbox.Mailbox[*gocv.Mat], stop, done chan struct{}) {
	defer close(done)
	defer box.Close()

	for {
		select {
		case <-stop:
			return
		default:
		}

		frame, err := g.cam.ReadFrame()
		if err != nil {
			g.mu.Lock()
			g.err = err
			g.mu.Unlock()
			return
		}

		if old, ok := box.Put(frame); ok && old != nil {
			old.Close()
		}
	}
}

// ReadFrame returns the newest frame, blocking until one arrives. Once the
// reader has failed, pending frames are handed out first and then the
// reader's error is returned.
func (g *Grabber) ReadFrame() (*gocv.Mat, error) {
	g.mu.Lock()
	box := g.box
	running := g.running
	g.mu.Unlock()

	if !running || box == nil {
		return nil, ErrCameraNotOpen
	}

	frame, err := box.Take(context.Background())
	if err == nil {
		return frame, nil
	}
	if errors.Is(err, mailbox.ErrClosed) {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.err != nil {
			return nil, g.err
		}
		return nil, ErrCameraNotOpen
	}
	return nil, err
}

// Dropped returns how many frames were replaced before being read.
func (g *Grabber) Dropped() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.box == nil {
		return 0
	}
	return g.box.Drops()
}

// Close stops the reader, releases any unread frame and closes the camera.
func (g *Grabber) Close() error {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return nil
	}
	g.running = false
	box, stop, done := g.box, g.stop, g.done
	g.mu.Unlock()

	close(stop)
	<-done

	box.Close()
	if frame, ok := box.TryTake(); ok && frame != nil {
		frame.Close()
	}
	return g.cam.Close()
}

func (g *Grabber) SetFPS(fps int) { g.cam.SetFPS(fps) }
func (g *Grabber) FPS() int       { return g.cam.FPS() }

func (g *Grabber) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}
