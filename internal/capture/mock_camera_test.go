package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func closeAll(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}

func TestMockCamera_Playback(t *testing.T) {
	frames := BlankFrames(2)
	defer closeAll(frames)

	cam := NewMockCamera(frames, false)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() before Open error = %v, want ErrCameraNotOpen", err)
	}

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	for i := 0; i < 2; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() %d error = %v", i, err)
		}
		if f.Rows() != DefaultHeight || f.Cols() != DefaultWidth {
			t.Errorf("frame %d is %dx%d", i, f.Cols(), f.Rows())
		}
		f.Close()
	}

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrNoMoreFrames) {
		t.Errorf("ReadFrame() after last frame error = %v, want ErrNoMoreFrames", err)
	}
	if cam.Reads() != 3 {
		t.Errorf("Reads() = %d, want 3", cam.Reads())
	}
}

func TestMockCamera_Loop(t *testing.T) {
	frames := BlankFrames(1)
	defer closeAll(frames)

	cam := NewMockCamera(frames, true)
	cam.Open()
	defer cam.Close()

	for i := 0; i < 5; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() iteration %d error = %v", i, err)
		}
		f.Close()
	}
}

func TestMockCamera_OpenIsIdempotent(t *testing.T) {
	frames := BlankFrames(2)
	defer closeAll(frames)

	cam := NewMockCamera(frames, false)
	cam.Open()
	f, _ := cam.ReadFrame()
	f.Close()

	cam.Open()
	if cam.Opens() != 1 {
		t.Errorf("Opens() = %d, want 1", cam.Opens())
	}

	// A second Open on a running camera must not rewind playback.
	f, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	f.Close()
	if _, err := cam.ReadFrame(); !errors.Is(err, ErrNoMoreFrames) {
		t.Errorf("expected playback to be exhausted, got %v", err)
	}
}
