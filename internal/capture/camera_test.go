package capture

import (
	"errors"
	"testing"
)

func TestNewCameraWithOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantFPS int
	}{
		{
			name:    "defaults",
			opts:    Options{},
			wantFPS: DefaultFPS,
		},
		{
			name:    "explicit fps",
			opts:    Options{DeviceID: 1, FPS: 15},
			wantFPS: 15,
		},
		{
			name:    "negative fps falls back",
			opts:    Options{DeviceID: 2, FPS: -3},
			wantFPS: DefaultFPS,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCameraWithOptions(tt.opts)

			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}
			if cam.IsOpen() {
				t.Error("camera should not be running initially")
			}
		})
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(0)

	tests := []struct {
		name    string
		fps     int
		wantFPS int
	}{
		{
			name:    "set to 10",
			fps:     10,
			wantFPS: 10,
		},
		{
			name:    "set to 1",
			fps:     1,
			wantFPS: 1,
		},
		{
			name:    "set to 0 should keep previous",
			fps:     0,
			wantFPS: 1,
		},
		{
			name:    "set to negative should keep previous",
			fps:     -5,
			wantFPS: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam.SetFPS(tt.fps)

			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}
		})
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(0)

	if err := cam.Open(); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}

	if !cam.IsOpen() {
		t.Error("IsOpen() should return true after Open()")
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Errorf("ReadFrame() failed: %v", err)
	} else {
		if mat.Cols() != DefaultWidth || mat.Rows() != DefaultHeight {
			t.Logf("Frame dimensions: %dx%d (camera may not support 640x480)", mat.Cols(), mat.Rows())
		}
		mat.Close()
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() should return false after Close()")
	}
}

func TestCamera_ReadFrame_NotOpened(t *testing.T) {
	cam := NewCamera(0)

	_, err := cam.ReadFrame()
	if !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
}

func TestCamera_Close_NotOpened(t *testing.T) {
	cam := NewCamera(0)

	if err := cam.Close(); err != nil {
		t.Errorf("Close() on not opened camera should return nil, got: %v", err)
	}
}
