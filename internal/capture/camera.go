// Package capture reads frames from a camera using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrEmptyFrame is returned when the device delivers no image data.
	ErrEmptyFrame = errors.New("captured frame is empty")
)

// Camera defines the interface for frame sources.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller owns the Mat and must
	// close it.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Options configures a device camera.
type Options struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	opts    Options
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
}

// NewCamera creates a Camera for the given device ID at 640x480.
func NewCamera(deviceID int) Camera {
	return NewCameraWithOptions(Options{DeviceID: deviceID})
}

// NewCameraWithOptions creates a Camera; zero fields take the defaults.
func NewCameraWithOptions(opts Options) Camera {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	return &cameraImpl{opts: opts}
}

// Open opens the device. Opening an open camera is a no-op.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.opts.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.opts.DeviceID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open camera %d: device unavailable", c.opts.DeviceID)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.opts.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.opts.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.opts.FPS))

	c.capture = capture
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, fmt.Errorf("read camera %d: device returned no frame", c.opts.DeviceID)
	}

	if mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}

	return &mat, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.opts.FPS = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.opts.FPS
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
