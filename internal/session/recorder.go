// Package session records command streams to CSV files and plays them back.
package session

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/mudra/internal/kinematics"
)

// DefaultDir is where Live sessions are written, relative to the working
// directory.
const DefaultDir = "recorded_sessions"

const (
	filePrefix = "Session_"
	fileExt    = ".csv"
	timeLayout = "20060102_150405"
)

// ErrClosed is returned when appending to a closed recorder.
var ErrClosed = errors.New("session recorder closed")

// FileName returns the session file name for a session started at t.
func FileName(t time.Time) string {
	return filePrefix + t.Format(timeLayout) + fileExt
}

// Recorder writes one session file. Each row is flushed as it is appended,
// so a crash loses at most the row being written.
type Recorder struct {
	path   string
	file   *os.File
	w      *csv.Writer
	rows   int
	closed bool
}

// Create makes dir if needed and starts a new session file named after now.
// An existing file is never overwritten; a numeric suffix is added instead.
func Create(dir string, now time.Time) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	base := filePrefix + now.Format(timeLayout)
	var (
		file *os.File
		path string
		err  error
	)
	for i := 1; i <= 100; i++ {
		name := base + fileExt
		if i > 1 {
			name = fmt.Sprintf("%s_%d%s", base, i, fileExt)
		}
		path = filepath.Join(dir, name)
		file, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if !errors.Is(err, os.ErrExist) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create session file: %w", err)
	}

	r := &Recorder{
		path: path,
		file: file,
		w:    csv.NewWriter(file),
	}
	if err := r.write(kinematics.Header); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write session header: %w", err)
	}
	return r, nil
}

// Append writes one command row.
func (r *Recorder) Append(cmd kinematics.Command) error {
	if r.closed {
		return ErrClosed
	}
	if err := r.write(cmd.Fields()); err != nil {
		return fmt.Errorf("append to %s: %w", r.path, err)
	}
	r.rows++
	return nil
}

func (r *Recorder) write(record []string) error {
	if err := r.w.Write(record); err != nil {
		return err
	}
	r.w.Flush()
	return r.w.Error()
}

// Path returns the session file path.
func (r *Recorder) Path() string { return r.path }

// Rows returns how many command rows were written.
func (r *Recorder) Rows() int { return r.rows }

// Close flushes and closes the file. It is safe to call more than once.
func (r *Recorder) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	r.w.Flush()
	flushErr := r.w.Error()
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if flushErr != nil {
		return fmt.Errorf("flush session file: %w", flushErr)
	}
	return nil
}
