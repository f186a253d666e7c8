package session

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ayusman/mudra/internal/kinematics"
)

var (
	// ErrMalformedRow is returned for a row that is not five numbers.
	ErrMalformedRow = errors.New("malformed session row")

	// ErrEmptySession is returned for a file without even a header.
	ErrEmptySession = errors.New("session file is empty")
)

// Reader iterates over the command rows of a session file. The header row
// is consumed by Open and not validated, so files with other labels still
// play.
type Reader struct {
	file   *os.File
	csv    *csv.Reader
	header []string
}

// Open opens a session file and reads its header.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	cr := csv.NewReader(file)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrEmptySession)
	}
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("read session header: %w", err)
	}

	return &Reader{file: file, csv: cr, header: header}, nil
}

// Header returns the labels from the first row.
func (r *Reader) Header() []string { return r.header }

// Next returns the next command and its 1-based line number. It returns
// io.EOF after the last row.
func (r *Reader) Next() (kinematics.Command, int, error) {
	record, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return kinematics.Command{}, 0, io.EOF
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return kinematics.Command{}, perr.Line, fmt.Errorf("line %d: %w: %v", perr.Line, ErrMalformedRow, err)
		}
		return kinematics.Command{}, 0, fmt.Errorf("read session: %w", err)
	}

	line, _ := r.csv.FieldPos(0)
	cmd, err := kinematics.ParseCommand(record)
	if err != nil {
		return kinematics.Command{}, line, fmt.Errorf("line %d: %w: %v", line, ErrMalformedRow, err)
	}
	return cmd, line, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Read loads every command of a session file.
func Read(path string) ([]kinematics.Command, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var cmds []kinematics.Command
	for {
		cmd, _, err := r.Next()
		if errors.Is(err, io.EOF) {
			return cmds, nil
		}
		if err != nil {
			return cmds, err
		}
		cmds = append(cmds, cmd)
	}
}
