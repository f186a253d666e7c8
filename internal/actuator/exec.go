package actuator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/ayusman/mudra/internal/kinematics"
)

// ExecRequest is written to the helper program's stdin.
type ExecRequest struct {
	Address string    `json:"address"`
	Angles  []float64 `json:"angles"`
}

// ExecResponse is read from the helper program's stdout.
type ExecResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ExecLink hands each command to an external helper program, for
// controllers that ship their own client.
type ExecLink struct {
	program string
	args    []string
	timeout time.Duration
}

// NewExecLink creates an ExecLink running program with args.
func NewExecLink(program string, args []string, timeout time.Duration) *ExecLink {
	return &ExecLink{
		program: program,
		args:    args,
		timeout: timeout,
	}
}

// Send runs the helper once, with the request JSON on stdin, and parses its
// stdout as an ExecResponse.
func (l *ExecLink) Send(ctx context.Context, address string, cmd kinematics.Command) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	reqJSON, err := json.Marshal(ExecRequest{Address: address, Angles: cmd.Slice()})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	c := exec.CommandContext(ctx, l.program, l.args...)
	c.Stdin = bytes.NewReader(reqJSON)
	c.WaitDelay = l.timeout

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err = c.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("helper timeout after %s", l.timeout)
	}
	if err != nil {
		if s := stderr.String(); s != "" {
			return fmt.Errorf("helper failed: %w, stderr: %s", err, s)
		}
		return fmt.Errorf("helper failed: %w", err)
	}

	var resp ExecResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return fmt.Errorf("failed to parse helper response: %w, stdout: %s", err, stdout.String())
	}
	if !resp.Success {
		return fmt.Errorf("helper rejected command: %s", resp.Error)
	}
	return nil
}

func (l *ExecLink) Close() error { return nil }
