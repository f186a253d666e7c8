// Package actuator delivers servo commands to the robotic hand over one of
// several best-effort transports.
package actuator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/kinematics"
)

// DefaultAddress is the controller address of the reference hand.
const DefaultAddress = "192.168.114.31"

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 200 * time.Millisecond

// Transport kinds accepted by New.
const (
	KindHTTP    = "http"
	KindWS      = "ws"
	KindFeetech = "feetech"
	KindExec    = "exec"
	KindLog     = "log"
)

// ErrUnknownKind is returned by New for an unsupported transport.
var ErrUnknownKind = errors.New("unknown link kind")

// Link sends one command to the device at address. Delivery is best effort:
// there is no acknowledgment beyond the returned error.
type Link interface {
	Send(ctx context.Context, address string, cmd kinematics.Command) error
	Close() error
}

// Payload is the JSON body shared by the HTTP and WebSocket transports.
type Payload struct {
	Angles []float64 `json:"angles"`
}

// NewPayload builds the wire body for cmd, channels in wire order.
func NewPayload(cmd kinematics.Command) Payload {
	return Payload{Angles: cmd.Slice()}
}

// Config selects and tunes a transport.
type Config struct {
	Kind    string        `toml:"kind"`
	Timeout time.Duration `toml:"timeout"`

	// Program and Args configure the exec transport.
	Program string   `toml:"program"`
	Args    []string `toml:"args"`

	Feetech FeetechConfig `toml:"feetech"`
}

// Kinds lists the supported transport names.
func Kinds() []string {
	return []string{KindHTTP, KindWS, KindFeetech, KindExec, KindLog}
}

// New builds the Link described by cfg.
func New(cfg Config) (Link, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	switch cfg.Kind {
	case KindHTTP, "":
		return NewHTTPLink(timeout), nil
	case KindWS:
		return NewWSLink(timeout), nil
	case KindFeetech:
		return NewFeetechLink(cfg.Feetech), nil
	case KindExec:
		if cfg.Program == "" {
			return nil, fmt.Errorf("exec link: no program configured")
		}
		return NewExecLink(cfg.Program, cfg.Args, timeout), nil
	case KindLog:
		return NewLogLink(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}
