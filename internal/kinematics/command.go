package kinematics

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// WireOrder is the channel order of a Command on the wire and in session
// files. It is not the anatomical order.
var WireOrder = [NumFingers]Finger{Index, Ring, Middle, Thumb, Pinky}

// Header is the session file header, kept verbatim so existing recordings
// stay readable by other tools.
var Header = []string{"Index", "Ring", "Middle", "Thumb", "Pinky"}

// Command is one servo position per channel, in WireOrder.
type Command [NumFingers]float64

// Of returns the position commanded for finger f.
func (c Command) Of(f Finger) float64 {
	for i, w := range WireOrder {
		if w == f {
			return c[i]
		}
	}
	return 0
}

// Slice returns the positions as a slice, in wire order.
func (c Command) Slice() []float64 {
	out := make([]float64, NumFingers)
	copy(out, c[:])
	return out
}

// Fields formats the positions using the shortest text that parses back to
// the same value.
func (c Command) Fields() []string {
	out := make([]string, NumFingers)
	for i, v := range c {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out
}

// String renders the command like a list, e.g. [0 12.5 150 75 3].
func (c Command) String() string {
	return "[" + strings.Join(c.Fields(), " ") + "]"
}

// ParseCommand parses exactly five finite numeric fields. Surrounding
// spaces are ignored.
func ParseCommand(fields []string) (Command, error) {
	var cmd Command
	if len(fields) != NumFingers {
		return cmd, fmt.Errorf("expected %d fields, got %d", NumFingers, len(fields))
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return cmd, fmt.Errorf("field %d (%s): %w", i+1, Header[i], err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return cmd, fmt.Errorf("field %d (%s): %q is not a finite number", i+1, Header[i], f)
		}
		cmd[i] = v
	}
	return cmd, nil
}
