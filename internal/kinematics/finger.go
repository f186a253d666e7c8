// Package kinematics turns hand landmarks into finger flexion angles and
// servo commands for the five-channel hand.
package kinematics

import (
	"fmt"
	"strings"

	"github.com/ayusman/mudra/internal/detector"
)

// Finger identifies one of the five fingers.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
)

// NumFingers is the number of fingers, and of actuator channels.
const NumFingers = 5

// Fingers lists every finger in anatomical order.
var Fingers = [NumFingers]Finger{Thumb, Index, Middle, Ring, Pinky}

var fingerNames = [NumFingers]string{"thumb", "index", "middle", "ring", "pinky"}

// String returns the lowercase finger name.
func (f Finger) String() string {
	if f < 0 || int(f) >= NumFingers {
		return fmt.Sprintf("finger(%d)", int(f))
	}
	return fingerNames[f]
}

// ParseFinger accepts a finger name in any case.
func ParseFinger(s string) (Finger, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range fingerNames {
		if n == name {
			return Finger(i), nil
		}
	}
	return 0, fmt.Errorf("unknown finger %q", s)
}

// Triplet holds the landmark indices of a finger's base, middle and tip
// points.
type Triplet struct {
	Base, Mid, Tip int
}

// topology is the fixed finger to landmark mapping. The index through pinky
// fingers skip the DIP joint and use MCP, PIP and tip.
var topology = [NumFingers]Triplet{
	Thumb:  {detector.ThumbMCP, detector.ThumbIP, detector.ThumbTip},
	Index:  {detector.IndexMCP, detector.IndexPIP, detector.IndexTip},
	Middle: {detector.MiddleMCP, detector.MiddlePIP, detector.MiddleTip},
	Ring:   {detector.RingMCP, detector.RingPIP, detector.RingTip},
	Pinky:  {detector.PinkyMCP, detector.PinkyPIP, detector.PinkyTip},
}

// Triplet returns the landmark indices used for this finger.
func (f Finger) Triplet() Triplet {
	return topology[f]
}
