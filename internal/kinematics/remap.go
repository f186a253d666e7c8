package kinematics

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRange is returned when a range cannot be mapped, for example when
// its input bounds are equal.
var ErrInvalidRange = errors.New("invalid range")

// Range maps an input interval onto an output interval.
type Range struct {
	InMin  float64 `toml:"in_min" json:"in_min"`
	InMax  float64 `toml:"in_max" json:"in_max"`
	OutMin float64 `toml:"out_min" json:"out_min"`
	OutMax float64 `toml:"out_max" json:"out_max"`
}

// Validate reports whether the range can be mapped.
func (r Range) Validate() error {
	for _, v := range []float64{r.InMin, r.InMax, r.OutMin, r.OutMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: bounds must be finite", ErrInvalidRange)
		}
	}
	if r.InMin == r.InMax {
		return fmt.Errorf("%w: input bounds are equal (%g)", ErrInvalidRange, r.InMin)
	}
	if r.OutMin == r.OutMax {
		return fmt.Errorf("%w: output bounds are equal (%g)", ErrInvalidRange, r.OutMin)
	}
	return nil
}

// Map rescales v linearly and clamps it to the output interval.
//
// When OutMin > OutMax the interpolation is anchored at OutMax, so the result
// still rises with v from OutMax toward OutMin. A range with equal input
// bounds maps everything to the lower output bound.
func (r Range) Map(v float64) float64 {
	lo := math.Min(r.OutMin, r.OutMax)
	hi := math.Max(r.OutMin, r.OutMax)

	if r.InMin == r.InMax {
		return lo
	}

	t := (v - r.InMin) / (r.InMax - r.InMin)

	var out float64
	if r.OutMin < r.OutMax {
		out = r.OutMin + t*(r.OutMax-r.OutMin)
	} else {
		out = r.OutMax + t*(r.OutMin-r.OutMax)
	}

	return math.Max(lo, math.Min(hi, out))
}

// Remap rescales value from [inMin, inMax] to [outMin, outMax], clamped.
func Remap(value, inMin, inMax, outMin, outMax float64) float64 {
	return Range{InMin: inMin, InMax: inMax, OutMin: outMin, OutMax: outMax}.Map(value)
}
