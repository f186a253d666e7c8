package kinematics

import "fmt"

// Calibration holds the angle-to-servo range of each finger, indexed by Finger.
type Calibration [NumFingers]Range

// DefaultCalibration returns the ranges measured on the reference hand.
// The index finger bends further before its servo saturates.
func DefaultCalibration() Calibration {
	return Calibration{
		Thumb:  {InMin: 5, InMax: 130, OutMin: 0, OutMax: 150},
		Index:  {InMin: 5, InMax: 140, OutMin: 0, OutMax: 150},
		Middle: {InMin: 5, InMax: 130, OutMin: 0, OutMax: 150},
		Ring:   {InMin: 5, InMax: 130, OutMin: 0, OutMax: 150},
		Pinky:  {InMin: 5, InMax: 130, OutMin: 0, OutMax: 150},
	}
}

// Validate checks every finger's range.
func (c Calibration) Validate() error {
	for _, f := range Fingers {
		if err := c[f].Validate(); err != nil {
			return fmt.Errorf("calibration %s: %w", f, err)
		}
	}
	return nil
}

// Command maps joint angles to a servo command in wire order.
func (c Calibration) Command(a Angles) Command {
	var cmd Command
	for i, f := range WireOrder {
		cmd[i] = c[f].Map(a[f])
	}
	return cmd
}
