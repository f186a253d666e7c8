package kinematics

import (
	"math"

	"github.com/ayusman/mudra/internal/detector"
)

// Vec2 is a 2D vector in normalized image coordinates.
type Vec2 struct {
	X, Y float64
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Norm returns the Euclidean length of v.
func (v Vec2) Norm() float64 {
	return math.Hypot(v.X, v.Y)
}

// Angle returns the angle between v1 and v2 in degrees, in [0, 180].
// A zero-length vector yields 0.
func Angle(v1, v2 Vec2) float64 {
	mag := v1.Norm() * v2.Norm()
	if mag == 0 {
		return 0
	}

	cos := v1.Dot(v2) / mag
	// Rounding can push nearly parallel vectors just past +/-1.
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// Angles holds one joint angle per finger, indexed by Finger.
type Angles [NumFingers]float64

// Of returns the angle of finger f.
func (a Angles) Of(f Finger) float64 {
	return a[f]
}

// FingerAngle computes the flexion of one finger: the angle between the
// base->middle and middle->tip segments. 0 means straight.
func FingerAngle(hand *detector.HandLandmarks, f Finger) float64 {
	t := f.Triplet()
	base := point(hand, t.Base)
	mid := point(hand, t.Mid)
	tip := point(hand, t.Tip)

	return Angle(mid.Sub(base), tip.Sub(mid))
}

// JointAngles computes the flexion angle of every finger.
func JointAngles(hand *detector.HandLandmarks) Angles {
	var a Angles
	if hand == nil {
		return a
	}
	for _, f := range Fingers {
		a[f] = FingerAngle(hand, f)
	}
	return a
}

func point(hand *detector.HandLandmarks, idx int) Vec2 {
	p := hand.Points[idx]
	return Vec2{X: p.X, Y: p.Y}
}
