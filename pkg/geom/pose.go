// Package geom holds field geometry: poses, angles and Bezier curves.
//
// Coordinates are in the 144x144 inch field frame with headings in radians.
package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// FieldSize is the side length of the square field in inches.
const FieldSize = 144.0

// Pose is an immutable field position and heading. Always pass by value.
type Pose struct {
	X       float64
	Y       float64
	Heading float64 // radians
}

// NewPose builds a pose from a heading in radians.
func NewPose(x, y, heading float64) Pose {
	return Pose{X: x, Y: y, Heading: heading}
}

// PoseDeg builds a pose from a heading in degrees.
func PoseDeg(x, y, headingDeg float64) Pose {
	return Pose{X: x, Y: y, Heading: Radians(headingDeg)}
}

// Placeholder is a pose whose location has not been tuned yet.
// It must never be used as a real path endpoint.
var Placeholder = Pose{}

// IsPlaceholder reports whether p is the all-zero placeholder.
func (p Pose) IsPlaceholder() bool {
	return p == Placeholder
}

// Vec returns the position as an r2 vector.
func (p Pose) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// MirrorX reflects the pose across the field's vertical centre line.
// Heading is kept as-is: both alliances face the same wall at start.
func (p Pose) MirrorX() Pose {
	return Pose{X: FieldSize - p.X, Y: p.Y, Heading: p.Heading}
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f°)", p.X, p.Y, Degrees(p.Heading))
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// NormalizeAngle wraps an angle into (-pi, pi].
func NormalizeAngle(rad float64) float64 {
	a := math.Mod(rad, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// Lerp linearly interpolates between two headings along the shorter arc.
func Lerp(from, to, t float64) float64 {
	return NormalizeAngle(from + NormalizeAngle(to-from)*t)
}
