// Package path describes planned motion between field poses.
//
// A Chain is built once with a Builder and never mutated afterwards; the
// Follower executes it. Curve following math lives in the follower, not here.
package path

import (
	"errors"
	"fmt"
	"math"

	"github.com/apexftc/go-auton/pkg/geom"
)

var (
	// ErrEmptyChain is returned when a chain has no segments.
	ErrEmptyChain = errors.New("path: chain has no segments")

	// ErrNoSegment is returned when a heading or constraint was set before any segment.
	ErrNoSegment = errors.New("path: heading or constraint set before a segment was added")

	// ErrPlaceholderPose is returned when a segment uses an untuned placeholder pose.
	ErrPlaceholderPose = errors.New("path: placeholder pose used as a path point")

	// ErrDegenerateSegment is returned for zero-length segments.
	ErrDegenerateSegment = errors.New("path: zero-length segment")

	// ErrTooFewPoints is returned for a segment with fewer than two points.
	ErrTooFewPoints = errors.New("path: segment needs at least two points")
)

// minSegmentLength is the shortest segment considered real motion (inches).
const minSegmentLength = 1e-6

// HeadingKind selects how heading evolves along a segment.
type HeadingKind int

const (
	// HeadingTangent faces along the direction of travel.
	HeadingTangent HeadingKind = iota
	// HeadingConstant holds one heading for the whole segment.
	HeadingConstant
	// HeadingLinear interpolates from a start to an end heading.
	HeadingLinear
)

func (k HeadingKind) String() string {
	switch k {
	case HeadingTangent:
		return "tangent"
	case HeadingConstant:
		return "constant"
	case HeadingLinear:
		return "linear"
	default:
		return fmt.Sprintf("HeadingKind(%d)", int(k))
	}
}

// HeadingRule is the heading interpolation of one segment.
type HeadingRule struct {
	Kind  HeadingKind
	Start float64 // radians; the constant heading for HeadingConstant
	End   float64 // radians; used by HeadingLinear
}

// Constraints are optional per-segment motion limits.
type Constraints struct {
	// EndVelocity caps speed at the end of the segment. Nil means unset.
	EndVelocity *float64
	// ZeroPowerAccelerationMultiplier scales deceleration. Nil means unset.
	ZeroPowerAccelerationMultiplier *float64
}

// Segment is one line or curve of a chain.
type Segment struct {
	Curve       geom.Curve
	Heading     HeadingRule
	Constraints Constraints

	poses []geom.Pose
}

// Points returns the poses the segment was built from.
func (s Segment) Points() []geom.Pose {
	out := make([]geom.Pose, len(s.poses))
	copy(out, s.poses)
	return out
}

// HeadingAt returns the heading at curve parameter t.
func (s Segment) HeadingAt(t float64) float64 {
	switch s.Heading.Kind {
	case HeadingConstant:
		return s.Heading.Start
	case HeadingLinear:
		return geom.Lerp(s.Heading.Start, s.Heading.End, clamp01(t))
	default:
		const dt = 1e-3
		a := s.Curve.At(math.Max(0, t-dt))
		b := s.Curve.At(math.Min(1, t+dt))
		return math.Atan2(b.Y-a.Y, b.X-a.X)
	}
}

// SegmentError locates a validation failure inside a chain.
type SegmentError struct {
	Index int
	Err   error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d: %v", e.Index, e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }

// Chain is an immutable ordered sequence of segments (a PathChain).
type Chain struct {
	segments []Segment
	err      error
}

// Len returns the number of segments.
func (c Chain) Len() int { return len(c.segments) }

// Segments returns a copy of the segments.
func (c Chain) Segments() []Segment {
	out := make([]Segment, len(c.segments))
	copy(out, c.segments)
	return out
}

// Start returns the starting pose of the chain.
func (c Chain) Start() geom.Pose {
	if len(c.segments) == 0 {
		return geom.Pose{}
	}
	s := c.segments[0]
	p := s.Curve.Start()
	return geom.NewPose(p.X, p.Y, s.HeadingAt(0))
}

// End returns the final pose of the chain.
func (c Chain) End() geom.Pose {
	if len(c.segments) == 0 {
		return geom.Pose{}
	}
	s := c.segments[len(c.segments)-1]
	p := s.Curve.End()
	return geom.NewPose(p.X, p.Y, s.HeadingAt(1))
}

// Length returns the total approximate arc length.
func (c Chain) Length() float64 {
	total := 0.0
	for _, s := range c.segments {
		total += s.Curve.Length()
	}
	return total
}

// Sample returns the pose after travelling distance d along the chain and
// whether the end has been reached.
func (c Chain) Sample(d float64) (geom.Pose, bool) {
	if len(c.segments) == 0 {
		return geom.Pose{}, true
	}
	if d <= 0 {
		return c.Start(), false
	}
	remaining := d
	for _, s := range c.segments {
		l := s.Curve.Length()
		if remaining < l {
			t := remaining / l
			p := s.Curve.At(t)
			return geom.NewPose(p.X, p.Y, s.HeadingAt(t)), false
		}
		remaining -= l
	}
	return c.End(), true
}

// Validate rejects chains that would produce degenerate motion: builder
// misuse, placeholder poses and zero-length segments.
func (c Chain) Validate() error {
	if c.err != nil {
		return c.err
	}
	if len(c.segments) == 0 {
		return ErrEmptyChain
	}
	for i, s := range c.segments {
		if len(s.poses) < 2 {
			return &SegmentError{Index: i, Err: ErrTooFewPoints}
		}
		for _, p := range s.poses {
			if p.IsPlaceholder() {
				return &SegmentError{Index: i, Err: ErrPlaceholderPose}
			}
		}
		if s.Curve.Length() < minSegmentLength {
			return &SegmentError{Index: i, Err: ErrDegenerateSegment}
		}
	}
	return nil
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
