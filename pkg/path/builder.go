package path

import "github.com/apexftc/go-auton/pkg/geom"

// Builder assembles a Chain incrementally. Heading and constraint calls
// apply to the most recently added segment.
//
//	chain := path.NewBuilder().
//		AddCurve(start, control, end).
//		ConstantHeading(geom.Radians(180)).
//		Build()
type Builder struct {
	segments []Segment
	err      error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddLine appends a straight segment from a to b.
func (b *Builder) AddLine(a, c geom.Pose) *Builder {
	return b.add(a, c)
}

// AddCurve appends a Bezier segment through the given control poses.
func (b *Builder) AddCurve(points ...geom.Pose) *Builder {
	return b.add(points...)
}

func (b *Builder) add(points ...geom.Pose) *Builder {
	poses := make([]geom.Pose, len(points))
	copy(poses, points)
	b.segments = append(b.segments, Segment{
		Curve:   geom.NewCurve(poses...),
		Heading: HeadingRule{Kind: HeadingTangent},
		poses:   poses,
	})
	return b
}

func (b *Builder) last() *Segment {
	if len(b.segments) == 0 {
		if b.err == nil {
			b.err = ErrNoSegment
		}
		return nil
	}
	return &b.segments[len(b.segments)-1]
}

// ConstantHeading holds heading h (radians) over the last segment.
func (b *Builder) ConstantHeading(h float64) *Builder {
	if s := b.last(); s != nil {
		s.Heading = HeadingRule{Kind: HeadingConstant, Start: h, End: h}
	}
	return b
}

// LinearHeading interpolates from start to end (radians) over the last segment.
func (b *Builder) LinearHeading(start, end float64) *Builder {
	if s := b.last(); s != nil {
		s.Heading = HeadingRule{Kind: HeadingLinear, Start: start, End: end}
	}
	return b
}

// TangentHeading faces along the direction of travel over the last segment.
func (b *Builder) TangentHeading() *Builder {
	if s := b.last(); s != nil {
		s.Heading = HeadingRule{Kind: HeadingTangent}
	}
	return b
}

// PathEndVelocity caps the end velocity of the last segment.
func (b *Builder) PathEndVelocity(v float64) *Builder {
	if s := b.last(); s != nil {
		s.Constraints.EndVelocity = &v
	}
	return b
}

// ZeroPowerAccelerationMultiplier scales the braking of the last segment.
func (b *Builder) ZeroPowerAccelerationMultiplier(m float64) *Builder {
	if s := b.last(); s != nil {
		s.Constraints.ZeroPowerAccelerationMultiplier = &m
	}
	return b
}

// Build returns the immutable chain. Misuse is reported by Chain.Validate.
func (b *Builder) Build() Chain {
	segs := make([]Segment, len(b.segments))
	copy(segs, b.segments)
	return Chain{segments: segs, err: b.err}
}

// Line is shorthand for a one-segment chain with linear heading between
// the endpoint headings.
func Line(a, c geom.Pose) Chain {
	return NewBuilder().AddLine(a, c).LinearHeading(a.Heading, c.Heading).Build()
}
