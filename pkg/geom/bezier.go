package geom

import "gonum.org/v1/gonum/spatial/r2"

// lengthSamples is the number of chords used to approximate arc length.
const lengthSamples = 64

// Curve is a Bezier curve of any degree. A two-point curve is a line.
type Curve struct {
	points []r2.Vec
}

// NewCurve builds a curve through the control points of the given poses.
// Headings are ignored.
func NewCurve(poses ...Pose) Curve {
	pts := make([]r2.Vec, len(poses))
	for i, p := range poses {
		pts[i] = p.Vec()
	}
	return Curve{points: pts}
}

// Degree returns the polynomial degree (points - 1).
func (c Curve) Degree() int {
	return len(c.points) - 1
}

// Start returns the first control point.
func (c Curve) Start() r2.Vec {
	if len(c.points) == 0 {
		return r2.Vec{}
	}
	return c.points[0]
}

// End returns the last control point.
func (c Curve) End() r2.Vec {
	if len(c.points) == 0 {
		return r2.Vec{}
	}
	return c.points[len(c.points)-1]
}

// At evaluates the curve at t in [0, 1] using de Casteljau's algorithm.
func (c Curve) At(t float64) r2.Vec {
	switch len(c.points) {
	case 0:
		return r2.Vec{}
	case 1:
		return c.points[0]
	}
	if t <= 0 {
		return c.Start()
	}
	if t >= 1 {
		return c.End()
	}

	work := make([]r2.Vec, len(c.points))
	copy(work, c.points)
	for n := len(work) - 1; n > 0; n-- {
		for i := 0; i < n; i++ {
			work[i] = r2.Add(r2.Scale(1-t, work[i]), r2.Scale(t, work[i+1]))
		}
	}
	return work[0]
}

// Length approximates the arc length by summing chords.
func (c Curve) Length() float64 {
	if len(c.points) < 2 {
		return 0
	}
	if len(c.points) == 2 {
		return r2.Norm(r2.Sub(c.points[1], c.points[0]))
	}
	total := 0.0
	prev := c.points[0]
	for i := 1; i <= lengthSamples; i++ {
		p := c.At(float64(i) / lengthSamples)
		total += r2.Norm(r2.Sub(p, prev))
		prev = p
	}
	return total
}
