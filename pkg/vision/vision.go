// Package vision exposes fiducial detections from the vision coprocessor.
//
// Detections are transient: a Source refreshes them once per tick in
// Update and nothing is carried over between ticks.
package vision

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by a source after Close.
var ErrClosed = errors.New("vision: source closed")

// Goal tag ids.
const (
	BlueGoalTag = 20
	RedGoalTag  = 24
)

// RelativePose is a tag's pose relative to the camera.
type RelativePose struct {
	X   float64 `json:"x"`   // lateral offset, positive to the right
	Z   float64 `json:"z"`   // forward distance
	Yaw float64 `json:"yaw"` // degrees
}

// Detection is one tag seen this tick. Pose is nil when the id matched
// but pose resolution failed.
type Detection struct {
	ID   int           `json:"id"`
	Pose *RelativePose `json:"pose,omitempty"`
}

// Resolved reports whether the detection carries a relative pose.
func (d Detection) Resolved() bool { return d.Pose != nil }

// Detections is the set seen on one tick.
type Detections []Detection

// ByID returns the first detection with the given id.
func (ds Detections) ByID(id int) (Detection, bool) {
	for _, d := range ds {
		if d.ID == id {
			return d, true
		}
	}
	return Detection{}, false
}

// Source is the vision facade.
type Source interface {
	// Update refreshes detections. It is called once per tick before the
	// controller; on failure the source reports no detections.
	Update(ctx context.Context) error
	Detections() Detections
	DetectionByID(id int) (Detection, bool)
	Close() error
}

// StaticSource returns whatever detections it was last given.
type StaticSource struct {
	mu      sync.Mutex
	dets    Detections
	updates int
	closed  bool
}

// NewStaticSource returns a source that reports dets until changed.
func NewStaticSource(dets ...Detection) *StaticSource {
	return &StaticSource{dets: dets}
}

// Set replaces the detections.
func (s *StaticSource) Set(dets ...Detection) {
	s.mu.Lock()
	s.dets = dets
	s.mu.Unlock()
}

// Update counts the call.
func (s *StaticSource) Update(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.updates++
	return nil
}

// Detections returns a copy of the current detections. A closed source
// has none.
func (s *StaticSource) Detections() Detections {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	out := make(Detections, len(s.dets))
	copy(out, s.dets)
	return out
}

// DetectionByID looks up a detection.
func (s *StaticSource) DetectionByID(id int) (Detection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Detection{}, false
	}
	return s.dets.ByID(id)
}

// Close marks the source closed.
func (s *StaticSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (s *StaticSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Updates returns how many times Update succeeded.
func (s *StaticSource) Updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}
