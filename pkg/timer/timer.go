// Package timer provides the elapsed-time counters used by opmodes.
//
// A Timer can only be reset or read. Time comes from a Clock so loops can
// be driven deterministically in tests.
package timer

import (
	"sync"
	"time"
)

// Clock is a source of monotonic time.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock (monotonic reading included).
type RealClock struct{}

// Now returns time.Now().
func (RealClock) Now() time.Time { return time.Now() }

// ManualClock only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock returns a manual clock starting at an arbitrary fixed instant.
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Timer measures time since its last reset.
type Timer struct {
	clock Clock
	start time.Time
}

// New returns a timer reset to the clock's current time.
// A nil clock selects RealClock.
func New(clock Clock) *Timer {
	if clock == nil {
		clock = RealClock{}
	}
	return &Timer{clock: clock, start: clock.Now()}
}

// Reset restarts the timer at zero.
func (t *Timer) Reset() {
	t.start = t.clock.Now()
}

// Elapsed returns the time since the last reset.
func (t *Timer) Elapsed() time.Duration {
	return t.clock.Now().Sub(t.start)
}

// Seconds returns Elapsed in seconds.
func (t *Timer) Seconds() float64 {
	return t.Elapsed().Seconds()
}
