package path

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/apexftc/go-auton/pkg/geom"
	"github.com/apexftc/go-auton/pkg/timer"
)

// Follower executes path chains. Update must be called every loop tick;
// IsBusy is the completion signal the sequencer gates on.
type Follower interface {
	Update()
	IsBusy() bool
	FollowPath(c Chain, holdEnd bool)
	Pose() geom.Pose
	SetStartingPose(p geom.Pose)
	BreakFollowing()
}

// DefaultSimSpeed is the simulated travel speed in inches per second.
const DefaultSimSpeed = 40.0

// CoastDistance is how far a released robot rolls past the end of a chain
// that was not held, in inches.
const CoastDistance = 2.0

// SimFollower moves along a chain at constant speed against a clock.
// It stands in for a real path follower on the bench and in tests.
type SimFollower struct {
	mu       sync.Mutex
	clock    timer.Clock
	speed    float64
	pose     geom.Pose
	chain    Chain
	traveled float64
	busy     bool
	holdEnd  bool
	holding  bool
	coast    float64
	heading  r2.Vec
	last     time.Time
	follows  int
}

// NewSimFollower returns a follower travelling at speed in/s. A
// non-positive speed uses DefaultSimSpeed.
func NewSimFollower(clock timer.Clock, speed float64) *SimFollower {
	if clock == nil {
		clock = timer.RealClock{}
	}
	if speed <= 0 {
		speed = DefaultSimSpeed
	}
	return &SimFollower{clock: clock, speed: speed, last: clock.Now()}
}

// Update advances the simulated robot along the active chain.
func (f *SimFollower) Update() {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock.Now()
	dt := now.Sub(f.last).Seconds()
	f.last = now
	if !f.busy {
		f.roll(dt)
		return
	}
	f.traveled += f.speed * dt
	pose, done := f.chain.Sample(f.traveled)
	f.pose = pose
	if !done {
		return
	}
	f.busy = false
	if f.holdEnd {
		f.holding = true
		return
	}
	if dir, ok := endDirection(f.chain); ok {
		f.coast = CoastDistance
		f.heading = dir
		// Distance past the end this tick is the first part of the coast.
		f.roll((f.traveled - f.chain.Length()) / f.speed)
	}
}

// roll moves a released robot along its last direction of travel until
// the coast distance is used up.
func (f *SimFollower) roll(dt float64) {
	if f.coast <= 0 || dt <= 0 {
		return
	}
	d := f.speed * dt
	if d > f.coast {
		d = f.coast
	}
	f.coast -= d
	f.pose.X += f.heading.X * d
	f.pose.Y += f.heading.Y * d
}

// endDirection is the unit tangent at the end of c, taken from the last
// two control points of its final segment.
func endDirection(c Chain) (r2.Vec, bool) {
	segs := c.Segments()
	if len(segs) == 0 {
		return r2.Vec{}, false
	}
	pts := segs[len(segs)-1].Points()
	if len(pts) < 2 {
		return r2.Vec{}, false
	}
	d := r2.Sub(pts[len(pts)-1].Vec(), pts[len(pts)-2].Vec())
	n := r2.Norm(d)
	if n == 0 {
		return r2.Vec{}, false
	}
	return r2.Scale(1/n, d), true
}

// IsBusy reports whether a chain is still being followed.
func (f *SimFollower) IsBusy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

// FollowPath starts following c from its beginning.
func (f *SimFollower) FollowPath(c Chain, holdEnd bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chain = c
	f.traveled = 0
	f.holdEnd = holdEnd
	f.holding = false
	f.coast = 0
	f.busy = c.Len() > 0
	f.last = f.clock.Now()
	f.follows++
}

// Pose returns the current simulated pose.
func (f *SimFollower) Pose() geom.Pose {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pose
}

// SetStartingPose teleports the robot without following anything.
func (f *SimFollower) SetStartingPose(p geom.Pose) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pose = p
	f.coast = 0
}

// BreakFollowing abandons the active chain in place and releases any hold.
func (f *SimFollower) BreakFollowing() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
	f.holding = false
	f.coast = 0
}

// Holding reports whether the robot is being held at the end of a
// completed chain that was started with holdEnd.
func (f *SimFollower) Holding() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.holding
}

// Follows returns how many chains have been started.
func (f *SimFollower) Follows() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.follows
}
