// Package drive holds the mecanum drivetrain facade and wheel power math.
package drive

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrClosed is returned by a drivetrain after Close.
var ErrClosed = errors.New("drive: drivetrain closed")

// WheelPowers are the four mecanum wheel powers.
type WheelPowers struct {
	FrontLeft  float64 `json:"fl"`
	FrontRight float64 `json:"fr"`
	BackLeft   float64 `json:"bl"`
	BackRight  float64 `json:"br"`
}

// Zero is the explicit stop command.
var Zero = WheelPowers{}

// Mix combines forward, strafe and turn axis powers into wheel powers.
// The result is not normalized: callers that can exceed 1 clamp or
// normalize explicitly.
func Mix(forward, strafe, turn float64) WheelPowers {
	return WheelPowers{
		FrontLeft:  forward + strafe - turn,
		FrontRight: forward - strafe + turn,
		BackLeft:   forward - strafe - turn,
		BackRight:  forward + strafe + turn,
	}
}

// IsZero reports whether every wheel is commanded to zero.
func (w WheelPowers) IsZero() bool { return w == Zero }

// Max returns the largest wheel magnitude.
func (w WheelPowers) Max() float64 {
	return math.Max(
		math.Max(math.Abs(w.FrontLeft), math.Abs(w.FrontRight)),
		math.Max(math.Abs(w.BackLeft), math.Abs(w.BackRight)),
	)
}

// Scale multiplies every wheel by k.
func (w WheelPowers) Scale(k float64) WheelPowers {
	return WheelPowers{w.FrontLeft * k, w.FrontRight * k, w.BackLeft * k, w.BackRight * k}
}

// Clamp limits each wheel to [-1, 1] independently.
func (w WheelPowers) Clamp() WheelPowers {
	return WheelPowers{clampUnit(w.FrontLeft), clampUnit(w.FrontRight), clampUnit(w.BackLeft), clampUnit(w.BackRight)}
}

func (w WheelPowers) String() string {
	return fmt.Sprintf("fl=%.3f fr=%.3f bl=%.3f br=%.3f", w.FrontLeft, w.FrontRight, w.BackLeft, w.BackRight)
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// Drivetrain accepts wheel power setpoints.
type Drivetrain interface {
	SetPowers(p WheelPowers) error
	Stop() error
}

// SimDrivetrain records what it is told.
type SimDrivetrain struct {
	mu       sync.Mutex
	last     WheelPowers
	commands int
	stops    int
}

// NewSimDrivetrain returns a recording drivetrain.
func NewSimDrivetrain() *SimDrivetrain {
	return &SimDrivetrain{}
}

// SetPowers stores p clamped to [-1, 1].
func (d *SimDrivetrain) SetPowers(p WheelPowers) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = p.Clamp()
	d.commands++
	return nil
}

// Stop commands zero power.
func (d *SimDrivetrain) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = Zero
	d.stops++
	return nil
}

// Last returns the most recent powers.
func (d *SimDrivetrain) Last() WheelPowers {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Commands returns how many SetPowers calls were made.
func (d *SimDrivetrain) Commands() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commands
}

// Stops returns how many Stop calls were made.
func (d *SimDrivetrain) Stops() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stops
}
