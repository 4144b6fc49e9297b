package mechanism

import (
	"errors"
	"fmt"
)

// Servo positions.
const (
	GripOpen     = 0.55
	GripClosed   = 0.12
	WristRotated = 0.80
	WristFlat    = 0.20

	// TransferRestPosition is where the transfer servo waits between feeds.
	TransferRestPosition = 0.2639
)

// ClawMechanism is a grip servo plus a wrist servo driven as one mechanism.
// Grip presets (open, closed) and wrist presets (rotated, straight) are
// independent, so closing the claw does not undo a rotation.
type ClawMechanism struct {
	grip  *Positional
	wrist *Positional
}

// NewClaw combines a grip and a wrist servo.
func NewClaw(grip, wrist *Positional) *ClawMechanism {
	return &ClawMechanism{grip: grip, wrist: wrist}
}

// Name returns "claw".
func (c *ClawMechanism) Name() string { return Claw }

// SetTarget sets the grip position.
func (c *ClawMechanism) SetTarget(v float64) { c.grip.SetTarget(v) }

// Target returns the grip target.
func (c *ClawMechanism) Target() float64 { return c.grip.Target() }

// State returns the grip position.
func (c *ClawMechanism) State() float64 { return c.grip.State() }

// Wrist returns the wrist position.
func (c *ClawMechanism) Wrist() float64 { return c.wrist.State() }

// Fault joins the errors of both servos.
func (c *ClawMechanism) Fault() error {
	return errors.Join(c.grip.Fault(), c.wrist.Fault())
}

// IsBusy is true while either servo is moving.
func (c *ClawMechanism) IsBusy() bool {
	return c.grip.IsBusy() || c.wrist.IsBusy()
}

// Preset routes the name to whichever servo defines it.
func (c *ClawMechanism) Preset(name string) error {
	switch {
	case c.grip.HasPreset(name):
		return c.grip.Preset(name)
	case c.wrist.HasPreset(name):
		return c.wrist.Preset(name)
	default:
		return &PresetError{Mechanism: Claw, Preset: name}
	}
}

// HasPreset reports whether either servo defines name.
func (c *ClawMechanism) HasPreset(name string) bool {
	return c.grip.HasPreset(name) || c.wrist.HasPreset(name)
}

// Update steps both servos.
func (c *ClawMechanism) Update() {
	c.grip.Update()
	c.wrist.Update()
}

// Describe renders the claw state as a telemetry line.
func (c *ClawMechanism) Describe() string {
	grip := "open"
	if c.grip.Target() == GripClosed {
		grip = "closed"
	}
	wrist := "straight"
	if c.wrist.Target() == WristRotated {
		wrist = "rotated"
	}
	return fmt.Sprintf("Claw: %s, %s", grip, wrist)
}
