// Package mechanism models the robot's scoring mechanisms behind a small
// facade: the specimen claw, slides and arm, and the intake, transfer,
// flywheel and spindexer of the shooter.
//
// The sequencer only ever sets targets and polls IsBusy. Targets are
// fire-and-forget: the effect shows up on a later tick as busy going false.
package mechanism

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPreset is returned for a preset name a mechanism does not define.
	ErrUnknownPreset = errors.New("mechanism: unknown preset")

	// ErrUnknownMechanism is returned when a name is not registered in a Set.
	ErrUnknownMechanism = errors.New("mechanism: unknown mechanism")

	// ErrDuplicateMechanism is returned when a name is registered twice.
	ErrDuplicateMechanism = errors.New("mechanism: duplicate mechanism")
)

// Logical mechanism names.
const (
	Claw    = "claw"
	Slides  = "slides"
	Arm     = "arm"
	HSlides = "hslides"
	Intake  = "intake"

	Transfer  = "transfer"
	Outtake   = "outtake"
	Spindexer = "spindexer"
)

// Preset names.
const (
	ClawOpen     = "open"
	ClawClosed   = "closed"
	ClawRotated  = "rotated"
	ClawStraight = "straight"

	ArmBack      = "back"
	ArmPrePickup = "pre_pickup"

	HSlidesRetracted = "retracted"
	HSlidesUnlatched = "unlatched"

	SlidesBase = "base"

	// Stop is the zero-power preset every powered mechanism defines.
	Stop = "stop"

	IntakeCollect = "collect"
	IntakeEject   = "eject"
	IntakeStop    = Stop

	TransferFeed = "feed"
	TransferRest = "rest"

	OuttakeLaunch = "launch"
	OuttakeStop   = Stop
)

// SpindexerSlot names the outtake position of the given ball, 1 to 3.
func SpindexerSlot(ball int) string {
	return fmt.Sprintf("slot_%d", ball)
}

// Mechanism is the facade every subsystem exposes to the sequencer.
type Mechanism interface {
	Name() string
	SetTarget(v float64)
	Target() float64
	// State returns the current position for telemetry.
	State() float64
	IsBusy() bool
	Preset(name string) error
	HasPreset(name string) bool
}

// Updater is implemented by mechanisms that must be stepped once per tick.
type Updater interface {
	Update()
}

// Faulter is implemented by mechanisms that report hardware errors.
type Faulter interface {
	Fault() error
}

// Actuator sends a setpoint to a hardware channel.
type Actuator interface {
	Command(channel int, value float64) error
}

// PresetError names the mechanism a preset lookup failed on.
type PresetError struct {
	Mechanism string
	Preset    string
}

func (e *PresetError) Error() string {
	return fmt.Sprintf("mechanism %s: unknown preset %q", e.Mechanism, e.Preset)
}

func (e *PresetError) Unwrap() error { return ErrUnknownPreset }
