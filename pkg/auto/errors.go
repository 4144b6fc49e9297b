package auto

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyRoutine is returned for a routine without steps.
	ErrEmptyRoutine = errors.New("auto: routine has no steps")

	// ErrDuplicateStep is returned when two steps share an id.
	ErrDuplicateStep = errors.New("auto: duplicate step")

	// ErrUnknownStep is returned for a reference to a step that does not exist.
	ErrUnknownStep = errors.New("auto: unknown step")

	// ErrUnknownPath is returned when an action names a path the routine does not build.
	ErrUnknownPath = errors.New("auto: unknown path")

	// ErrInvalidPath wraps a path validation failure.
	ErrInvalidPath = errors.New("auto: invalid path")

	// ErrUnknownMechanism is returned when an action or gate names an unregistered mechanism.
	ErrUnknownMechanism = errors.New("auto: unknown mechanism")

	// ErrUnknownPreset is returned when a preset action names an undefined preset.
	ErrUnknownPreset = errors.New("auto: unknown preset")

	// ErrCueOrder is returned when cue thresholds are not increasing or exceed the step's After.
	ErrCueOrder = errors.New("auto: cue thresholds must increase and not exceed the transition threshold")

	// ErrNoTerminal is returned when no step ends the routine.
	ErrNoTerminal = errors.New("auto: routine has no terminal step")

	// ErrMissingFacade is returned when the sequencer is built without a follower or mechanisms.
	ErrMissingFacade = errors.New("auto: missing facade")

	// ErrNotInitialized is returned by Start before Init.
	ErrNotInitialized = errors.New("auto: sequencer not initialized")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("auto: sequencer already started")
)

// TableError locates a validation failure in a routine table.
type TableError struct {
	Routine string
	Step    State
	Err     error
}

func (e *TableError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("routine %s: %v", e.Routine, e.Err)
	}
	return fmt.Sprintf("routine %s, step %s: %v", e.Routine, e.Step, e.Err)
}

func (e *TableError) Unwrap() error { return e.Err }
