package auto

import (
	"fmt"
	"sort"
	"time"

	"github.com/apexftc/go-auton/pkg/mechanism"
)

// Validate checks a routine table before a run. It rejects dangling step
// references, unbuildable paths (including untuned placeholder poses),
// misordered cues and tables that can never finish. When mechs is non-nil
// every mechanism and preset the table uses must exist in it.
func Validate(r Routine, mechs *mechanism.Set) error {
	fail := func(step State, err error) error {
		return &TableError{Routine: r.Name, Step: step, Err: err}
	}

	if len(r.Steps) == 0 {
		return fail("", ErrEmptyRoutine)
	}

	ids := make(map[State]bool, len(r.Steps))
	for _, s := range r.Steps {
		if ids[s.ID] {
			return fail(s.ID, ErrDuplicateStep)
		}
		ids[s.ID] = true
	}
	if !ids[r.Initial] {
		return fail("", fmt.Errorf("%w: initial %q", ErrUnknownStep, r.Initial))
	}
	if !ids[r.Start] {
		return fail("", fmt.Errorf("%w: start %q", ErrUnknownStep, r.Start))
	}

	// Paths in sorted order so the first failure is stable.
	names := make([]string, 0, len(r.Paths))
	for name := range r.Paths {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := r.Paths[name].Validate(); err != nil {
			return fail("", fmt.Errorf("%w %s: %w", ErrInvalidPath, name, err))
		}
	}

	terminal := false
	for _, s := range r.Steps {
		if s.Gate == GateTerminal {
			if s.ID != r.Initial {
				terminal = true
			}
		} else if !ids[s.Next] {
			return fail(s.ID, fmt.Errorf("%w: next %q", ErrUnknownStep, s.Next))
		}

		for _, w := range s.WaitFor {
			if w == FollowerSource {
				continue
			}
			if mechs != nil && !mechs.Has(w) {
				return fail(s.ID, fmt.Errorf("%w: waits for %s", ErrUnknownMechanism, w))
			}
		}

		for _, a := range s.allActions() {
			if err := validateAction(a, r, mechs); err != nil {
				return fail(s.ID, err)
			}
		}

		if s.Gate == GateTimed {
			if err := validateCues(s); err != nil {
				return fail(s.ID, err)
			}
		}
	}
	if !terminal {
		return fail("", ErrNoTerminal)
	}
	return nil
}

func validateAction(a Action, r Routine, mechs *mechanism.Set) error {
	switch a.Kind {
	case ActFollowPath:
		if _, ok := r.Paths[a.Path]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPath, a.Path)
		}
	case ActPreset, ActSetTarget:
		if mechs == nil {
			return nil
		}
		m, err := mechs.Get(a.Mechanism)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrUnknownMechanism, a.Mechanism)
		}
		if a.Kind == ActPreset && !m.HasPreset(a.Preset) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownPreset, a.Mechanism, a.Preset)
		}
	}
	return nil
}

func validateCues(s Step) error {
	if s.After <= 0 {
		return fmt.Errorf("%w: after must be positive", ErrCueOrder)
	}
	prev := time.Duration(-1)
	for i, c := range s.Cues {
		if c.At <= prev || c.At > s.After {
			return fmt.Errorf("%w: cue %d at %v", ErrCueOrder, i, c.At)
		}
		prev = c.At
	}
	return nil
}
