// Package routines holds the robot's autonomous routines as step tables.
//
// Every variant is built by a function from fresh field poses; the same
// generic sequencer runs all of them.
package routines

import (
	"errors"
	"fmt"
	"sort"

	"github.com/apexftc/go-auton/pkg/auto"
	"github.com/apexftc/go-auton/pkg/field"
	"github.com/apexftc/go-auton/pkg/mechanism"
)

// ErrUnknownRoutine is returned by Get for an unregistered name.
var ErrUnknownRoutine = errors.New("routines: unknown routine")

// builders maps routine names to constructors. Built lazily per call so
// callers always get their own tables.
var builders = func() map[string]func() auto.Routine {
	m := map[string]func() auto.Routine{
		"blue-right": func() auto.Routine { return SpecimenRoutine(field.Blue) },
		"red-right":  func() auto.Routine { return SpecimenRoutine(field.Red) },
	}
	for _, a := range []field.Alliance{field.Blue, field.Red} {
		for _, s := range []field.Start{field.Bottom, field.Top} {
			for _, rows := range []int{0, 1, 3} {
				a, s, rows := a, s, rows
				m[fmt.Sprintf("%s-%s-%d", a, s, rows)] = func() auto.Routine {
					return RowCycleRoutine(a, s, rows)
				}
			}
		}
	}
	return m
}()

// Names returns every registered routine name, sorted.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get builds the named routine.
func Get(name string) (auto.Routine, error) {
	b, ok := builders[name]
	if !ok {
		return auto.Routine{}, fmt.Errorf("%w: %s", ErrUnknownRoutine, name)
	}
	return b(), nil
}

// ValidateAll builds and validates every routine against mechs and
// returns the failures keyed by routine name.
func ValidateAll(mechs *mechanism.Set) map[string]error {
	failures := make(map[string]error)
	for _, name := range Names() {
		r, _ := Get(name)
		if err := auto.Validate(r, mechs); err != nil {
			failures[name] = err
		}
	}
	return failures
}
