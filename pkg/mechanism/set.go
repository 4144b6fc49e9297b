package mechanism

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/apexftc/go-auton/internal/config"
	"github.com/apexftc/go-auton/pkg/timer"
)

// Set is the explicit registry of a robot's mechanisms, keyed by logical
// name. It is built once at init and never looked up by hardware string.
type Set struct {
	byName map[string]Mechanism
	order  []string
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{byName: make(map[string]Mechanism)}
}

// Register adds m under its name.
func (s *Set) Register(m Mechanism) error {
	name := m.Name()
	if _, ok := s.byName[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateMechanism, name)
	}
	s.byName[name] = m
	s.order = append(s.order, name)
	sort.Strings(s.order)
	return nil
}

// Get returns the mechanism registered as name.
func (s *Set) Get(name string) (Mechanism, error) {
	m, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMechanism, name)
	}
	return m, nil
}

// Has reports whether name is registered.
func (s *Set) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Names returns the registered names in sorted order.
func (s *Set) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Require fails if any of names is not registered.
func (s *Set) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if !s.Has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownMechanism, strings.Join(missing, ", "))
	}
	return nil
}

// Update steps every mechanism that needs it.
func (s *Set) Update() {
	for _, name := range s.order {
		if u, ok := s.byName[name].(Updater); ok {
			u.Update()
		}
	}
}

// Busy reports whether any named mechanism is busy. Unknown names count
// as busy so a misconfigured gate stalls instead of advancing.
func (s *Set) Busy(names ...string) bool {
	for _, n := range names {
		m, ok := s.byName[n]
		if !ok || m.IsBusy() {
			return true
		}
	}
	return false
}

// Stop commands every powered mechanism to zero and pushes the new
// targets out with one Update.
func (s *Set) Stop() error {
	var errs []error
	for _, name := range s.order {
		m := s.byName[name]
		if !m.HasPreset(Stop) {
			continue
		}
		if err := m.Preset(Stop); err != nil {
			errs = append(errs, err)
		}
	}
	s.Update()
	return errors.Join(errs...)
}

// Faults returns the last hardware error of every faulted mechanism.
func (s *Set) Faults() map[string]error {
	out := make(map[string]error)
	for _, name := range s.order {
		f, ok := s.byName[name].(Faulter)
		if !ok {
			continue
		}
		if err := f.Fault(); err != nil {
			out[name] = err
		}
	}
	return out
}

// Snapshot returns the current state of every mechanism.
func (s *Set) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(s.order))
	for _, name := range s.order {
		out[name] = s.byName[name].State()
	}
	return out
}

// Standard builds the competition robot's mechanisms from a hardware map.
// The map must contain every channel the robot uses.
func Standard(hm config.HardwareMap, clock timer.Clock, act Actuator) (*Set, error) {
	required := []string{"claw_grip", "claw_wrist", Slides, Arm, HSlides, Intake, Transfer, Outtake, Spindexer}
	if err := hm.Validate(required...); err != nil {
		return nil, err
	}

	mk := func(key, name string, rate, tol, initial float64, presets map[string]float64) *Positional {
		mc := hm.Mechanisms[key]
		if mc.Rate > 0 {
			rate = mc.Rate
		}
		if mc.Tolerance > 0 {
			tol = mc.Tolerance
		}
		return NewPositional(PositionalConfig{
			Name:      name,
			Channel:   mc.Channel,
			Rate:      rate,
			Tolerance: tol,
			Initial:   initial,
			Presets:   presets,
		}, clock, act)
	}

	grip := mk("claw_grip", "claw_grip", 4, 0.01, GripOpen, map[string]float64{
		ClawOpen:   GripOpen,
		ClawClosed: GripClosed,
	})
	wrist := mk("claw_wrist", "claw_wrist", 3, 0.01, WristFlat, map[string]float64{
		ClawRotated:  WristRotated,
		ClawStraight: WristFlat,
	})

	set := NewSet()
	for _, m := range []Mechanism{
		NewClaw(grip, wrist),
		mk(Slides, Slides, 1800, 15, 0, map[string]float64{SlidesBase: 0}),
		mk(Arm, Arm, 2, 0.02, 0.5, map[string]float64{
			ArmBack:      0.85,
			ArmPrePickup: 0.30,
		}),
		mk(HSlides, HSlides, 2, 0.02, 0, map[string]float64{
			HSlidesRetracted: 0,
			HSlidesUnlatched: 0.35,
		}),
		mk(Intake, Intake, 0, 0, 0, map[string]float64{
			IntakeCollect: 0.9,
			IntakeEject:   -0.9,
			IntakeStop:    0,
		}),
		mk(Transfer, Transfer, 4, 0.01, TransferRestPosition, map[string]float64{
			TransferFeed: 0,
			TransferRest: TransferRestPosition,
		}),
		mk(Outtake, Outtake, 0, 0, 0, map[string]float64{
			OuttakeLaunch: 1.0,
			OuttakeStop:   0,
		}),
		mk(Spindexer, Spindexer, 600, 18, 0, map[string]float64{
			SpindexerSlot(1): 60,
			SpindexerSlot(2): 180,
			SpindexerSlot(3): 300,
		}),
	} {
		if err := set.Register(m); err != nil {
			return nil, err
		}
	}
	return set, nil
}
