// Package auto runs autonomous routines described as step tables.
//
// One generic Sequencer executes any Routine. Advance is called once per
// loop tick after the follower and mechanisms have been updated; it never
// blocks. All waiting is expressed as gates re-evaluated on the next tick.
// A gate that never opens stalls the routine in that step for the rest of
// the run: there is no timeout escalation.
package auto

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/apexftc/go-auton/pkg/mechanism"
	"github.com/apexftc/go-auton/pkg/path"
	"github.com/apexftc/go-auton/pkg/timer"
)

// errorLogInterval rate limits action failure logs.
const errorLogInterval = 5 * time.Second

// Transition records one accepted state change.
type Transition struct {
	Seq  int
	From State
	To   State
	// At is the opmode time of the transition.
	At time.Duration
}

// Observer is told about every transition. Observers must not block.
type Observer interface {
	OnTransition(t Transition)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Transition)

// OnTransition calls f.
func (f ObserverFunc) OnTransition(t Transition) { f(t) }

// Deps are the facades a sequencer drives.
type Deps struct {
	Follower   path.Follower
	Mechanisms *mechanism.Set
	Clock      timer.Clock
	Logger     zerolog.Logger
	Observers  []Observer
}

// Status is a read-only view of the sequencer for telemetry.
type Status struct {
	Routine       string   `json:"routine"`
	State         State    `json:"state"`
	Started       bool     `json:"started"`
	Done          bool     `json:"done"`
	Transitions   int      `json:"transitions"`
	ActionElapsed float64  `json:"action_elapsed"`
	PathElapsed   float64  `json:"path_elapsed"`
	OpModeElapsed float64  `json:"opmode_elapsed"`
	Waiting       []string `json:"waiting,omitempty"`
}

// Sequencer executes a Routine. It is owned by the loop goroutine and is
// not safe for concurrent use; other goroutines observe it through
// telemetry frames.
type Sequencer struct {
	routine Routine
	steps   map[State]Step
	deps    Deps
	logger  zerolog.Logger

	state       State
	initialized bool
	started     bool
	transitions int

	actionTimer *timer.Timer
	pathTimer   *timer.Timer
	opmodeTimer *timer.Timer

	lastErrorTime time.Time
}

// New validates r against deps and returns a sequencer ready for Init.
func New(r Routine, deps Deps) (*Sequencer, error) {
	if deps.Follower == nil {
		return nil, fmt.Errorf("%w: follower", ErrMissingFacade)
	}
	if deps.Mechanisms == nil {
		return nil, fmt.Errorf("%w: mechanisms", ErrMissingFacade)
	}
	if deps.Clock == nil {
		deps.Clock = timer.RealClock{}
	}
	if err := Validate(r, deps.Mechanisms); err != nil {
		return nil, err
	}

	steps := make(map[State]Step, len(r.Steps))
	for _, s := range r.Steps {
		steps[s.ID] = s
	}
	return &Sequencer{
		routine:     r,
		steps:       steps,
		deps:        deps,
		logger:      deps.Logger.With().Str("routine", r.Name).Logger(),
		actionTimer: timer.New(deps.Clock),
		pathTimer:   timer.New(deps.Clock),
		opmodeTimer: timer.New(deps.Clock),
	}, nil
}

// Init places the robot at the routine's start pose and enters the
// initial step.
func (s *Sequencer) Init() {
	s.deps.Follower.SetStartingPose(s.routine.StartPose)
	s.initialized = true
	s.transition(s.routine.Initial)
}

// Start is the lifecycle start event: it resets the opmode timer and
// enters the routine's start step.
func (s *Sequencer) Start() error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	s.opmodeTimer.Reset()
	s.transition(s.routine.Start)
	return nil
}

// Advance evaluates the current step's gate once.
func (s *Sequencer) Advance() {
	if !s.started {
		return
	}
	step := s.steps[s.state]

	switch step.Gate {
	case GateImmediate:
		s.fire(step.Actions)
		s.transition(step.Next)

	case GateBusy:
		if s.busy(step.WaitFor) {
			return
		}
		s.fire(step.Actions)
		s.transition(step.Next)

	case GateTimed:
		if s.busy(step.WaitFor) {
			return
		}
		s.fire(step.Hold)
		elapsed := s.actionTimer.Elapsed()
		for _, c := range step.Cues {
			if elapsed >= c.At {
				s.fire(c.Actions)
			}
		}
		if elapsed >= step.After {
			s.fire(step.Actions)
			s.transition(step.Next)
		}

	case GateTerminal:
	}
}

// transition is the only writer of state. Every transition resets the
// action timer.
func (s *Sequencer) transition(to State) {
	from := s.state
	s.state = to
	s.actionTimer.Reset()
	s.transitions++

	s.fire(s.steps[to].OnEnter)

	t := Transition{Seq: s.transitions, From: from, To: to, At: s.opmodeTimer.Elapsed()}
	s.logger.Debug().
		Str("from", string(from)).
		Str("to", string(to)).
		Dur("at", t.At).
		Msg("transition")
	for _, o := range s.deps.Observers {
		o.OnTransition(t)
	}
}

func (s *Sequencer) busy(sources []string) bool {
	for _, src := range sources {
		if src == FollowerSource {
			if s.deps.Follower == nil || s.deps.Follower.IsBusy() {
				return true
			}
			continue
		}
		if s.deps.Mechanisms.Busy(src) {
			return true
		}
	}
	return false
}

func (s *Sequencer) fire(actions []Action) {
	for _, a := range actions {
		if err := s.do(a); err != nil {
			s.logError(a, err)
		}
	}
}

func (s *Sequencer) do(a Action) error {
	switch a.Kind {
	case ActFollowPath:
		chain, ok := s.routine.Paths[a.Path]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPath, a.Path)
		}
		s.deps.Follower.FollowPath(chain, a.HoldEnd)
		s.pathTimer.Reset()
		return nil
	case ActPreset:
		m, err := s.deps.Mechanisms.Get(a.Mechanism)
		if err != nil {
			return err
		}
		return m.Preset(a.Preset)
	case ActSetTarget:
		m, err := s.deps.Mechanisms.Get(a.Mechanism)
		if err != nil {
			return err
		}
		m.SetTarget(a.Value)
		return nil
	default:
		return fmt.Errorf("auto: unknown action kind %d", a.Kind)
	}
}

func (s *Sequencer) logError(a Action, err error) {
	now := s.deps.Clock.Now()
	if now.Sub(s.lastErrorTime) < errorLogInterval {
		return
	}
	s.lastErrorTime = now
	s.logger.Error().Err(err).Str("state", string(s.state)).Str("action", a.String()).Msg("action failed")
}

// State returns the current step id.
func (s *Sequencer) State() State { return s.state }

// Started reports whether the start event has happened.
func (s *Sequencer) Started() bool { return s.started }

// Done reports whether the routine has reached a terminal step after start.
func (s *Sequencer) Done() bool {
	return s.started && s.steps[s.state].Gate == GateTerminal
}

// Routine returns the routine being run.
func (s *Sequencer) Routine() Routine { return s.routine }

// ActionElapsed returns time since the last transition.
func (s *Sequencer) ActionElapsed() time.Duration { return s.actionTimer.Elapsed() }

// PathElapsed returns time since the last path was started.
func (s *Sequencer) PathElapsed() time.Duration { return s.pathTimer.Elapsed() }

// OpModeElapsed returns time since Start.
func (s *Sequencer) OpModeElapsed() time.Duration { return s.opmodeTimer.Elapsed() }

// Status returns a snapshot including the busy sources the current gate
// is waiting on, so a stall is visible in telemetry.
func (s *Sequencer) Status() Status {
	st := Status{
		Routine:       s.routine.Name,
		State:         s.state,
		Started:       s.started,
		Done:          s.Done(),
		Transitions:   s.transitions,
		ActionElapsed: s.actionTimer.Seconds(),
		PathElapsed:   s.pathTimer.Seconds(),
		OpModeElapsed: s.opmodeTimer.Seconds(),
	}
	for _, src := range s.steps[s.state].WaitFor {
		if s.busy([]string{src}) {
			st.Waiting = append(st.Waiting, src)
		}
	}
	return st
}
