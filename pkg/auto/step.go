package auto

import (
	"fmt"
	"time"

	"github.com/apexftc/go-auton/pkg/geom"
	"github.com/apexftc/go-auton/pkg/path"
)

// State names one step of a routine.
type State string

// Common state names.
const (
	StateInit  State = "INIT"
	StateStart State = "START"
	StateIdle  State = "IDLE"
)

// FollowerSource is the busy source name of the path follower in WaitFor.
const FollowerSource = "follower"

// ActionKind selects what an Action does.
type ActionKind int

const (
	// ActFollowPath starts a named path chain.
	ActFollowPath ActionKind = iota
	// ActPreset sets a mechanism to a named preset.
	ActPreset
	// ActSetTarget sets a mechanism to a raw target value.
	ActSetTarget
)

// Action is a fire-and-forget command. Every action is an idempotent
// "set target" call, so issuing it on several ticks is harmless.
type Action struct {
	Kind      ActionKind
	Path      string
	HoldEnd   bool
	Mechanism string
	Preset    string
	Value     float64
}

// FollowPath starts the named chain.
func FollowPath(name string, holdEnd bool) Action {
	return Action{Kind: ActFollowPath, Path: name, HoldEnd: holdEnd}
}

// Preset sets mechanism to the named preset.
func Preset(mechanism, preset string) Action {
	return Action{Kind: ActPreset, Mechanism: mechanism, Preset: preset}
}

// SetTarget sets mechanism to a raw value.
func SetTarget(mechanism string, v float64) Action {
	return Action{Kind: ActSetTarget, Mechanism: mechanism, Value: v}
}

func (a Action) String() string {
	switch a.Kind {
	case ActFollowPath:
		return fmt.Sprintf("follow(%s, hold=%t)", a.Path, a.HoldEnd)
	case ActPreset:
		return fmt.Sprintf("%s.preset(%s)", a.Mechanism, a.Preset)
	case ActSetTarget:
		return fmt.Sprintf("%s.target(%g)", a.Mechanism, a.Value)
	default:
		return fmt.Sprintf("Action(%d)", int(a.Kind))
	}
}

// GateKind is the shape of a step's advance condition.
type GateKind int

const (
	// GateImmediate advances on the first tick.
	GateImmediate GateKind = iota
	// GateBusy advances on the first tick none of WaitFor is busy.
	GateBusy
	// GateTimed waits for WaitFor, then re-issues Hold and fires every
	// Cue whose threshold the action timer has reached, each tick, and
	// advances once the action timer reaches After.
	GateTimed
	// GateTerminal never advances.
	GateTerminal
)

func (g GateKind) String() string {
	switch g {
	case GateImmediate:
		return "immediate"
	case GateBusy:
		return "busy"
	case GateTimed:
		return "timed"
	case GateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("GateKind(%d)", int(g))
	}
}

// Cue is a time-gated side effect inside a GateTimed step.
type Cue struct {
	At      time.Duration
	Actions []Action
}

// Step is one row of a routine table.
type Step struct {
	ID State
	// OnEnter fires once, on the tick the step is entered.
	OnEnter []Action
	Gate    GateKind
	// WaitFor lists busy sources: FollowerSource or mechanism names.
	WaitFor []string
	Hold    []Action
	Cues    []Cue
	After   time.Duration
	// Actions fire on the tick the gate is satisfied, just before the
	// transition to Next.
	Actions []Action
	Next    State
}

// Routine is a complete autonomous table: paths, steps and where to begin.
type Routine struct {
	Name        string
	Description string
	StartPose   geom.Pose
	Paths       map[string]path.Chain
	Steps       []Step
	// Initial is entered during Init; Start is entered on the start event.
	Initial State
	Start   State
}

// Step returns the step with the given id.
func (r Routine) Step(id State) (Step, bool) {
	for _, s := range r.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// Mechanisms returns every mechanism name the routine touches.
func (r Routine) Mechanisms() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if name != "" && name != FollowerSource && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, s := range r.Steps {
		for _, w := range s.WaitFor {
			add(w)
		}
		for _, a := range s.allActions() {
			add(a.Mechanism)
		}
	}
	return out
}

func (s Step) allActions() []Action {
	all := make([]Action, 0, len(s.OnEnter)+len(s.Hold)+len(s.Actions))
	all = append(all, s.OnEnter...)
	all = append(all, s.Hold...)
	for _, c := range s.Cues {
		all = append(all, c.Actions...)
	}
	return append(all, s.Actions...)
}
