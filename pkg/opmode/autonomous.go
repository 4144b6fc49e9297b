package opmode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/apexftc/go-auton/pkg/auto"
	"github.com/apexftc/go-auton/pkg/geom"
	"github.com/apexftc/go-auton/pkg/mechanism"
	"github.com/apexftc/go-auton/pkg/telemetry"
)

// Autonomous runs one routine through the sequencer.
type Autonomous struct {
	routine auto.Routine
	hw      Hardware
	in      Instruments
	tel     *telemetry.Telemetry
	logger  zerolog.Logger

	seq *auto.Sequencer

	mu     sync.RWMutex
	status auto.Status
}

// NewAutonomous prepares an autonomous opmode. Nothing is touched until
// Init.
func NewAutonomous(r auto.Routine, hw Hardware, in Instruments) *Autonomous {
	return &Autonomous{
		routine: r,
		hw:      hw,
		in:      in,
		tel:     in.telemetry(hw.clock()),
		logger:  in.Logger.With().Str("routine", r.Name).Logger(),
	}
}

// Name implements OpMode.
func (a *Autonomous) Name() string { return "autonomous" }

// Init checks the hardware, builds the sequencer and enters the
// routine's initial step.
func (a *Autonomous) Init(context.Context) error {
	if err := a.hw.Require(PartFollower, PartMechanisms); err != nil {
		return err
	}
	seq, err := auto.New(a.routine, auto.Deps{
		Follower:   a.hw.Follower,
		Mechanisms: a.hw.Mechanisms,
		Clock:      a.hw.clock(),
		Logger:     a.logger,
		Observers:  a.in.Observers,
	})
	if err != nil {
		return err
	}
	a.seq = seq
	seq.Init()
	a.hw.Mechanisms.Update()
	a.report()
	return nil
}

// InitLoop keeps the mechanisms at their init targets until start.
func (a *Autonomous) InitLoop(context.Context) error {
	a.hw.Mechanisms.Update()
	a.report()
	return nil
}

// Start starts the routine.
func (a *Autonomous) Start(context.Context) error {
	return a.seq.Start()
}

// Loop updates the follower and mechanisms, then advances the routine.
func (a *Autonomous) Loop(context.Context) error {
	a.hw.Follower.Update()
	a.hw.Mechanisms.Update()
	a.seq.Advance()
	a.report()
	return nil
}

// Stop abandons the active path, zeroes every powered mechanism and halts
// the drivetrain. It is safe from any state, including a failed Init.
func (a *Autonomous) Stop(context.Context) error {
	var errs []error
	if a.hw.Follower != nil {
		a.hw.Follower.BreakFollowing()
	}
	if a.hw.Mechanisms != nil {
		if err := a.hw.Mechanisms.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop mechanisms: %w", err))
		}
	}
	if a.hw.Drivetrain != nil {
		if err := a.hw.Drivetrain.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop drivetrain: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Finished reports whether the routine reached its terminal step.
func (a *Autonomous) Finished() bool {
	return a.seq != nil && a.seq.Done()
}

// Status returns the status captured on the last tick. It is safe to call
// from any goroutine.
func (a *Autonomous) Status() auto.Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

func (a *Autonomous) report() {
	st := a.seq.Status()
	a.mu.Lock()
	a.status = st
	a.mu.Unlock()

	pose := a.hw.Follower.Pose()
	a.tel.AddData("routine", st.Routine)
	a.tel.AddData("state", string(st.State))
	a.tel.AddData("action_time", st.ActionElapsed)
	a.tel.AddData("path_time", st.PathElapsed)
	a.tel.AddData("opmode_time", st.OpModeElapsed)
	a.tel.AddData("x", pose.X)
	a.tel.AddData("y", pose.Y)
	a.tel.AddData("heading", geom.Degrees(pose.Heading))
	a.tel.AddData("follower_busy", a.hw.Follower.IsBusy())
	if len(st.Waiting) > 0 {
		a.tel.AddData("waiting", strings.Join(st.Waiting, ","))
	}
	snap := a.hw.Mechanisms.Snapshot()
	for _, name := range a.hw.Mechanisms.Names() {
		a.tel.AddData(name, snap[name])
	}
	if m, err := a.hw.Mechanisms.Get(mechanism.Claw); err == nil {
		if c, ok := m.(*mechanism.ClawMechanism); ok {
			a.tel.AddData("claw_wrist", c.Wrist())
			a.tel.AddLine(c.Describe())
		}
	}
	faults := a.hw.Mechanisms.Faults()
	for _, name := range a.hw.Mechanisms.Names() {
		if err, ok := faults[name]; ok {
			a.tel.AddData("fault "+name, err.Error())
		}
	}
	reportVoltage(a.hw, a.in, a.tel)
	a.tel.Update()
}
