package opmode

import (
	"context"
	"sync"

	"github.com/apexftc/go-auton/pkg/align"
	"github.com/apexftc/go-auton/pkg/telemetry"
)

// Align servoes the drivetrain to a fixed offset from a fiducial tag.
// Each tick polls vision, computes one command with the current tuning
// and applies it.
type Align struct {
	hw   Hardware
	in   Instruments
	tune *align.Tunable
	tel  *telemetry.Telemetry

	mu   sync.RWMutex
	last align.Command
}

// NewAlign prepares an alignment opmode. tune may be shared with the
// dashboard.
func NewAlign(tune *align.Tunable, hw Hardware, in Instruments) *Align {
	return &Align{hw: hw, in: in, tune: tune, tel: in.telemetry(hw.clock())}
}

// Name implements OpMode.
func (a *Align) Name() string { return "align" }

// Init checks that vision and the drivetrain are present.
func (a *Align) Init(context.Context) error {
	return a.hw.Require(PartVision, PartDrivetrain)
}

// InitLoop shows what the camera sees without moving.
func (a *Align) InitLoop(ctx context.Context) error {
	err := a.hw.Vision.Update(ctx)
	cmd := align.Compute(a.hw.Vision.Detections(), a.tune.Snapshot())
	a.report(cmd)
	return err
}

// Start implements OpMode.
func (a *Align) Start(context.Context) error { return nil }

// Loop runs one controller tick. A vision failure leaves no detections,
// which the controller turns into a stop command; the error is still
// returned for the runner to count.
func (a *Align) Loop(ctx context.Context) error {
	verr := a.hw.Vision.Update(ctx)
	cmd := align.Compute(a.hw.Vision.Detections(), a.tune.Snapshot())
	derr := a.hw.Drivetrain.SetPowers(cmd.Powers)
	a.report(cmd)
	if a.in.Metrics != nil {
		a.in.Metrics.ObserveAlign(cmd)
	}
	if verr != nil {
		return verr
	}
	return derr
}

// Stop halts the drivetrain and ends the vision session.
func (a *Align) Stop(context.Context) error {
	var err error
	if a.hw.Drivetrain != nil {
		err = a.hw.Drivetrain.Stop()
	}
	if a.hw.Vision != nil {
		if cerr := a.hw.Vision.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Last returns the most recent command. It is safe to call from any
// goroutine.
func (a *Align) Last() align.Command {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

func (a *Align) report(cmd align.Command) {
	a.mu.Lock()
	a.last = cmd
	a.mu.Unlock()

	a.tel.AddData("status", cmd.Status)
	a.tel.AddData("forward_error", cmd.Errors.Forward)
	a.tel.AddData("strafe_error", cmd.Errors.Strafe)
	a.tel.AddData("turn_error", cmd.Errors.Turn)
	a.tel.AddData("forward", cmd.Axis.Forward)
	a.tel.AddData("strafe", cmd.Axis.Strafe)
	a.tel.AddData("turn", cmd.Axis.Turn)
	a.tel.AddData("powers", cmd.Powers)
	reportVoltage(a.hw, a.in, a.tel)
	a.tel.Update()
}
