// Package opmode runs robot programs through the init, start, loop and
// stop lifecycle at a fixed rate.
package opmode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/apexftc/go-auton/pkg/auto"
	"github.com/apexftc/go-auton/pkg/drive"
	"github.com/apexftc/go-auton/pkg/mechanism"
	"github.com/apexftc/go-auton/pkg/metrics"
	"github.com/apexftc/go-auton/pkg/path"
	"github.com/apexftc/go-auton/pkg/telemetry"
	"github.com/apexftc/go-auton/pkg/timer"
	"github.com/apexftc/go-auton/pkg/vision"
)

// ErrMissingHardware is returned by Init when a required part is absent.
var ErrMissingHardware = errors.New("opmode: missing hardware")

// OpMode is a robot program. Every method runs on the loop goroutine.
// Stop is called exactly once, whatever state the opmode reached.
type OpMode interface {
	Name() string
	Init(ctx context.Context) error
	InitLoop(ctx context.Context) error
	Start(ctx context.Context) error
	Loop(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Finisher is implemented by opmodes that can complete on their own.
type Finisher interface {
	Finished() bool
}

// Part names a piece of hardware an opmode may require.
type Part string

// Hardware parts.
const (
	PartFollower   Part = "follower"
	PartMechanisms Part = "mechanisms"
	PartDrivetrain Part = "drivetrain"
	PartVision     Part = "vision"
	PartVoltage    Part = "voltage"
)

// Hardware is the explicit set of facades handed to an opmode. Optional
// parts may be nil; Require checks the ones an opmode needs before it
// touches anything.
type Hardware struct {
	Follower   path.Follower
	Mechanisms *mechanism.Set
	Drivetrain drive.Drivetrain
	Vision     vision.Source
	Voltage    drive.VoltageSensor
	Clock      timer.Clock
}

// Require returns ErrMissingHardware naming every absent part.
func (h Hardware) Require(parts ...Part) error {
	var missing []error
	for _, p := range parts {
		present := true
		switch p {
		case PartFollower:
			present = h.Follower != nil
		case PartMechanisms:
			present = h.Mechanisms != nil
		case PartDrivetrain:
			present = h.Drivetrain != nil
		case PartVision:
			present = h.Vision != nil
		case PartVoltage:
			present = h.Voltage != nil
		}
		if !present {
			missing = append(missing, fmt.Errorf("%w: %s", ErrMissingHardware, p))
		}
	}
	return errors.Join(missing...)
}

func (h Hardware) clock() timer.Clock {
	if h.Clock == nil {
		return timer.RealClock{}
	}
	return h.Clock
}

// Instruments are the observability hooks shared by opmodes. Every field
// is optional.
type Instruments struct {
	Telemetry *telemetry.Telemetry
	Metrics   *metrics.Metrics
	Observers []auto.Observer
	Logger    zerolog.Logger
}

func (in Instruments) telemetry(clock timer.Clock) *telemetry.Telemetry {
	if in.Telemetry != nil {
		return in.Telemetry
	}
	return telemetry.New(clock, in.Logger)
}

// reportVoltage adds the battery line when a sensor is present.
func reportVoltage(hw Hardware, in Instruments, tel *telemetry.Telemetry) {
	if hw.Voltage == nil {
		return
	}
	v, err := hw.Voltage.Voltage()
	if err != nil {
		tel.AddData("battery", "unknown")
		return
	}
	tel.AddData("battery", v)
	if in.Metrics != nil {
		in.Metrics.SetVoltage(v)
	}
}
