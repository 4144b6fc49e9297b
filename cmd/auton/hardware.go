package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/apexftc/go-auton/internal/config"
	"github.com/apexftc/go-auton/internal/log"
	"github.com/apexftc/go-auton/pkg/drive"
	"github.com/apexftc/go-auton/pkg/hw"
	"github.com/apexftc/go-auton/pkg/mechanism"
	"github.com/apexftc/go-auton/pkg/opmode"
	"github.com/apexftc/go-auton/pkg/path"
	"github.com/apexftc/go-auton/pkg/timer"
)

// rig is the hardware for one command plus its cleanup.
type rig struct {
	hw     opmode.Hardware
	bridge *hw.Bridge
	cancel context.CancelFunc
}

func (r *rig) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	if r.bridge != nil {
		return r.bridge.Close()
	}
	return nil
}

// buildRig wires the facades. With sim set, nothing outside the process
// is touched. Otherwise the serial bridge drives the mechanisms and the
// drivetrain. The path follower is always simulated.
func buildRig(hm config.HardwareMap, sim bool, simSpeed float64) (*rig, error) {
	clock := timer.RealClock{}
	r := &rig{}

	var act mechanism.Actuator
	if sim {
		r.hw.Drivetrain = drive.NewSimDrivetrain()
	} else {
		port, err := hw.Open(hm.Serial)
		if err != nil {
			return nil, err
		}
		r.bridge = hw.NewBridge(port, clock, log.Component("hw"))

		ctx, cancel := context.WithCancel(context.Background())
		r.cancel = cancel
		go func() {
			if err := r.bridge.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("hub link lost")
			}
		}()

		act = r.bridge
		r.hw.Voltage = r.bridge
		r.hw.Drivetrain = drive.NewCompensated(r.bridge, r.bridge, compensator(hm.Drive))
	}

	mechs, err := mechanism.Standard(hm, clock, act)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("mechanisms: %w", err)
	}
	r.hw.Mechanisms = mechs
	r.hw.Follower = path.NewSimFollower(clock, simSpeed)
	r.hw.Clock = clock
	return r, nil
}

func compensator(dc config.DriveConfig) drive.Compensator {
	c := drive.DefaultCompensator()
	c.Enabled = dc.VoltageCompensation
	if dc.NominalVoltage > 0 {
		c.Nominal = dc.NominalVoltage
	}
	if dc.MaxMultiplier > 0 {
		c.MaxMultiplier = dc.MaxMultiplier
	}
	return c
}
