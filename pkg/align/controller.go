// Package align drives the robot to a fixed offset from a fiducial tag.
//
// The controller is a single-tick proportional controller: no integral or
// derivative term and no state between calls. Everything it needs arrives
// as arguments, so Compute is a pure function.
package align

import (
	"math"

	"github.com/apexftc/go-auton/pkg/drive"
	"github.com/apexftc/go-auton/pkg/vision"
)

// Status explains why a command was produced.
type Status int

const (
	// NoTarget means the tag was not detected; the command is a stop.
	NoTarget Status = iota
	// Unresolved means the tag was seen without a pose; the command is a stop.
	Unresolved
	// Holding means the errors are inside the deadband; the command is a stop.
	Holding
	// Driving means the mixed command is being applied.
	Driving
)

func (s Status) String() string {
	switch s {
	case NoTarget:
		return "no_target"
	case Unresolved:
		return "unresolved"
	case Holding:
		return "holding"
	case Driving:
		return "driving"
	default:
		return "unknown"
	}
}

// Command is the output of one control tick.
type Command struct {
	Status Status
	// Errors are the raw errors: forward = z - target, strafe = -x, turn = yaw.
	Errors Axes
	// Axis are the gained and clamped axis powers before mixing.
	Axis   Axes
	Powers drive.WheelPowers
}

// Compute runs one tick of the controller against the detections seen
// this tick.
func Compute(dets vision.Detections, cfg Config) Command {
	d, ok := dets.ByID(cfg.TargetID)
	if !ok {
		return Command{Status: NoTarget}
	}
	if !d.Resolved() {
		return Command{Status: Unresolved}
	}

	// +x means the tag is to the right, so the correction is leftward.
	errs := Axes{
		Forward: d.Pose.Z - cfg.TargetDistance,
		Strafe:  -d.Pose.X,
		Turn:    d.Pose.Yaw,
	}
	axis := Axes{
		Forward: clamp(errs.Forward*cfg.Gains.Forward, cfg.Limits.Forward),
		Strafe:  clamp(errs.Strafe*cfg.Gains.Strafe, cfg.Limits.Strafe),
		Turn:    clamp(errs.Turn*cfg.Gains.Turn, cfg.Limits.Turn),
	}
	cmd := Command{Errors: errs, Axis: axis}

	if inDeadband(errs, cfg.Deadband) {
		cmd.Status = Holding
		return cmd
	}
	cmd.Status = Driving
	// Axis limits can sum past full power on a diagonal wheel.
	cmd.Powers = drive.Mix(axis.Forward, axis.Strafe, axis.Turn).Clamp()
	return cmd
}

// ComputeDriveCommand returns wheel powers for the target tag using the
// default deadband.
func ComputeDriveCommand(dets vision.Detections, targetID int, targetDistance float64, gains, limits Axes) drive.WheelPowers {
	return Compute(dets, Config{
		TargetID:       targetID,
		TargetDistance: targetDistance,
		Gains:          gains,
		Limits:         limits,
		Deadband:       DefaultDeadband(),
	}).Powers
}

func inDeadband(errs, band Axes) bool {
	return math.Abs(errs.Forward) < band.Forward &&
		math.Abs(errs.Strafe) < band.Strafe &&
		math.Abs(errs.Turn) < band.Turn
}

// clamp limits v to [-limit, limit].
func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
