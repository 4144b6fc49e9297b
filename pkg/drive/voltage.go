package drive

import "math"

// Voltage compensation defaults.
const (
	DefaultNominalVoltage = 12.0
	DefaultMaxMultiplier  = 1.4
)

// VoltageSensor reports battery voltage.
type VoltageSensor interface {
	Voltage() (float64, error)
}

// Compensator scales motor power so a draining battery delivers the same
// effective power it did at the nominal voltage.
type Compensator struct {
	Enabled       bool
	Nominal       float64
	MaxMultiplier float64
}

// DefaultCompensator returns an enabled compensator tuned at 12 V.
func DefaultCompensator() Compensator {
	return Compensator{Enabled: true, Nominal: DefaultNominalVoltage, MaxMultiplier: DefaultMaxMultiplier}
}

// Multiplier returns nominal/volts capped at MaxMultiplier, or 1 when
// disabled or the reading is not positive.
func (c Compensator) Multiplier(volts float64) float64 {
	if !c.Enabled || volts <= 0 {
		return 1
	}
	return math.Min(c.Nominal/volts, c.MaxMultiplier)
}

// Compensate scales one power and clamps it to [-1, 1]. Disabled or a bad
// reading passes the power through untouched.
func (c Compensator) Compensate(power, volts float64) float64 {
	if !c.Enabled || volts <= 0 {
		return power
	}
	return clampUnit(power * c.Multiplier(volts))
}

// CompensatePowers applies Compensate to all four wheels.
func (c Compensator) CompensatePowers(p WheelPowers, volts float64) WheelPowers {
	return WheelPowers{
		FrontLeft:  c.Compensate(p.FrontLeft, volts),
		FrontRight: c.Compensate(p.FrontRight, volts),
		BackLeft:   c.Compensate(p.BackLeft, volts),
		BackRight:  c.Compensate(p.BackRight, volts),
	}
}

// Compensated wraps a drivetrain with voltage compensation.
type Compensated struct {
	Drivetrain
	Sensor      VoltageSensor
	Compensator Compensator
}

// NewCompensated wraps inner. A nil sensor disables compensation.
func NewCompensated(inner Drivetrain, sensor VoltageSensor, c Compensator) *Compensated {
	return &Compensated{Drivetrain: inner, Sensor: sensor, Compensator: c}
}

// SetPowers compensates p against the latest voltage reading. A sensor
// error falls back to uncompensated power.
func (d *Compensated) SetPowers(p WheelPowers) error {
	if d.Sensor == nil {
		return d.Drivetrain.SetPowers(p)
	}
	volts, err := d.Sensor.Voltage()
	if err != nil {
		volts = 0
	}
	return d.Drivetrain.SetPowers(d.Compensator.CompensatePowers(p, volts))
}
