package drive

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

func TestMix_ForwardOnlyIsUniform(t *testing.T) {
	w := Mix(0.3, 0, 0)
	for _, v := range []float64{w.FrontLeft, w.FrontRight, w.BackLeft, w.BackRight} {
		assert.Equal(t, 0.3, v)
	}
}

func TestMix_Identities(t *testing.T) {
	f, s, r := 0.2, -0.1, 0.05
	w := Mix(f, s, r)
	assert.InDelta(t, 2*f, w.FrontLeft+w.BackRight, tol)
	assert.InDelta(t, 2*f, w.FrontRight+w.BackLeft, tol)
	assert.InDelta(t, 2*s-2*r, w.FrontLeft-w.FrontRight, tol)
}

func TestMix_StrafeOnly(t *testing.T) {
	want := WheelPowers{FrontLeft: -0.04, FrontRight: 0.04, BackLeft: 0.04, BackRight: -0.04}
	if diff := cmp.Diff(want, Mix(0, -0.04, 0)); diff != "" {
		t.Errorf("Mix mismatch (-want +got):\n%s", diff)
	}
}

func TestWheelPowers_Clamp(t *testing.T) {
	w := WheelPowers{2, -1, 0.5, 0}
	assert.Equal(t, 2.0, w.Max())

	c := w.Clamp()
	assert.Equal(t, WheelPowers{1, -1, 0.5, 0}, c)
	assert.True(t, Zero.IsZero())
}

func TestCompensator(t *testing.T) {
	c := DefaultCompensator()

	assert.InDelta(t, 0.5*12.0/11.0, c.Compensate(0.5, 11), tol)
	// capped at 1.4x
	assert.InDelta(t, 0.5*1.4, c.Compensate(0.5, 6), tol)
	// clamped to unit range
	assert.Equal(t, 1.0, c.Compensate(0.9, 9))
	assert.Equal(t, -1.0, c.Compensate(-0.9, 9))
	// bad reading passes through
	assert.Equal(t, 0.9, c.Compensate(0.9, 0))
	assert.Equal(t, 1.0, c.Multiplier(-3))

	c.Enabled = false
	assert.Equal(t, 0.5, c.Compensate(0.5, 11))
	assert.Equal(t, 1.0, c.Multiplier(11))
}

type fixedSensor struct {
	volts float64
	err   error
}

func (s fixedSensor) Voltage() (float64, error) { return s.volts, s.err }

func TestCompensated_SetPowers(t *testing.T) {
	sim := NewSimDrivetrain()
	d := NewCompensated(sim, fixedSensor{volts: 10}, DefaultCompensator())

	require.NoError(t, d.SetPowers(WheelPowers{0.5, 0.5, -0.5, 0}))
	got := sim.Last()
	assert.InDelta(t, 0.6, got.FrontLeft, tol)
	assert.InDelta(t, -0.6, got.BackLeft, tol)
	assert.Equal(t, 0.0, got.BackRight)

	d.Sensor = fixedSensor{err: errors.New("no reading")}
	require.NoError(t, d.SetPowers(WheelPowers{0.5, 0, 0, 0}))
	assert.InDelta(t, 0.5, sim.Last().FrontLeft, tol)

	require.NoError(t, d.Stop())
	assert.True(t, sim.Last().IsZero())
	assert.Equal(t, 1, sim.Stops())
}
