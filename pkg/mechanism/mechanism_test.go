package mechanism

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexftc/go-auton/internal/config"
	"github.com/apexftc/go-auton/pkg/timer"
)

type recordingActuator struct {
	calls map[int][]float64
	err   error
}

func (a *recordingActuator) Command(ch int, v float64) error {
	if a.calls == nil {
		a.calls = make(map[int][]float64)
	}
	a.calls[ch] = append(a.calls[ch], v)
	return a.err
}

func TestPositional_TravelsAtRate(t *testing.T) {
	clock := timer.NewManualClock()
	slides := NewPositional(PositionalConfig{Name: Slides, Rate: 1000, Tolerance: 10}, clock, nil)
	assert.False(t, slides.IsBusy())

	slides.SetTarget(1300)
	assert.True(t, slides.IsBusy(), "busy as soon as the target moves")

	clock.Advance(time.Second)
	slides.Update()
	assert.InDelta(t, 1000.0, slides.State(), 1e-9)
	assert.True(t, slides.IsBusy())

	clock.Advance(time.Second)
	slides.Update()
	assert.InDelta(t, 1300.0, slides.State(), 1e-9)
	assert.False(t, slides.IsBusy())
}

func TestPositional_InstantWithoutRate(t *testing.T) {
	clock := timer.NewManualClock()
	intake := NewPositional(PositionalConfig{Name: Intake, Presets: map[string]float64{IntakeCollect: 0.9}}, clock, nil)
	require.NoError(t, intake.Preset(IntakeCollect))
	intake.Update()
	assert.InDelta(t, 0.9, intake.State(), 1e-9)
	assert.False(t, intake.IsBusy())
}

func TestPositional_PresetIsIdempotent(t *testing.T) {
	clock := timer.NewManualClock()
	arm := NewPositional(PositionalConfig{Name: Arm, Presets: map[string]float64{ArmBack: 0.85}}, clock, nil)

	require.NoError(t, arm.Preset(ArmBack))
	first := arm.Target()
	require.NoError(t, arm.Preset(ArmBack))
	assert.Equal(t, first, arm.Target())
}

func TestPositional_UnknownPreset(t *testing.T) {
	arm := NewPositional(PositionalConfig{Name: Arm}, timer.NewManualClock(), nil)
	err := arm.Preset("nope")
	assert.ErrorIs(t, err, ErrUnknownPreset)

	var pe *PresetError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, Arm, pe.Mechanism)
}

func TestPositional_ActuatorFaultKeepsBusy(t *testing.T) {
	act := &recordingActuator{err: errors.New("link down")}
	arm := NewPositional(PositionalConfig{Name: Arm, Channel: 3}, timer.NewManualClock(), act)

	arm.SetTarget(0.3)
	arm.Update()
	assert.InDelta(t, 0.3, arm.State(), 1e-9)
	assert.True(t, arm.IsBusy(), "a failing actuator must read as busy")
	assert.Equal(t, []float64{0.3}, act.calls[3])

	act.err = nil
	arm.Update()
	assert.False(t, arm.IsBusy())
}

func TestClaw_PresetsRouteToServo(t *testing.T) {
	clock := timer.NewManualClock()
	set, err := Standard(config.DefaultHardwareMap(), clock, nil)
	require.NoError(t, err)

	m, err := set.Get(Claw)
	require.NoError(t, err)
	claw := m.(*ClawMechanism)

	require.NoError(t, claw.Preset(ClawClosed))
	require.NoError(t, claw.Preset(ClawRotated))
	assert.True(t, claw.IsBusy())

	clock.Advance(time.Second)
	set.Update()
	assert.False(t, claw.IsBusy())
	assert.InDelta(t, GripClosed, claw.State(), 1e-9)
	assert.InDelta(t, WristRotated, claw.Wrist(), 1e-9)
	assert.Equal(t, "Claw: closed, rotated", claw.Describe())

	assert.ErrorIs(t, claw.Preset(ArmBack), ErrUnknownPreset)
}

func TestSet_StandardNames(t *testing.T) {
	set, err := Standard(config.DefaultHardwareMap(), timer.NewManualClock(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{Arm, Claw, HSlides, Intake, Outtake, Slides, Spindexer, Transfer}, set.Names())
	assert.NoError(t, set.Require(Claw, Slides, Arm, HSlides))
	assert.ErrorIs(t, set.Require("turret"), ErrUnknownMechanism)
}

func TestSet_StandardMissingMapping(t *testing.T) {
	hm := config.DefaultHardwareMap()
	delete(hm.Mechanisms, "hslides")
	_, err := Standard(hm, timer.NewManualClock(), nil)
	assert.ErrorIs(t, err, config.ErrMissingMapping)
}

func TestSet_BusyTreatsUnknownAsBusy(t *testing.T) {
	set := NewSet()
	require.NoError(t, set.Register(NewPositional(PositionalConfig{Name: Arm}, timer.NewManualClock(), nil)))
	assert.False(t, set.Busy(Arm))
	assert.True(t, set.Busy(Arm, "ghost"))
	assert.ErrorIs(t, set.Register(NewPositional(PositionalConfig{Name: Arm}, nil, nil)), ErrDuplicateMechanism)
}

func TestSet_Snapshot(t *testing.T) {
	set, err := Standard(config.DefaultHardwareMap(), timer.NewManualClock(), nil)
	require.NoError(t, err)
	snap := set.Snapshot()
	assert.Len(t, snap, 8)
	assert.InDelta(t, 0.5, snap[Arm], 1e-9)
	assert.InDelta(t, TransferRestPosition, snap[Transfer], 1e-9)
}

func TestSet_StopZeroesPoweredMechanisms(t *testing.T) {
	clock := timer.NewManualClock()
	act := &recordingActuator{}
	hm := config.DefaultHardwareMap()
	set, err := Standard(hm, clock, act)
	require.NoError(t, err)

	intake, _ := set.Get(Intake)
	outtake, _ := set.Get(Outtake)
	slides, _ := set.Get(Slides)
	require.NoError(t, intake.Preset(IntakeCollect))
	require.NoError(t, outtake.Preset(OuttakeLaunch))
	slides.SetTarget(1300)

	require.NoError(t, set.Stop())
	assert.Zero(t, intake.Target())
	assert.Zero(t, outtake.Target())
	assert.Equal(t, 1300.0, slides.Target(), "positional mechanisms keep their setpoint")

	calls := act.calls[hm.Mechanisms[Intake].Channel]
	require.NotEmpty(t, calls)
	assert.Zero(t, calls[len(calls)-1], "stop is pushed to the hub")
}

func TestSpindexer_Slots(t *testing.T) {
	clock := timer.NewManualClock()
	set, err := Standard(config.DefaultHardwareMap(), clock, nil)
	require.NoError(t, err)
	spin, _ := set.Get(Spindexer)

	assert.False(t, spin.HasPreset(Stop))
	require.NoError(t, spin.Preset(SpindexerSlot(1)))
	assert.True(t, spin.IsBusy())

	clock.Advance(300 * time.Millisecond)
	set.Update()
	assert.False(t, spin.IsBusy(), "one slot turns within the advance window")
	assert.InDelta(t, 60.0, spin.State(), 1e-9)
	assert.ErrorIs(t, spin.Preset(SpindexerSlot(4)), ErrUnknownPreset)
}

func TestSet_Faults(t *testing.T) {
	act := &recordingActuator{err: errors.New("link down")}
	set, err := Standard(config.DefaultHardwareMap(), timer.NewManualClock(), act)
	require.NoError(t, err)
	set.Update()

	faults := set.Faults()
	assert.Len(t, faults, 8)
	assert.ErrorContains(t, faults[Arm], "channel 3: link down")
	assert.ErrorContains(t, faults[Claw], "channel 1: link down")

	act.err = nil
	set.Update()
	assert.Empty(t, set.Faults())
}
