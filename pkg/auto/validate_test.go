package auto

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexftc/go-auton/pkg/geom"
	"github.com/apexftc/go-auton/pkg/mechanism"
	"github.com/apexftc/go-auton/pkg/path"
	"github.com/apexftc/go-auton/pkg/timer"
)

func TestValidate_AcceptsWellFormedTable(t *testing.T) {
	assert.NoError(t, Validate(busyRoutine(), nil))
	assert.NoError(t, Validate(timedRoutine(), nil))
}

func TestValidate_RejectsPlaceholderPose(t *testing.T) {
	r := busyRoutine()
	r.Paths["out"] = path.Line(geom.PoseDeg(56, 16, 180), geom.Placeholder)

	err := Validate(r, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPath)
	assert.ErrorIs(t, err, path.ErrPlaceholderPose)

	var te *TableError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "busy", te.Routine)
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(r *Routine)
		want   error
	}{
		{"empty", func(r *Routine) { r.Steps = nil }, ErrEmptyRoutine},
		{"duplicate", func(r *Routine) { r.Steps = append(r.Steps, Step{ID: "WAIT", Gate: GateTerminal}) }, ErrDuplicateStep},
		{"unknown next", func(r *Routine) { r.Steps[2].Next = "NOWHERE" }, ErrUnknownStep},
		{"unknown start", func(r *Routine) { r.Start = "GO" }, ErrUnknownStep},
		{"unknown path", func(r *Routine) { r.Steps[1].Actions[0] = FollowPath("missing", true) }, ErrUnknownPath},
		{"no terminal", func(r *Routine) {
			r.Steps[3] = Step{ID: StateIdle, Gate: GateBusy, WaitFor: []string{FollowerSource}, Next: StateIdle}
		}, ErrNoTerminal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := busyRoutine()
			tc.mutate(&r)
			assert.ErrorIs(t, Validate(r, nil), tc.want)
		})
	}
}

func TestValidate_CueOrder(t *testing.T) {
	r := timedRoutine()
	r.Steps[2].Cues = []Cue{{At: 6 * time.Second}, {At: 4 * time.Second}}
	assert.ErrorIs(t, Validate(r, nil), ErrCueOrder)

	r = timedRoutine()
	r.Steps[2].Cues = []Cue{{At: 13 * time.Second}}
	assert.ErrorIs(t, Validate(r, nil), ErrCueOrder)

	r = timedRoutine()
	r.Steps[2].After = 0
	assert.ErrorIs(t, Validate(r, nil), ErrCueOrder)
}

func TestValidate_AgainstMechanisms(t *testing.T) {
	set := mechanism.NewSet()
	clock := timer.NewManualClock()
	require.NoError(t, set.Register(mechanism.NewPositional(mechanism.PositionalConfig{
		Name:    mechanism.Claw,
		Presets: map[string]float64{mechanism.ClawOpen: 0.5},
	}, clock, nil)))
	require.NoError(t, set.Register(mechanism.NewPositional(mechanism.PositionalConfig{Name: mechanism.Slides}, clock, nil)))

	// INIT presets claw closed, which this claw does not define
	err := Validate(busyRoutine(), set)
	assert.ErrorIs(t, err, ErrUnknownPreset)

	var te *TableError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, StateInit, te.Step)
}

func TestRoutine_Mechanisms(t *testing.T) {
	assert.ElementsMatch(t, []string{mechanism.Claw, mechanism.Slides}, busyRoutine().Mechanisms())
}
