package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexftc/go-auton/pkg/geom"
)

func TestParseAlliance(t *testing.T) {
	a, err := ParseAlliance(" Red ")
	require.NoError(t, err)
	assert.Equal(t, Red, a)
	assert.Equal(t, "red", a.String())

	_, err = ParseAlliance("green")
	assert.ErrorIs(t, err, ErrUnknownAlliance)
}

func TestRowCyclePoses_RedMirrorsBlue(t *testing.T) {
	blue := RowCyclePoses(Blue, Bottom)
	red := RowCyclePoses(Red, Bottom)

	assert.Equal(t, geom.PoseDeg(56, 16, 180), blue.Start)
	assert.InDelta(t, 88.0, red.Start.X, 1e-9)
	assert.InDelta(t, 104.0, red.Rows[0].Start.X, 1e-9)
	assert.InDelta(t, 124.0, red.Rows[0].End.X, 1e-9)
	assert.InDelta(t, 84.0, red.Rows[0].End.Y, 1e-9)
	assert.InDelta(t, 96.0, red.Score.X, 1e-9)

	top := RowCyclePoses(Blue, Top)
	assert.InDelta(t, 88.0, top.Start.Y, 1e-9)
}

func TestRowCyclePoses_FreshValues(t *testing.T) {
	a := RowCyclePoses(Blue, Bottom)
	a.Rows[0].Start.X = 0
	a.Score.Y = 0

	b := RowCyclePoses(Blue, Bottom)
	assert.InDelta(t, 40.0, b.Rows[0].Start.X, 1e-9)
	assert.InDelta(t, 48.0, b.Score.Y, 1e-9)
}

func TestSpecimenPoses_NoPlaceholders(t *testing.T) {
	for _, a := range []Alliance{Blue, Red} {
		p := SpecimenPoses(a)
		for _, pose := range []geom.Pose{p.Start, p.Preload, p.ScorePreload, p.Pickup, p.ToScore, p.Score, p.Park} {
			assert.False(t, pose.IsPlaceholder(), "%s %v", a, pose)
		}
	}
}
