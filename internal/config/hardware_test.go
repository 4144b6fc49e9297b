package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHardwareMap_Valid(t *testing.T) {
	hm := DefaultHardwareMap()
	require.NoError(t, hm.Validate("claw_grip", "claw_wrist", "slides", "arm", "hslides", "intake", "transfer", "outtake", "spindexer"))
	assert.Equal(t, 100.0, hm.Vision.UnitScale)
	assert.True(t, hm.Drive.VoltageCompensation)
}

func TestLoadHardwareMap_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hardware.yaml")
	doc := `
serial:
  port: /dev/ttyACM0
vision:
  url: http://10.0.0.11:5807
  timeout: 25ms
mechanisms:
  slides:
    channel: 7
    rate: 1500
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	hm, err := LoadHardwareMap(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", hm.Serial.Port)
	assert.Equal(t, "http://10.0.0.11:5807", hm.Vision.URL)
	assert.Equal(t, 25*time.Millisecond, hm.Vision.Timeout)
	assert.Equal(t, 7, hm.Mechanisms["slides"].Channel)
	assert.Equal(t, 1500.0, hm.Mechanisms["slides"].Rate)
	// untouched entries survive the merge
	assert.Equal(t, 0, hm.Mechanisms["claw_grip"].Channel)
}

func TestValidate_MissingMapping(t *testing.T) {
	hm := DefaultHardwareMap()
	delete(hm.Mechanisms, "arm")

	err := hm.Validate("slides", "arm")
	require.ErrorIs(t, err, ErrMissingMapping)
	assert.Contains(t, err.Error(), "arm")
}

func TestValidate_DuplicateChannel(t *testing.T) {
	hm := DefaultHardwareMap()
	hm.Mechanisms["arm"] = MechanismConfig{Channel: 2}

	err := hm.Validate()
	require.ErrorIs(t, err, ErrDuplicateChannel)
}

func TestLoadHardwareMap_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mechanisms: [1, 2"), 0o644))

	_, err := LoadHardwareMap(path)
	require.Error(t, err)
}

func TestLoopPeriod_Env(t *testing.T) {
	t.Setenv("AUTON_LOOP_PERIOD", "10ms")
	assert.Equal(t, 10*time.Millisecond, LoopPeriod())

	t.Setenv("AUTON_LOOP_PERIOD", "garbage")
	assert.Equal(t, DefaultLoopPeriod, LoopPeriod())
}
