package dashboard

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexftc/go-auton/pkg/align"
	"github.com/apexftc/go-auton/pkg/auto"
	"github.com/apexftc/go-auton/pkg/metrics"
)

func TestStatus(t *testing.T) {
	s := NewServer(Options{
		Status: func() any { return auto.Status{Routine: "blue-right", State: "UNLATCH", Started: true} },
		Logger: zerolog.Nop(),
	})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var st auto.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, auto.State("UNLATCH"), st.State)
	assert.True(t, st.Started)
}

func TestStatus_NotRunning(t *testing.T) {
	s := NewServer(Options{Logger: zerolog.Nop()})
	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"running":false}`, string(body))
}

func TestRoutines(t *testing.T) {
	s := NewServer(Options{Logger: zerolog.Nop()})
	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/routines", nil))
	require.NoError(t, err)

	var list []RoutineInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 14)
	assert.Equal(t, "blue-bottom-0", list[0].Name)
}

func TestTuning(t *testing.T) {
	tune := align.NewTunable(align.DefaultConfig())
	s := NewServer(Options{Tuning: tune, Logger: zerolog.Nop()})

	req := httptest.NewRequest("PUT", "/api/tuning/align", strings.NewReader(`{"target_distance":40,"gains":{"forward":0.01}}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	cfg := tune.Snapshot()
	assert.Equal(t, 40.0, cfg.TargetDistance)
	assert.Equal(t, 0.01, cfg.Gains.Forward)
	assert.Equal(t, align.DefaultGains().Strafe, cfg.Gains.Strafe)

	resp, err = s.App().Test(httptest.NewRequest("GET", "/api/tuning/align", nil))
	require.NoError(t, err)
	var got align.Config
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, cfg, got)

	bad := httptest.NewRequest("PUT", "/api/tuning/align", strings.NewReader(`{`))
	bad.Header.Set("Content-Type", "application/json")
	resp, err = s.App().Test(bad)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestTuning_Unavailable(t *testing.T) {
	s := NewServer(Options{Logger: zerolog.Nop()})
	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/tuning/align", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.New(false)
	m.SetVoltage(12.4)
	s := NewServer(Options{Metrics: m, Logger: zerolog.Nop()})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "auton_battery_volts 12.4")
}

func TestTelemetryRequiresUpgrade(t *testing.T) {
	s := NewServer(Options{Logger: zerolog.Nop()})
	resp, err := s.App().Test(httptest.NewRequest("GET", "/ws/telemetry", nil))
	require.NoError(t, err)
	assert.Equal(t, 426, resp.StatusCode)
}
