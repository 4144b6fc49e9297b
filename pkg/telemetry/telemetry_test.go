package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexftc/go-auton/pkg/timer"
)

type collect struct{ frames []Frame }

func (c *collect) Publish(f Frame) error {
	c.frames = append(c.frames, f)
	return nil
}

func TestTelemetry_UpdatePublishesFrame(t *testing.T) {
	clock := timer.NewManualClock()
	a, b := &collect{}, &collect{}
	tel := New(clock, zerolog.Nop(), a)
	tel.AddPublisher(b)

	tel.AddData("state", "PRELOAD")
	tel.AddData("x", 12.3456)
	tel.AddData("elapsed", 1500*time.Millisecond)
	tel.AddLine("waiting on follower")
	f := tel.Update()

	assert.Equal(t, uint64(1), f.Seq)
	assert.Equal(t, clock.Now(), f.Time)
	require.Len(t, a.frames, 1)
	require.Len(t, b.frames, 1)
	assert.Equal(t, f, a.frames[0])

	v, ok := f.Value("x")
	assert.True(t, ok)
	assert.Equal(t, "12.346", v)
	v, _ = f.Value("elapsed")
	assert.Equal(t, "1.500s", v)
	assert.Equal(t, "state: PRELOAD\nx: 12.346\nelapsed: 1.500s\nwaiting on follower", f.String())
	assert.Equal(t, f, tel.Last())
}

func TestTelemetry_UpdateStartsNewFrame(t *testing.T) {
	tel := New(timer.NewManualClock(), zerolog.Nop())
	tel.AddData("a", 1)
	tel.Update()
	f := tel.Update()
	assert.Equal(t, uint64(2), f.Seq)
	assert.Empty(t, f.Items)
}

func TestTelemetry_FailingPublisherDoesNotStopOthers(t *testing.T) {
	var buf bytes.Buffer
	good := &collect{}
	bad := PublisherFunc(func(Frame) error { return errors.New("closed") })
	tel := New(timer.NewManualClock(), zerolog.New(&buf), bad, good)

	tel.AddLine("hello")
	tel.Update()

	assert.Len(t, good.frames, 1)
	assert.Contains(t, buf.String(), "telemetry publish failed")
}

func TestFrame_JSON(t *testing.T) {
	f := Frame{Seq: 3, Items: []Item{{Caption: "state", Value: "IDLE"}, {Value: "done"}}}
	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"items":[{"caption":"state","value":"IDLE"},{"value":"done"}]`)
}

func TestLogPublisher_Heartbeat(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf), 3)
	for i := 1; i <= 7; i++ {
		require.NoError(t, p.Publish(Frame{Seq: uint64(i), Items: []Item{{Caption: "state", Value: "START"}}}))
	}
	assert.Equal(t, uint64(7), p.Frames())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &entry))
	assert.Equal(t, float64(6), entry["seq"])
	assert.Equal(t, "START", entry["state"])
}
