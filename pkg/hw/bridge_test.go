package hw

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexftc/go-auton/internal/config"
	"github.com/apexftc/go-auton/pkg/drive"
	"github.com/apexftc/go-auton/pkg/mechanism"
	"github.com/apexftc/go-auton/pkg/timer"
)

var (
	_ drive.Drivetrain    = (*Bridge)(nil)
	_ drive.VoltageSensor = (*Bridge)(nil)
	_ mechanism.Actuator  = (*Bridge)(nil)
)

// fakePort reads from a pipe fed by the test and records writes.
type fakePort struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu     sync.Mutex
	out    bytes.Buffer
	closed bool
}

func newFakePort() *fakePort {
	r, w := io.Pipe()
	return &fakePort{r: r, w: w}
}

func (p *fakePort) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Write(b)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.w.Close()
}

func (p *fakePort) written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.String()
}

func TestBridge_OutboundLines(t *testing.T) {
	port := newFakePort()
	b := NewBridge(port, nil, zerolog.Nop())

	require.NoError(t, b.SetPowers(drive.WheelPowers{FrontLeft: 0.5, FrontRight: -1.5, BackLeft: 0, BackRight: 0.125}))
	require.NoError(t, b.Command(2, 1180))
	require.NoError(t, b.Stop())

	assert.Equal(t, "D 0.500 -1.000 0.000 0.125\nS 2 1180.0000\nZ\n", port.written())
}

func TestBridge_MonitorVoltage(t *testing.T) {
	clock := timer.NewManualClock()
	port := newFakePort()
	b := NewBridge(port, clock, zerolog.Nop())

	_, err := b.Voltage()
	assert.ErrorIs(t, err, ErrNoVoltage)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- b.Monitor(ctx) }()

	_, err = io.WriteString(port.w, "V 12.61\nnoise\nE slides overcurrent\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, _ := b.Faults()
		return n == 1
	}, time.Second, 5*time.Millisecond)

	v, err := b.Voltage()
	require.NoError(t, err)
	assert.InDelta(t, 12.61, v, 1e-9)
	_, fault := b.Faults()
	assert.Equal(t, "slides overcurrent", fault)

	clock.Advance(2 * VoltageStaleAfter)
	_, err = b.Voltage()
	assert.ErrorIs(t, err, ErrNoVoltage)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestBridge_MonitorEndsWithPort(t *testing.T) {
	port := newFakePort()
	b := NewBridge(port, nil, zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- b.Monitor(context.Background()) }()

	port.w.Close()
	assert.NoError(t, <-done)
}

func TestBridge_Close(t *testing.T) {
	port := newFakePort()
	b := NewBridge(port, nil, zerolog.Nop())
	require.NoError(t, b.Close())

	assert.Equal(t, "Z\n", port.written())
	assert.True(t, port.closed)
	assert.ErrorIs(t, b.SetPowers(drive.Zero), ErrClosed)
}

func TestCompensatedBridge(t *testing.T) {
	clock := timer.NewManualClock()
	port := newFakePort()
	b := NewBridge(port, clock, zerolog.Nop())
	require.NoError(t, b.handle("V 10"))

	dt := drive.NewCompensated(b, b, drive.DefaultCompensator())
	require.NoError(t, dt.SetPowers(drive.WheelPowers{FrontLeft: 0.5, FrontRight: 0.5, BackLeft: 0.5, BackRight: 0.5}))
	assert.Equal(t, "D 0.600 0.600 0.600 0.600\n", port.written())
}

func TestOpen_RequiresPort(t *testing.T) {
	_, err := Open(config.SerialConfig{})
	assert.ErrorIs(t, err, config.ErrMissingMapping)
}
