package opmode

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexftc/go-auton/internal/config"
	"github.com/apexftc/go-auton/pkg/align"
	"github.com/apexftc/go-auton/pkg/auto"
	"github.com/apexftc/go-auton/pkg/drive"
	"github.com/apexftc/go-auton/pkg/mechanism"
	"github.com/apexftc/go-auton/pkg/path"
	"github.com/apexftc/go-auton/pkg/routines"
	"github.com/apexftc/go-auton/pkg/telemetry"
	"github.com/apexftc/go-auton/pkg/timer"
	"github.com/apexftc/go-auton/pkg/vision"
)

func floatEquals(a, b float64) bool {
	const epsilon = 1e-9
	d := a - b
	return d < epsilon && d > -epsilon
}

// scriptOp records lifecycle calls.
type scriptOp struct {
	mu       sync.Mutex
	calls    []string
	initErr  error
	loopErr  error
	loops    int
	finishAt int
}

func (o *scriptOp) record(c string) {
	o.mu.Lock()
	o.calls = append(o.calls, c)
	o.mu.Unlock()
}

func (o *scriptOp) Name() string { return "script" }

func (o *scriptOp) Init(context.Context) error {
	o.record("init")
	return o.initErr
}

func (o *scriptOp) InitLoop(context.Context) error {
	o.record("init_loop")
	return nil
}

func (o *scriptOp) Start(context.Context) error {
	o.record("start")
	return nil
}

func (o *scriptOp) Loop(context.Context) error {
	o.mu.Lock()
	o.loops++
	o.mu.Unlock()
	return o.loopErr
}

func (o *scriptOp) Stop(context.Context) error {
	o.record("stop")
	return nil
}

func (o *scriptOp) Finished() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.finishAt > 0 && o.loops >= o.finishAt
}

func (o *scriptOp) history() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.calls...)
}

func TestRunner_InitErrorStillStops(t *testing.T) {
	op := &scriptOp{initErr: errors.New("no hub")}
	r := &Runner{Period: time.Millisecond, Logger: zerolog.Nop()}

	res, err := r.Run(context.Background(), op)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no hub")
	assert.Equal(t, ReasonInitError, res.Reason)
	assert.False(t, res.Started)
	assert.Equal(t, []string{"init", "stop"}, op.history())
}

func TestRunner_CompletesWhenFinished(t *testing.T) {
	op := &scriptOp{finishAt: 5}
	r := &Runner{Period: time.Millisecond, Logger: zerolog.Nop()}

	res, err := r.Run(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, ReasonCompleted, res.Reason)
	assert.True(t, res.Started)
	assert.Equal(t, uint64(5), res.Ticks)
	assert.Equal(t, []string{"init", "start", "stop"}, op.history())
}

func TestRunner_CancelDuringInitLoop(t *testing.T) {
	op := &scriptOp{}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{Period: time.Millisecond, StartSignal: make(chan struct{}), Logger: zerolog.Nop()}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	res, err := r.Run(ctx, op)
	require.NoError(t, err)
	assert.Equal(t, ReasonStopped, res.Reason)
	assert.False(t, res.Started)

	h := op.history()
	assert.Equal(t, "init", h[0])
	assert.Equal(t, "init_loop", h[1])
	assert.Equal(t, "stop", h[len(h)-1])
	assert.NotContains(t, h, "start")
}

func TestRunner_StartSignalAndLimit(t *testing.T) {
	op := &scriptOp{loopErr: errors.New("vision timeout")}
	start := make(chan struct{})
	close(start)
	r := &Runner{Period: time.Millisecond, StartSignal: start, Limit: 30 * time.Millisecond, Logger: zerolog.Nop()}

	res, err := r.Run(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, ReasonTimeLimit, res.Reason)
	assert.True(t, res.Started)
	assert.Positive(t, res.Errors)
	assert.LessOrEqual(t, res.Errors, res.Ticks)
}

func TestHardware_Require(t *testing.T) {
	err := Hardware{Drivetrain: drive.NewSimDrivetrain()}.Require(PartVision, PartDrivetrain, PartFollower)
	require.ErrorIs(t, err, ErrMissingHardware)
	assert.Contains(t, err.Error(), "vision")
	assert.Contains(t, err.Error(), "follower")
	assert.NotContains(t, err.Error(), "drivetrain")
}

type collect struct{ frames []telemetry.Frame }

func (c *collect) Publish(f telemetry.Frame) error {
	c.frames = append(c.frames, f)
	return nil
}

func TestAutonomous_RunsRoutine(t *testing.T) {
	clock := timer.NewManualClock()
	mechs, err := mechanism.Standard(config.DefaultHardwareMap(), clock, nil)
	require.NoError(t, err)
	dt := drive.NewSimDrivetrain()
	hw := Hardware{
		Follower:   path.NewSimFollower(clock, 60),
		Mechanisms: mechs,
		Drivetrain: dt,
		Clock:      clock,
	}
	r, err := routines.Get("blue-bottom-1")
	require.NoError(t, err)

	frames := &collect{}
	var states []auto.State
	op := NewAutonomous(r, hw, Instruments{
		Telemetry: telemetry.New(clock, zerolog.Nop(), frames),
		Observers: []auto.Observer{auto.ObserverFunc(func(tr auto.Transition) { states = append(states, tr.To) })},
		Logger:    zerolog.Nop(),
	})

	ctx := context.Background()
	require.NoError(t, op.Init(ctx))
	assert.Equal(t, auto.StateInit, op.Status().State)
	require.NoError(t, op.InitLoop(ctx))
	require.NoError(t, op.Start(ctx))
	for i := 0; i < 2000 && !op.Finished(); i++ {
		clock.Advance(20 * time.Millisecond)
		require.NoError(t, op.Loop(ctx))
	}
	require.True(t, op.Finished(), "stalled in %s", op.Status().State)
	require.NoError(t, op.Stop(ctx))

	assert.Equal(t, auto.StateIdle, states[len(states)-1])
	assert.Equal(t, 1, dt.Stops())

	last := frames.frames[len(frames.frames)-1]
	state, ok := last.Value("state")
	assert.True(t, ok)
	assert.Equal(t, "IDLE", state)
	_, ok = last.Value(mechanism.Slides)
	assert.True(t, ok)
	_, ok = last.Value("claw_wrist")
	assert.True(t, ok)
	_, ok = last.Value("fault " + mechanism.Arm)
	assert.False(t, ok, "no faults without an actuator")

	var lines []string
	for _, it := range last.Items {
		if it.Caption == "" {
			lines = append(lines, it.Value)
		}
	}
	assert.Contains(t, lines, "Claw: open, straight")
}

func TestAutonomous_StopMidRoutineZeroesActuators(t *testing.T) {
	clock := timer.NewManualClock()
	mechs, err := mechanism.Standard(config.DefaultHardwareMap(), clock, nil)
	require.NoError(t, err)
	follower := path.NewSimFollower(clock, 60)
	dt := drive.NewSimDrivetrain()
	r, err := routines.Get("blue-bottom-1")
	require.NoError(t, err)

	op := NewAutonomous(r, Hardware{Follower: follower, Mechanisms: mechs, Drivetrain: dt, Clock: clock},
		Instruments{Logger: zerolog.Nop()})
	ctx := context.Background()
	require.NoError(t, op.Init(ctx))
	require.NoError(t, op.Start(ctx))

	// The row sweep runs with the intake collecting.
	for i := 0; i < 2000 && op.Status().State != "RETURN_TOP"; i++ {
		clock.Advance(20 * time.Millisecond)
		require.NoError(t, op.Loop(ctx))
	}
	require.Equal(t, auto.State("RETURN_TOP"), op.Status().State)
	intake, err := mechs.Get(mechanism.Intake)
	require.NoError(t, err)
	require.InDelta(t, 0.9, intake.Target(), 1e-9)
	require.True(t, follower.IsBusy())

	require.NoError(t, op.Stop(ctx))
	assert.False(t, follower.IsBusy())
	assert.Zero(t, intake.Target())
	assert.InDelta(t, 0.0, intake.State(), 1e-9, "stop is applied, not just requested")
	outtake, _ := mechs.Get(mechanism.Outtake)
	assert.Zero(t, outtake.Target())
	assert.Equal(t, 1, dt.Stops())
	assert.False(t, op.Finished())
}

func TestAutonomous_InitRequiresHardware(t *testing.T) {
	r, err := routines.Get("blue-right")
	require.NoError(t, err)
	op := NewAutonomous(r, Hardware{}, Instruments{Logger: zerolog.Nop()})
	assert.ErrorIs(t, op.Init(context.Background()), ErrMissingHardware)
	assert.False(t, op.Finished())
	assert.NoError(t, op.Stop(context.Background()))
}

func TestAlign_LoopAppliesCommand(t *testing.T) {
	src := vision.NewStaticSource(vision.Detection{
		ID:   vision.RedGoalTag,
		Pose: &vision.RelativePose{X: 20, Z: 100, Yaw: 10},
	})
	dt := drive.NewSimDrivetrain()
	op := NewAlign(align.NewTunable(align.DefaultConfig()), Hardware{Vision: src, Drivetrain: dt}, Instruments{Logger: zerolog.Nop()})

	ctx := context.Background()
	require.NoError(t, op.Init(ctx))
	require.NoError(t, op.Start(ctx))
	require.NoError(t, op.Loop(ctx))

	p := dt.Last()
	if !floatEquals(p.FrontLeft, 0.07) || !floatEquals(p.FrontRight, 0.43) ||
		!floatEquals(p.BackLeft, 0.23) || !floatEquals(p.BackRight, 0.27) {
		t.Errorf("powers = %v, want fl=0.07 fr=0.43 bl=0.23 br=0.27", p)
	}
	if op.Last().Status != align.Driving {
		t.Errorf("status = %v, want driving", op.Last().Status)
	}

	src.Set()
	require.NoError(t, op.Loop(ctx))
	if !dt.Last().IsZero() {
		t.Errorf("powers = %v, want zero without a detection", dt.Last())
	}

	require.NoError(t, op.Stop(ctx))
	assert.True(t, src.Closed())
	assert.Equal(t, 1, dt.Stops())
}

func TestAlign_VisionFailureStops(t *testing.T) {
	src := vision.NewStaticSource(vision.Detection{ID: vision.RedGoalTag, Pose: &vision.RelativePose{Z: 200}})
	dt := drive.NewSimDrivetrain()
	op := NewAlign(align.NewTunable(align.DefaultConfig()), Hardware{Vision: src, Drivetrain: dt}, Instruments{Logger: zerolog.Nop()})
	require.NoError(t, src.Close())

	err := op.Loop(context.Background())
	assert.ErrorIs(t, err, vision.ErrClosed)
	assert.Equal(t, 1, dt.Commands())
	assert.True(t, dt.Last().IsZero())
}
