package opmode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/apexftc/go-auton/internal/config"
	"github.com/apexftc/go-auton/pkg/metrics"
)

const (
	heartbeatEvery   = 100
	errorLogInterval = 5 * time.Second
	stopTimeout      = time.Second
)

// End reasons reported in Result.
const (
	ReasonCompleted = "completed"
	ReasonStopped   = "stopped"
	ReasonTimeLimit = "time_limit"
	ReasonInitError = "init_error"
)

// Result summarises a run.
type Result struct {
	Reason   string
	Started  bool
	Ticks    uint64
	Overruns uint64
	Errors   uint64
}

// Runner drives an OpMode at a fixed period.
type Runner struct {
	// Period is the loop period; zero selects config.DefaultLoopPeriod.
	Period time.Duration
	// StartSignal ends the init loop when it is closed or receives. A nil
	// signal starts right after Init.
	StartSignal <-chan struct{}
	// Limit ends the run after this much time since Start; zero is no limit.
	Limit time.Duration

	Metrics *metrics.Metrics
	Logger  zerolog.Logger

	ticks, overruns, errs uint64
	lastErrorTime         time.Time
}

// Run executes op until it finishes, the limit passes or ctx ends. Stop
// is always called. The returned error is the Init, Start or Stop error;
// Loop errors are logged and counted.
func (r *Runner) Run(ctx context.Context, op OpMode) (res Result, err error) {
	period := r.Period
	if period <= 0 {
		period = config.DefaultLoopPeriod
	}
	logger := r.Logger.With().Str("opmode", op.Name()).Logger()
	r.ticks, r.overruns, r.errs = 0, 0, 0

	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		defer cancel()
		if stopErr := op.Stop(stopCtx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("opmode: stop: %w", stopErr))
		}
		res.Ticks, res.Overruns, res.Errors = r.ticks, r.overruns, r.errs
		logger.Info().
			Str("reason", res.Reason).
			Uint64("ticks", res.Ticks).
			Uint64("overruns", res.Overruns).
			Uint64("errors", res.Errors).
			Msg("opmode stopped")
	}()

	if err := op.Init(ctx); err != nil {
		res.Reason = ReasonInitError
		return res, fmt.Errorf("opmode: init: %w", err)
	}
	logger.Info().Dur("period", period).Msg("opmode initialized")

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	if r.StartSignal != nil {
	initLoop:
		for {
			select {
			case <-ctx.Done():
				res.Reason = ReasonStopped
				return res, nil
			case <-r.StartSignal:
				break initLoop
			case <-ticker.C:
				r.tick(ctx, logger, period, op.InitLoop)
			}
		}
	}

	if err := op.Start(ctx); err != nil {
		res.Reason = ReasonInitError
		return res, fmt.Errorf("opmode: start: %w", err)
	}
	res.Started = true
	logger.Info().Msg("opmode started")

	var limit <-chan time.Time
	if r.Limit > 0 {
		t := time.NewTimer(r.Limit)
		defer t.Stop()
		limit = t.C
	}
	fin, _ := op.(Finisher)

	for {
		select {
		case <-ctx.Done():
			res.Reason = ReasonStopped
			return res, nil
		case <-limit:
			res.Reason = ReasonTimeLimit
			return res, nil
		case <-ticker.C:
			r.tick(ctx, logger, period, op.Loop)
			if fin != nil && fin.Finished() {
				res.Reason = ReasonCompleted
				return res, nil
			}
		}
	}
}

// tick runs one iteration, accounting its duration.
func (r *Runner) tick(ctx context.Context, logger zerolog.Logger, period time.Duration, fn func(context.Context) error) {
	start := time.Now()
	err := fn(ctx)
	took := time.Since(start)

	r.ticks++
	if took > period {
		r.overruns++
	}
	if r.Metrics != nil {
		r.Metrics.ObserveTick(took, period)
	}
	if err != nil {
		r.errs++
		if time.Since(r.lastErrorTime) > errorLogInterval {
			logger.Warn().Err(err).Uint64("errors", r.errs).Msg("loop error")
			r.lastErrorTime = time.Now()
		}
	}
	if r.ticks%heartbeatEvery == 0 {
		logger.Debug().
			Uint64("ticks", r.ticks).
			Uint64("overruns", r.overruns).
			Uint64("errors", r.errs).
			Dur("last", took).
			Msg("heartbeat")
	}
}
