package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/apexftc/go-auton/pkg/auto"
	"github.com/apexftc/go-auton/pkg/telemetry"
)

// End reasons stored with a finished run.
const (
	EndCompleted = "completed"
	EndStopped   = "stopped"
	EndError     = "error"
)

// Write queue sizing. The loop only ever enqueues; a single writer
// goroutine drains the queue in transactions of up to maxBatch rows.
const (
	queueSize = 512
	maxBatch  = 64
)

// Run records one opmode run. It implements auto.Observer and
// telemetry.Publisher so it can be attached to the loop directly. Rows are
// queued and written by a background goroutine; when the queue is full the
// row is dropped and counted. Write failures are logged, never returned
// into the loop.
type Run struct {
	ID      uuid.UUID
	Routine string
	OpMode  string
	Started time.Time

	rec    *Recorder
	logger zerolog.Logger

	mu       sync.Mutex
	finished bool
	queue    chan row
	done     chan struct{}
	dropped  atomic.Int64
	failures int
}

// row is one queued insert: a transition when frame is false.
type row struct {
	frame   bool
	seq     uint64
	from    string
	to      string
	atMS    int64
	payload string
}

// StartRun inserts a new run row and starts its writer.
func (r *Recorder) StartRun(ctx context.Context, routine, opmode string) (*Run, error) {
	run := &Run{
		ID:      uuid.New(),
		Routine: routine,
		OpMode:  opmode,
		Started: r.clock.Now().UTC(),
		rec:     r,
		queue:   make(chan row, queueSize),
		done:    make(chan struct{}),
	}
	run.logger = r.logger.With().Str("run", run.ID.String()).Logger()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, routine, opmode, started_at) VALUES (?, ?, ?, ?)`,
		run.ID.String(), routine, opmode, run.Started)
	if err != nil {
		return nil, fmt.Errorf("recorder: start run: %w", err)
	}
	go run.write()
	run.logger.Info().Str("routine", routine).Str("opmode", opmode).Msg("run started")
	return run, nil
}

// OnTransition implements auto.Observer.
func (run *Run) OnTransition(t auto.Transition) {
	run.enqueue(row{seq: uint64(t.Seq), from: string(t.From), to: string(t.To), atMS: t.At.Milliseconds()})
}

// Publish implements telemetry.Publisher. It never waits on the database.
func (run *Run) Publish(f telemetry.Frame) error {
	payload, err := json.Marshal(f.Items)
	if err != nil {
		return err
	}
	if !run.enqueue(row{
		frame:   true,
		seq:     f.Seq,
		atMS:    f.Time.Sub(run.Started).Milliseconds(),
		payload: string(payload),
	}) {
		return ErrRunFinished
	}
	return nil
}

// enqueue reports false once the run is finished.
func (run *Run) enqueue(r row) bool {
	run.mu.Lock()
	defer run.mu.Unlock()
	if run.finished {
		return false
	}
	select {
	case run.queue <- r:
	default:
		if n := run.dropped.Add(1); n == 1 || n%50 == 0 {
			run.logger.Warn().Int64("dropped", n).Msg("recorder queue full")
		}
	}
	return true
}

// Dropped returns how many rows were discarded because the queue was full.
func (run *Run) Dropped() int64 { return run.dropped.Load() }

func (run *Run) write() {
	defer close(run.done)
	for first := range run.queue {
		batch := append(make([]row, 0, maxBatch), first)
	drain:
		for len(batch) < maxBatch {
			select {
			case r, ok := <-run.queue:
				if !ok {
					break drain
				}
				batch = append(batch, r)
			default:
				break drain
			}
		}
		run.fail(run.flush(batch), "record batch")
	}
}

// flush writes a batch in one transaction.
func (run *Run) flush(batch []row) error {
	tx, err := run.rec.db.Begin()
	if err != nil {
		return err
	}
	id := run.ID.String()
	for _, r := range batch {
		if r.frame {
			_, err = tx.Exec(`INSERT INTO frames (run_id, seq, at_ms, payload) VALUES (?, ?, ?, ?)`,
				id, r.seq, r.atMS, r.payload)
		} else {
			_, err = tx.Exec(`INSERT INTO transitions (run_id, seq, from_state, to_state, at_ms) VALUES (?, ?, ?, ?, ?)`,
				id, r.seq, r.from, r.to, r.atMS)
		}
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (run *Run) fail(err error, what string) {
	if err == nil {
		return
	}
	run.failures++
	// First failure and then one in fifty, so a full disk cannot flood the log.
	if run.failures == 1 || run.failures%50 == 0 {
		run.logger.Error().Err(err).Int("failures", run.failures).Msg(what)
	}
}

// Finish drains the write queue, then stamps the end time and reason.
// Further frames are rejected.
func (run *Run) Finish(ctx context.Context, reason string) error {
	run.mu.Lock()
	if run.finished {
		run.mu.Unlock()
		return ErrRunFinished
	}
	run.finished = true
	close(run.queue)
	run.mu.Unlock()

	select {
	case <-run.done:
	case <-ctx.Done():
		return fmt.Errorf("recorder: finish run: %w", ctx.Err())
	}
	_, err := run.rec.db.ExecContext(ctx,
		`UPDATE runs SET ended_at = ?, end_reason = ? WHERE id = ?`,
		run.rec.clock.Now().UTC(), reason, run.ID.String())
	if err != nil {
		return fmt.Errorf("recorder: finish run: %w", err)
	}
	run.logger.Info().
		Str("reason", reason).
		Int("write_failures", run.failures).
		Int64("dropped", run.Dropped()).
		Msg("run finished")
	return nil
}

// RunSummary is one row of the runs listing.
type RunSummary struct {
	ID          string     `json:"id"`
	Routine     string     `json:"routine"`
	OpMode      string     `json:"opmode"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	EndReason   string     `json:"end_reason,omitempty"`
	Transitions int        `json:"transitions"`
	Frames      int        `json:"frames"`
}

// Runs lists the most recent runs, newest first.
func (r *Recorder) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.routine, r.opmode, r.started_at, r.ended_at, COALESCE(r.end_reason, ''),
		       (SELECT COUNT(*) FROM transitions t WHERE t.run_id = r.id),
		       (SELECT COUNT(*) FROM frames f WHERE f.run_id = r.id)
		FROM runs r
		ORDER BY r.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var ended sql.NullTime
		if err := rows.Scan(&s.ID, &s.Routine, &s.OpMode, &s.StartedAt, &ended, &s.EndReason, &s.Transitions, &s.Frames); err != nil {
			return nil, err
		}
		if ended.Valid {
			t := ended.Time
			s.EndedAt = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TransitionRecord is one stored transition.
type TransitionRecord struct {
	Seq  int           `json:"seq"`
	From auto.State    `json:"from"`
	To   auto.State    `json:"to"`
	At   time.Duration `json:"at"`
}

// Transitions returns the transitions of a run in order.
func (r *Recorder) Transitions(ctx context.Context, runID string) ([]TransitionRecord, error) {
	if err := r.requireRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, from_state, to_state, at_ms FROM transitions WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransitionRecord
	for rows.Next() {
		var t TransitionRecord
		var from, to string
		var ms int64
		if err := rows.Scan(&t.Seq, &from, &to, &ms); err != nil {
			return nil, err
		}
		t.From, t.To, t.At = auto.State(from), auto.State(to), time.Duration(ms)*time.Millisecond
		out = append(out, t)
	}
	return out, rows.Err()
}

// Frames returns the stored frames of a run in order.
func (r *Recorder) Frames(ctx context.Context, runID string) ([]telemetry.Frame, error) {
	if err := r.requireRun(ctx, runID); err != nil {
		return nil, err
	}
	var started time.Time
	if err := r.db.QueryRowContext(ctx, `SELECT started_at FROM runs WHERE id = ?`, runID).Scan(&started); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, at_ms, payload FROM frames WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []telemetry.Frame
	for rows.Next() {
		var f telemetry.Frame
		var ms int64
		var payload string
		if err := rows.Scan(&f.Seq, &ms, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &f.Items); err != nil {
			return nil, fmt.Errorf("recorder: frame %d: %w", f.Seq, err)
		}
		f.Time = started.Add(time.Duration(ms) * time.Millisecond)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *Recorder) requireRun(ctx context.Context, runID string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return err
}
