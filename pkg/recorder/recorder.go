// Package recorder stores autonomous runs in a local SQLite file: one row
// per run, its state transitions and its telemetry frames.
package recorder

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/apexftc/go-auton/pkg/timer"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Errors.
var (
	ErrRunNotFound = errors.New("recorder: run not found")
	ErrRunFinished = errors.New("recorder: run already finished")
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
}

// Recorder owns the database handle.
type Recorder struct {
	db     *sql.DB
	clock  timer.Clock
	logger zerolog.Logger
}

// Open opens or creates the database at path and migrates it to the
// latest schema. A nil clock selects timer.RealClock.
func Open(path string, clock timer.Clock, logger zerolog.Logger) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer; the loop and the CLI never write concurrently.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("recorder: %s: %w", p, err)
		}
	}
	if clock == nil {
		clock = timer.RealClock{}
	}
	r := &Recorder{db: db, clock: clock, logger: logger}
	if err := r.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// Version returns the applied schema version.
func (r *Recorder) Version() (uint, error) {
	m, err := r.newMigrate()
	if err != nil {
		return 0, err
	}
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if dirty {
		return v, fmt.Errorf("recorder: schema version %d is dirty", v)
	}
	return v, nil
}

func (r *Recorder) migrateUp() error {
	m, err := r.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: closing it would close the shared *sql.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("recorder: migration up failed: %w", err)
	}
	return nil
}

func (r *Recorder) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("recorder: migrations source: %w", err)
	}
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("recorder: sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("recorder: migrate: %w", err)
	}
	m.Log = migrateLogger{r.logger}
	return m, nil
}

// migrateLogger adapts zerolog to migrate.Logger.
type migrateLogger struct {
	logger zerolog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug().Msgf("migrate: "+format, v...)
}

func (l migrateLogger) Verbose() bool { return false }
