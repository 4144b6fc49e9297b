// Package log provides structured logging for go-auton.
// It wraps zerolog behind the same small package-level API the commands use.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger zerolog.Logger
	once   sync.Once
	ready  bool
)

// Init initializes the global logger with the specified level.
// Valid levels: "debug", "info", "warn", "error"
func Init(level string) {
	InitWithWriter(level, nil)
}

// InitWithWriter is Init with an explicit output. A nil writer selects
// stdout: JSON in production, console text otherwise.
func InitWithWriter(level string, w io.Writer) {
	once.Do(func() {
		lvl, err := zerolog.ParseLevel(level)
		if err != nil || level == "" {
			lvl = zerolog.InfoLevel
		}

		if w == nil {
			if os.Getenv("GO_ENV") == "production" {
				w = os.Stdout
			} else {
				w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}
			}
		}

		logger = zerolog.New(w).With().Timestamp().Logger().Level(lvl)
		ready = true
	})
}

// L returns the global logger instance.
func L() *zerolog.Logger {
	if !ready {
		Init("info")
	}
	return &logger
}

// Component returns a child logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return L().With().Str("component", name).Logger()
}

// Debug logs at debug level. kv is a flat key/value list.
func Debug(msg string, kv ...any) {
	L().Debug().Fields(kv).Msg(msg)
}

// Info logs at info level.
func Info(msg string, kv ...any) {
	L().Info().Fields(kv).Msg(msg)
}

// Warn logs at warn level.
func Warn(msg string, kv ...any) {
	L().Warn().Fields(kv).Msg(msg)
}

// Error logs at error level.
func Error(msg string, kv ...any) {
	L().Error().Fields(kv).Msg(msg)
}

// With returns a logger with the given key/value attributes.
func With(kv ...any) zerolog.Logger {
	return L().With().Fields(kv).Logger()
}
