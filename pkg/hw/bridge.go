// Package hw talks to the motor and servo hub over a serial line.
//
// Outbound, one command per line:
//
//	D <fl> <fr> <bl> <br>   drive wheel powers in [-1, 1]
//	S <channel> <value>     mechanism setpoint
//	Z                       stop everything
//
// Inbound:
//
//	V <volts>               battery voltage report
//	E <text>                hub fault
package hw

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"github.com/apexftc/go-auton/internal/config"
	"github.com/apexftc/go-auton/pkg/drive"
	"github.com/apexftc/go-auton/pkg/timer"
)

// Errors.
var (
	ErrWriteFailed = errors.New("hw: short write to serial port")
	ErrNoVoltage   = errors.New("hw: no recent voltage report")
	ErrClosed      = errors.New("hw: bridge closed")
	ErrBadLine     = errors.New("hw: malformed line")
)

// VoltageStaleAfter is how long a voltage report stays valid.
const VoltageStaleAfter = time.Second

// Port is the minimal serial port surface. serial.Port satisfies it.
type Port interface {
	io.ReadWriter
	io.Closer
}

// Open opens the hub port at 8N1 with the configured baud rate.
func Open(cfg config.SerialConfig) (Port, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("%w: serial port", config.ErrMissingMapping)
	}
	baud := cfg.Baud
	if baud <= 0 {
		baud = config.DefaultSerialBaud
	}
	p, err := serial.Open(cfg.Port, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("hw: open %s: %w", cfg.Port, err)
	}
	return p, nil
}

// Bridge implements drive.Drivetrain, mechanism.Actuator and
// drive.VoltageSensor on top of a hub port.
type Bridge struct {
	port   Port
	clock  timer.Clock
	logger zerolog.Logger

	writeMu sync.Mutex
	closed  bool

	mu        sync.RWMutex
	volts     float64
	voltsAt   time.Time
	faults    int
	lastFault string
}

// NewBridge wraps an open port. A nil clock selects timer.RealClock.
func NewBridge(port Port, clock timer.Clock, logger zerolog.Logger) *Bridge {
	if clock == nil {
		clock = timer.RealClock{}
	}
	return &Bridge{port: port, clock: clock, logger: logger}
}

func (b *Bridge) send(line string) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if b.closed {
		return ErrClosed
	}
	line += "\n"
	n, err := b.port.Write([]byte(line))
	if err != nil {
		return err
	}
	if n != len(line) {
		return ErrWriteFailed
	}
	return nil
}

// SetPowers sends clamped wheel powers.
func (b *Bridge) SetPowers(p drive.WheelPowers) error {
	p = p.Clamp()
	return b.send("D " + ftoa(p.FrontLeft) + " " + ftoa(p.FrontRight) + " " + ftoa(p.BackLeft) + " " + ftoa(p.BackRight))
}

// Stop halts every output on the hub.
func (b *Bridge) Stop() error {
	return b.send("Z")
}

// Command sends a mechanism setpoint.
func (b *Bridge) Command(channel int, value float64) error {
	return b.send("S " + strconv.Itoa(channel) + " " + strconv.FormatFloat(value, 'f', 4, 64))
}

// Voltage returns the latest battery report, or ErrNoVoltage when none
// arrived within VoltageStaleAfter.
func (b *Bridge) Voltage() (float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.voltsAt.IsZero() || b.clock.Now().Sub(b.voltsAt) > VoltageStaleAfter {
		return 0, ErrNoVoltage
	}
	return b.volts, nil
}

// Faults returns the number of fault lines received and the last one.
func (b *Bridge) Faults() (int, string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.faults, b.lastFault
}

// Monitor reads inbound lines until ctx ends or the port fails. Run it in
// its own goroutine.
func (b *Bridge) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(b.port)
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		for scan.Scan() {
			select {
			case lines <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scan.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			if err := b.handle(line); err != nil {
				b.logger.Debug().Err(err).Str("line", line).Msg("ignored hub line")
			}
		}
	}
}

func (b *Bridge) handle(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	kind, rest, _ := strings.Cut(line, " ")
	switch kind {
	case "V":
		v, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadLine, err)
		}
		b.mu.Lock()
		b.volts, b.voltsAt = v, b.clock.Now()
		b.mu.Unlock()
	case "E":
		b.mu.Lock()
		b.faults++
		b.lastFault = rest
		b.mu.Unlock()
		b.logger.Warn().Str("fault", rest).Msg("hub fault")
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrBadLine, kind)
	}
	return nil
}

// Close stops outputs and closes the port.
func (b *Bridge) Close() error {
	stopErr := b.Stop()
	b.writeMu.Lock()
	b.closed = true
	b.writeMu.Unlock()
	if err := b.port.Close(); err != nil {
		return err
	}
	if errors.Is(stopErr, ErrClosed) {
		return nil
	}
	return stopErr
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
