package align

import (
	"errors"
	"fmt"
	"sync"

	"github.com/apexftc/go-auton/pkg/vision"
)

// ErrInvalidConfig is returned for negative gains or limits.
var ErrInvalidConfig = errors.New("align: invalid config")

// Axes holds one value per control axis.
type Axes struct {
	Forward float64 `json:"forward" yaml:"forward"`
	Strafe  float64 `json:"strafe" yaml:"strafe"`
	Turn    float64 `json:"turn" yaml:"turn"`
}

// Config holds the alignment controller parameters.
type Config struct {
	TargetID       int     `json:"target_id" yaml:"target_id"`
	TargetDistance float64 `json:"target_distance" yaml:"target_distance"` // cm
	Gains          Axes    `json:"gains" yaml:"gains"`
	Limits         Axes    `json:"limits" yaml:"limits"`
	// Deadband on the raw errors: cm, cm, degrees.
	Deadband Axes `json:"deadband" yaml:"deadband"`
}

// DefaultGains are the proportional gains tuned on the competition robot.
func DefaultGains() Axes { return Axes{Forward: 0.005, Strafe: 0.004, Turn: 0.01} }

// DefaultLimits cap each axis power before mixing.
func DefaultLimits() Axes { return Axes{Forward: 0.4, Strafe: 0.4, Turn: 0.3} }

// DefaultDeadband is the stop window on raw errors.
func DefaultDeadband() Axes { return Axes{Forward: 5, Strafe: 3, Turn: 2} }

// DefaultConfig returns the configuration for holding 50 cm off the red goal tag.
func DefaultConfig() Config {
	return Config{
		TargetID:       vision.RedGoalTag,
		TargetDistance: 50,
		Gains:          DefaultGains(),
		Limits:         DefaultLimits(),
		Deadband:       DefaultDeadband(),
	}
}

// Validate rejects negative gains, limits or deadbands.
func (c Config) Validate() error {
	for name, a := range map[string]Axes{"gains": c.Gains, "limits": c.Limits, "deadband": c.Deadband} {
		if a.Forward < 0 || a.Strafe < 0 || a.Turn < 0 {
			return fmt.Errorf("%w: negative %s %+v", ErrInvalidConfig, name, a)
		}
	}
	return nil
}

// Tunable holds a Config that the dashboard can change while the loop
// runs. The loop takes a Snapshot each tick.
type Tunable struct {
	mu  sync.RWMutex
	cfg Config
}

// NewTunable wraps an initial config.
func NewTunable(cfg Config) *Tunable {
	return &Tunable{cfg: cfg}
}

// Snapshot returns a copy of the current config.
func (t *Tunable) Snapshot() Config {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cfg
}

// Replace swaps in a full config after validating it.
func (t *Tunable) Replace(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	t.cfg = cfg
	t.mu.Unlock()
	return nil
}

// TuningParams is a partial update. Only positive values are applied.
type TuningParams struct {
	TargetID       int     `json:"target_id,omitempty"`
	TargetDistance float64 `json:"target_distance,omitempty"`
	Gains          Axes    `json:"gains"`
	Limits         Axes    `json:"limits"`
	Deadband       Axes    `json:"deadband"`
}

// Apply merges the positive fields of p and returns the resulting config.
func (t *Tunable) Apply(p TuningParams) Config {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p.TargetID > 0 {
		t.cfg.TargetID = p.TargetID
	}
	if p.TargetDistance > 0 {
		t.cfg.TargetDistance = p.TargetDistance
	}
	mergeAxes(&t.cfg.Gains, p.Gains)
	mergeAxes(&t.cfg.Limits, p.Limits)
	mergeAxes(&t.cfg.Deadband, p.Deadband)
	return t.cfg
}

func mergeAxes(dst *Axes, src Axes) {
	if src.Forward > 0 {
		dst.Forward = src.Forward
	}
	if src.Strafe > 0 {
		dst.Strafe = src.Strafe
	}
	if src.Turn > 0 {
		dst.Turn = src.Turn
	}
}
