package mechanism

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/apexftc/go-auton/pkg/timer"
)

// PositionalConfig describes one servo or slide.
type PositionalConfig struct {
	Name    string
	Channel int
	// Rate is the travel speed in units per second. Zero or less means
	// the mechanism reaches its target on the next Update.
	Rate      float64
	Tolerance float64
	Initial   float64
	Presets   map[string]float64
}

// Positional moves toward its target at a fixed rate and is busy until it
// is within tolerance. If an Actuator is attached the target is forwarded
// to it every Update; a failing actuator keeps the mechanism busy.
type Positional struct {
	cfg   PositionalConfig
	clock timer.Clock
	act   Actuator

	mu      sync.Mutex
	target  float64
	current float64
	last    time.Time
	fault   error
}

// NewPositional creates a positional mechanism. act may be nil.
func NewPositional(cfg PositionalConfig, clock timer.Clock, act Actuator) *Positional {
	if clock == nil {
		clock = timer.RealClock{}
	}
	presets := make(map[string]float64, len(cfg.Presets))
	for k, v := range cfg.Presets {
		presets[k] = v
	}
	cfg.Presets = presets
	return &Positional{
		cfg:     cfg,
		clock:   clock,
		act:     act,
		target:  cfg.Initial,
		current: cfg.Initial,
		last:    clock.Now(),
	}
}

// Name returns the logical name.
func (p *Positional) Name() string { return p.cfg.Name }

// SetTarget sets a new target. Setting the same target again is a no-op.
func (p *Positional) SetTarget(v float64) {
	p.mu.Lock()
	p.target = v
	p.mu.Unlock()
}

// Target returns the commanded target.
func (p *Positional) Target() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

// State returns the current simulated position.
func (p *Positional) State() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// IsBusy reports whether the mechanism is still travelling or faulted.
func (p *Positional) IsBusy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fault != nil {
		return true
	}
	return math.Abs(p.target-p.current) > p.cfg.Tolerance
}

// Fault returns the last actuator error, if any.
func (p *Positional) Fault() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fault
}

// Preset sets the target to a named value.
func (p *Positional) Preset(name string) error {
	v, ok := p.cfg.Presets[name]
	if !ok {
		return &PresetError{Mechanism: p.cfg.Name, Preset: name}
	}
	p.SetTarget(v)
	return nil
}

// HasPreset reports whether name is a defined preset.
func (p *Positional) HasPreset(name string) bool {
	_, ok := p.cfg.Presets[name]
	return ok
}

// Update advances the simulated position and forwards the target.
func (p *Positional) Update() {
	p.mu.Lock()
	now := p.clock.Now()
	dt := now.Sub(p.last).Seconds()
	p.last = now

	if p.cfg.Rate <= 0 {
		p.current = p.target
	} else {
		step := p.cfg.Rate * dt
		diff := p.target - p.current
		if math.Abs(diff) <= step {
			p.current = p.target
		} else {
			p.current += math.Copysign(step, diff)
		}
	}
	target := p.target
	act := p.act
	p.mu.Unlock()

	if act == nil {
		return
	}
	err := act.Command(p.cfg.Channel, target)
	if err != nil {
		err = fmt.Errorf("channel %d: %w", p.cfg.Channel, err)
	}
	p.mu.Lock()
	p.fault = err
	p.mu.Unlock()
}
