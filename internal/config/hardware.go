package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingMapping is returned when a logical subsystem has no hardware entry.
	ErrMissingMapping = errors.New("config: missing hardware mapping")

	// ErrDuplicateChannel is returned when two mechanisms share a hub channel.
	ErrDuplicateChannel = errors.New("config: duplicate hub channel")
)

// SerialConfig selects the hub bridge port.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// VisionConfig points at the fiducial coprocessor.
type VisionConfig struct {
	URL       string        `yaml:"url"`
	UnitScale float64       `yaml:"unit_scale"` // multiplier from coprocessor units to controller units
	Timeout   time.Duration `yaml:"timeout"`
}

// DriveConfig holds drivetrain options.
type DriveConfig struct {
	VoltageCompensation bool    `yaml:"voltage_compensation"`
	NominalVoltage      float64 `yaml:"nominal_voltage"`
	MaxMultiplier       float64 `yaml:"max_multiplier"`
}

// MechanismConfig maps one logical mechanism to a hub channel.
type MechanismConfig struct {
	Channel   int     `yaml:"channel"`
	Rate      float64 `yaml:"rate"`      // units per second, 0 keeps the mechanism default
	Tolerance float64 `yaml:"tolerance"` // 0 keeps the mechanism default
}

// HardwareMap is the explicit mapping from logical subsystem names to
// hardware handles. It replaces string lookups scattered through opmodes.
type HardwareMap struct {
	Serial     SerialConfig               `yaml:"serial"`
	Vision     VisionConfig               `yaml:"vision"`
	Drive      DriveConfig                `yaml:"drive"`
	Mechanisms map[string]MechanismConfig `yaml:"mechanisms"`
}

// DefaultHardwareMap returns the wiring of the competition robot.
func DefaultHardwareMap() HardwareMap {
	return HardwareMap{
		Serial: SerialConfig{Port: SerialPort(), Baud: SerialBaud()},
		Vision: VisionConfig{
			URL:       LimelightURL(),
			UnitScale: 100, // meters to centimeters
			Timeout:   15 * time.Millisecond,
		},
		Drive: DriveConfig{
			VoltageCompensation: true,
			NominalVoltage:      12.0,
			MaxMultiplier:       1.4,
		},
		Mechanisms: map[string]MechanismConfig{
			"claw_grip":  {Channel: 0},
			"claw_wrist": {Channel: 1},
			"slides":     {Channel: 2},
			"arm":        {Channel: 3},
			"hslides":    {Channel: 4},
			"intake":     {Channel: 5},
			"transfer":   {Channel: 6},
			"outtake":    {Channel: 7},
			"spindexer":  {Channel: 8},
		},
	}
}

// LoadHardwareMap reads a YAML hardware map. Fields missing from the file
// keep their defaults.
func LoadHardwareMap(path string) (HardwareMap, error) {
	hm := DefaultHardwareMap()
	data, err := os.ReadFile(path)
	if err != nil {
		return hm, fmt.Errorf("read hardware map: %w", err)
	}
	if err := yaml.Unmarshal(data, &hm); err != nil {
		return hm, fmt.Errorf("parse hardware map %s: %w", path, err)
	}
	return hm, nil
}

// Validate checks that every required mechanism is mapped and that no two
// mechanisms share a channel.
func (hm HardwareMap) Validate(required ...string) error {
	var missing []string
	for _, name := range required {
		if _, ok := hm.Mechanisms[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingMapping, strings.Join(missing, ", "))
	}

	names := make([]string, 0, len(hm.Mechanisms))
	for name := range hm.Mechanisms {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[int]string, len(names))
	for _, name := range names {
		ch := hm.Mechanisms[name].Channel
		if prev, ok := seen[ch]; ok {
			return fmt.Errorf("%w: %d used by %s and %s", ErrDuplicateChannel, ch, prev, name)
		}
		seen[ch] = name
	}
	return nil
}
