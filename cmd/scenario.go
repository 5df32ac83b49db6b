package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/trafficsim/sim"
)

// Scenario is the YAML overlay applied on top of sim.DefaultConfig().
// Nil pointer fields mean "not set in YAML"; they keep the default.
// All sections must be listed to satisfy KnownFields(true) strict parsing.
type Scenario struct {
	TickSeconds *float64        `yaml:"tick_seconds"`
	Physics     PhysicsScenario `yaml:"physics"`
	Signal      SignalScenario  `yaml:"signal"`
	Fleet       FleetScenario   `yaml:"fleet"`
}

type PhysicsScenario struct {
	MaxVelocity   *float64 `yaml:"max_velocity"`
	SpeedUpRate   *float64 `yaml:"speed_up_rate"`
	BrakeRate     *float64 `yaml:"brake_rate"`
	ReactionTime  *float64 `yaml:"reaction_time"`
	BrakingBuffer *float64 `yaml:"braking_buffer"`
	Direction     *float64 `yaml:"direction"`
}

type SignalScenario struct {
	Position      *float64 `yaml:"position"`
	RedSeconds    *float64 `yaml:"red_seconds"`
	GreenSeconds  *float64 `yaml:"green_seconds"`
	YellowSeconds *float64 `yaml:"yellow_seconds"`
}

type FleetScenario struct {
	Vehicles     *int     `yaml:"vehicles"`
	LeadDistance *float64 `yaml:"lead_distance"`
	Spacing      *float64 `yaml:"spacing"`
}

// LoadScenario reads a scenario file with strict field checking.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes scenario YAML. Unknown keys are errors so typos
// never silently fall back to defaults. An empty document is valid.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &sc, nil
}

// Apply overlays every set field of sc onto cfg.
func (sc *Scenario) Apply(cfg sim.Config) sim.Config {
	set(&cfg.TickSeconds, sc.TickSeconds)

	set(&cfg.Physics.MaxVelocity, sc.Physics.MaxVelocity)
	set(&cfg.Physics.SpeedUpRate, sc.Physics.SpeedUpRate)
	set(&cfg.Physics.BrakeRate, sc.Physics.BrakeRate)
	set(&cfg.Physics.ReactionTime, sc.Physics.ReactionTime)
	set(&cfg.Physics.BrakingBuffer, sc.Physics.BrakingBuffer)
	set(&cfg.Physics.Direction, sc.Physics.Direction)

	set(&cfg.Signal.Position, sc.Signal.Position)
	set(&cfg.Signal.RedSeconds, sc.Signal.RedSeconds)
	set(&cfg.Signal.GreenSeconds, sc.Signal.GreenSeconds)
	set(&cfg.Signal.YellowSeconds, sc.Signal.YellowSeconds)

	set(&cfg.Fleet.Vehicles, sc.Fleet.Vehicles)
	set(&cfg.Fleet.LeadDistance, sc.Fleet.LeadDistance)
	set(&cfg.Fleet.Spacing, sc.Fleet.Spacing)
	return cfg
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// buildConfig returns the defaults, overlaid with the scenario file if one is
// given, and validated.
func buildConfig(scenarioPath string) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if scenarioPath != "" {
		sc, err := LoadScenario(scenarioPath)
		if err != nil {
			return cfg, err
		}
		cfg = sc.Apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("scenario %q: %w", scenarioPath, err)
	}
	return cfg, nil
}
