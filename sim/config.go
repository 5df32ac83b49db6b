package sim

import (
	"errors"
	"fmt"
)

// MinReactionTime is the floor applied to reaction-time adjustments (seconds).
const MinReactionTime = 0.05

// Physics groups the performance envelope shared by every vehicle.
// Rates are per tick: velocity changes by the rate once each Step.
type Physics struct {
	MaxVelocity   float64 // distance per tick (must be > 0)
	SpeedUpRate   float64 // acceleration applied when cruising (must be > 0)
	BrakeRate     float64 // fixed deceleration applied on a brake edge (must be < 0)
	ReactionTime  float64 // seconds before re-accelerating once a hazard clears (must be > 0)
	BrakingBuffer float64 // distance kept to the leader and to the stop line (must be >= 0)
	Direction     float64 // +1 or -1: sign of travel along the lane
}

// SignalConfig groups the stop-line position and phase durations (seconds).
type SignalConfig struct {
	Position      float64
	RedSeconds    float64
	GreenSeconds  float64
	YellowSeconds float64
}

// FleetConfig controls how many vehicles start behind the stop line and where.
// Vehicle i starts at Position - Direction*(LeadDistance + i*Spacing).
type FleetConfig struct {
	Vehicles     int
	LeadDistance float64
	Spacing      float64
}

// Config is the full simulation configuration.
type Config struct {
	TickSeconds float64 // fixed step size in simulated seconds (must be > 0)
	Physics     Physics
	Signal      SignalConfig
	Fleet       FleetConfig
}

// DefaultConfig returns the stock three-vehicle scenario: a stop line at 3.0,
// vehicles travelling towards decreasing positions, 64 ticks per second.
func DefaultConfig() Config {
	return Config{
		TickSeconds: 1.0 / 64.0,
		Physics: Physics{
			MaxVelocity:   0.1,
			SpeedUpRate:   0.003,
			BrakeRate:     -0.01,
			ReactionTime:  0.4,
			BrakingBuffer: 6.0,
			Direction:     -1,
		},
		Signal: SignalConfig{
			Position:      3.0,
			RedSeconds:    10,
			GreenSeconds:  10,
			YellowSeconds: 3,
		},
		Fleet: FleetConfig{
			Vehicles:     3,
			LeadDistance: 10,
			Spacing:      10,
		},
	}
}

var (
	// ErrEmptyFleet is returned when no vehicles are configured.
	ErrEmptyFleet = errors.New("fleet must contain at least one vehicle")
	// ErrInvalidDirection is returned when Direction is not +1 or -1.
	ErrInvalidDirection = errors.New("direction must be +1 or -1")
)

// Validate checks that the physics envelope is usable.
func (p Physics) Validate() error {
	if p.MaxVelocity <= 0 {
		return fmt.Errorf("max velocity must be positive, got %g", p.MaxVelocity)
	}
	if p.SpeedUpRate <= 0 {
		return fmt.Errorf("speed-up rate must be positive, got %g", p.SpeedUpRate)
	}
	if p.BrakeRate >= 0 {
		return fmt.Errorf("brake rate must be negative, got %g", p.BrakeRate)
	}
	if p.ReactionTime <= 0 {
		return fmt.Errorf("reaction time must be positive, got %g", p.ReactionTime)
	}
	if p.BrakingBuffer < 0 {
		return fmt.Errorf("braking buffer must be non-negative, got %g", p.BrakingBuffer)
	}
	if p.Direction != 1 && p.Direction != -1 {
		return fmt.Errorf("%w, got %g", ErrInvalidDirection, p.Direction)
	}
	return nil
}

// Validate checks that every phase has a positive duration.
func (s SignalConfig) Validate() error {
	for _, phase := range []struct {
		name string
		secs float64
	}{{"red", s.RedSeconds}, {"green", s.GreenSeconds}, {"yellow", s.YellowSeconds}} {
		if phase.secs <= 0 {
			return fmt.Errorf("%s phase duration must be positive, got %g", phase.name, phase.secs)
		}
	}
	return nil
}

// Validate checks the fleet layout.
func (f FleetConfig) Validate() error {
	if f.Vehicles <= 0 {
		return ErrEmptyFleet
	}
	if f.Spacing < 0 {
		return fmt.Errorf("spacing must be non-negative, got %g", f.Spacing)
	}
	return nil
}

// Validate checks the whole configuration. Any error here is a start-up
// configuration error, never a per-tick one.
func (c Config) Validate() error {
	if c.TickSeconds <= 0 {
		return fmt.Errorf("tick seconds must be positive, got %g", c.TickSeconds)
	}
	if err := c.Physics.Validate(); err != nil {
		return fmt.Errorf("physics: %w", err)
	}
	if err := c.Signal.Validate(); err != nil {
		return fmt.Errorf("signal: %w", err)
	}
	if err := c.Fleet.Validate(); err != nil {
		return fmt.Errorf("fleet: %w", err)
	}
	return nil
}
