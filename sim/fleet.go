package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Fleet is the arena of vehicles plus the per-tick coordination logic.
// Vehicles are addressed by VehicleID, which is their index in the arena.
type Fleet struct {
	vehicles []Vehicle
	physics  Physics
	layout   FleetConfig
	stopLine float64
}

// NewFleet places cfg.Vehicles vehicles evenly behind stopLine.
func NewFleet(cfg FleetConfig, stopLine float64, physics Physics) (*Fleet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := physics.Validate(); err != nil {
		return nil, err
	}
	f := &Fleet{
		vehicles: make([]Vehicle, cfg.Vehicles),
		physics:  physics,
		layout:   cfg,
		stopLine: stopLine,
	}
	for i := range f.vehicles {
		f.vehicles[i] = Vehicle{
			ID:            VehicleID(i),
			ReactionTimer: NewTimer(physics.ReactionTime),
		}
	}
	f.Reset()
	return f, nil
}

// InitialPosition returns the start-of-run position of slot i.
func (f *Fleet) InitialPosition(i int) float64 {
	return f.stopLine - f.physics.Direction*(f.layout.LeadDistance+float64(i)*f.layout.Spacing)
}

// Reset restores the exact start-of-run configuration: initial slot positions,
// zero velocity and acceleration, no braking, and a reaction timer that has
// already run out (vehicles start with no hazard to react to).
func (f *Fleet) Reset() {
	for i := range f.vehicles {
		v := &f.vehicles[i]
		v.Position = f.InitialPosition(i)
		v.Velocity = 0
		v.Acceleration = 0
		v.Braking = false
		v.ReactionTimer.SetDuration(f.physics.ReactionTime)
		v.ReactionTimer.Finish()
	}
}

// AdjustReactionTime shifts the reaction time of every vehicle by delta,
// never letting it drop below MinReactionTime. Returns the new value.
func (f *Fleet) AdjustReactionTime(delta float64) float64 {
	rt := f.physics.ReactionTime + delta
	if rt < MinReactionTime {
		logrus.Warnf("reaction time %.3fs below floor, using %.3fs", rt, MinReactionTime)
		rt = MinReactionTime
	}
	f.physics.ReactionTime = rt
	for i := range f.vehicles {
		f.vehicles[i].ReactionTimer.SetDuration(rt)
	}
	return rt
}

// Snapshot copies every vehicle position, indexed by VehicleID.
func (f *Fleet) Snapshot() []float64 {
	positions := make([]float64, len(f.vehicles))
	for i := range f.vehicles {
		positions[i] = f.vehicles[i].Position
	}
	return positions
}

// LeaderOf returns the nearest vehicle strictly ahead of id in the direction
// of travel, using only the snapshot. Linear scan: O(n) per vehicle, O(n²)
// per tick, which is fine for the short queues this models.
func (f *Fleet) LeaderOf(id VehicleID, snapshot []float64) (VehicleID, bool) {
	pos := snapshot[id]
	leader, best, found := VehicleID(0), 0.0, false
	for j, other := range snapshot {
		if VehicleID(j) == id {
			continue
		}
		ahead := distanceAhead(pos, other, f.physics.Direction)
		if ahead <= 0 {
			continue
		}
		if !found || ahead < best {
			leader, best, found = VehicleID(j), ahead, true
		}
	}
	return leader, found
}

// Contexts builds the BrakingContext of every vehicle from the snapshot and
// the signal as observed at the start of the tick.
func (f *Fleet) Contexts(snapshot []float64, signal SignalView) []BrakingContext {
	ctxs := make([]BrakingContext, len(snapshot))
	for i, pos := range snapshot {
		ctx := BrakingContext{}
		if leader, ok := f.LeaderOf(VehicleID(i), snapshot); ok {
			ctx.HasLeader = true
			ctx.LeaderPosition = snapshot[leader]
		}
		if distanceAhead(pos, signal.Position, f.physics.Direction) > 0 {
			ctx.SignalVisible = true
			ctx.SignalColor = signal.Color
			ctx.StopLine = signal.Position
		}
		ctxs[i] = ctx
	}
	return ctxs
}

// Step advances every vehicle by one tick. All contexts are computed from the
// pre-tick snapshot before any vehicle moves, so update order does not matter.
func (f *Fleet) Step(signal SignalView, dt float64) []Decision {
	ctxs := f.Contexts(f.Snapshot(), signal)
	decisions := make([]Decision, len(f.vehicles))
	for i := range f.vehicles {
		decisions[i] = f.vehicles[i].Update(ctxs[i], f.physics, dt)
	}
	return decisions
}

// Vehicle returns the state of one vehicle.
func (f *Fleet) Vehicle(id VehicleID) (VehicleState, error) {
	if id < 0 || int(id) >= len(f.vehicles) {
		return VehicleState{}, fmt.Errorf("vehicle %d out of range [0,%d)", id, len(f.vehicles))
	}
	return f.vehicles[id].State(), nil
}

// Vehicles returns the state of every vehicle in handle order.
func (f *Fleet) Vehicles() []VehicleState {
	states := make([]VehicleState, len(f.vehicles))
	for i := range f.vehicles {
		states[i] = f.vehicles[i].State()
	}
	return states
}

// Len returns the number of vehicles.
func (f *Fleet) Len() int { return len(f.vehicles) }

// ReactionTime returns the current fleet-wide reaction time in seconds.
func (f *Fleet) ReactionTime() float64 { return f.physics.ReactionTime }

// Physics returns the shared performance envelope.
func (f *Fleet) Physics() Physics { return f.physics }

// ReactionTimer exposes a vehicle's reaction timer, for inspection only.
func (f *Fleet) ReactionTimer(id VehicleID) *Timer {
	return f.vehicles[id].ReactionTimer
}
