package sim

// VehicleID is a stable handle into the fleet arena.
type VehicleID int

// Vehicle is the mutable per-vehicle state. Position is a scalar coordinate
// along the lane; travel direction is given by Physics.Direction.
type Vehicle struct {
	ID            VehicleID
	Position      float64
	Velocity      float64 // always within [0, MaxVelocity]
	Acceleration  float64 // rate applied on the next integration
	Braking       bool    // hysteresis flag; only flips on a genuine edge
	ReactionTimer *Timer  // delay between a hazard clearing and re-accelerating
}

// VehicleState is a read-only copy of a vehicle for presentation and tracing.
type VehicleState struct {
	ID           VehicleID
	Position     float64
	Velocity     float64
	Acceleration float64
	Braking      bool
}

// State returns a copy of the observable vehicle state.
func (v *Vehicle) State() VehicleState {
	return VehicleState{
		ID:           v.ID,
		Position:     v.Position,
		Velocity:     v.Velocity,
		Acceleration: v.Acceleration,
		Braking:      v.Braking,
	}
}

// BrakingContext is what a vehicle knows about its surroundings for one tick.
// It is derived from the pre-tick snapshot and never stored.
type BrakingContext struct {
	HasLeader      bool
	LeaderPosition float64

	// SignalVisible is false once the vehicle has crossed the stop line.
	SignalVisible bool
	SignalColor   LightColor
	StopLine      float64
}

// Decision reports what happened to a vehicle during one update.
type Decision struct {
	ID          VehicleID
	ShouldBrake bool
	BrakeEdge   bool // not braking -> braking
	ReleaseEdge bool // braking -> not braking
	Stopped     bool // velocity went from positive to zero
	Gap         float64
	HasGap      bool
}

// distanceAhead measures how far target lies in front of position along the
// direction of travel. Negative values mean the target is behind.
func distanceAhead(position, target, direction float64) float64 {
	return (target - position) * direction
}

// hazard describes the nearest thing the vehicle must stop for this tick.
type hazard struct {
	remaining float64 // distance to the hazard minus the braking buffer
	found     bool
}

// nearestHazard returns the closest braking target that the vehicle is
// currently too close to, given the lookahead distance.
func nearestHazard(pos float64, ctx BrakingContext, p Physics, lookahead float64) hazard {
	var h hazard
	consider := func(remaining float64) {
		if remaining < lookahead && (!h.found || remaining < h.remaining) {
			h = hazard{remaining: remaining, found: true}
		}
	}
	if ctx.HasLeader {
		consider(distanceAhead(pos, ctx.LeaderPosition, p.Direction) - p.BrakingBuffer)
	}
	if ctx.SignalVisible && ctx.SignalColor == Red {
		consider(distanceAhead(pos, ctx.StopLine, p.Direction) - p.BrakingBuffer)
	}
	return h
}

// Update runs one tick of the braking decision and integrates velocity and
// position. dt is the tick length in seconds and only drives the reaction timer.
//
// Braking starts immediately when a hazard is inside the stopping distance,
// with no reaction delay. On every braking tick, the first one included, the
// applied rate is BrakeRate or the exact rate that stops at the hazard,
// whichever is stronger. Releasing the brake restarts the reaction timer, and
// the vehicle only re-accelerates once that timer has run out. Until then the
// previous acceleration is kept.
func (v *Vehicle) Update(ctx BrakingContext, p Physics, dt float64) Decision {
	d := Decision{ID: v.ID}
	if ctx.HasLeader {
		d.Gap = distanceAhead(v.Position, ctx.LeaderPosition, p.Direction)
		d.HasGap = true
	}

	// The distance covered this tick if the vehicle kept accelerating is added
	// to the stopping distance so the decision is never a tick late.
	stopping := MinimumStoppingDistance(v.Velocity, p.BrakeRate, p.ReactionTime)
	lookahead := stopping + min(v.Velocity+p.SpeedUpRate, p.MaxVelocity)

	h := nearestHazard(v.Position, ctx, p, lookahead)
	d.ShouldBrake = h.found

	switch {
	case d.ShouldBrake:
		if !v.Braking {
			v.Braking = true
			d.BrakeEdge = true
		}
		// The fixed rate, or the exact rate needed to stop at the hazard when
		// the fixed rate is too weak.
		v.Acceleration = min(p.BrakeRate, RequiredDeceleration(v.Velocity, h.remaining))
	default:
		if v.Braking {
			v.Braking = false
			v.ReactionTimer.Reset()
			d.ReleaseEdge = true
		}
		// Tick once, then check. The timer is not reset on completion; it stays
		// finished until the next release edge.
		v.ReactionTimer.Tick(dt)
		if v.ReactionTimer.Finished() {
			v.Acceleration = p.SpeedUpRate
		}
	}

	wasMoving := v.Velocity > 0
	v.Velocity = clampVelocity(v.Velocity+v.Acceleration, p.MaxVelocity)
	v.Position += p.Direction * v.Velocity
	d.Stopped = wasMoving && v.Velocity == 0
	return d
}

func clampVelocity(v, maxVelocity float64) float64 {
	if v > maxVelocity {
		return maxVelocity
	}
	if v < 0 {
		return 0
	}
	return v
}
