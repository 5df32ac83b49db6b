package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPhysics() Physics {
	return DefaultConfig().Physics
}

// newTestVehicle returns a vehicle at rest whose reaction timer has already run out.
func newTestVehicle(pos float64, p Physics) *Vehicle {
	v := &Vehicle{Position: pos, ReactionTimer: NewTimer(p.ReactionTime)}
	v.ReactionTimer.Finish()
	return v
}

func TestVehicle_Update_NoHazard_AcceleratesToMaxVelocity(t *testing.T) {
	// GIVEN a lone vehicle on green, far from the stop line
	p := testPhysics()
	v := newTestVehicle(1000, p)
	ctx := BrakingContext{SignalVisible: true, SignalColor: Green, StopLine: 3}

	// WHEN it is updated for enough ticks to reach top speed
	prev := v.Velocity
	for i := range 34 {
		d := v.Update(ctx, p, 1.0/64)
		require.False(t, d.ShouldBrake, "tick %d", i)
		assert.GreaterOrEqual(t, v.Velocity, prev, "velocity decreased at tick %d", i)
		assert.GreaterOrEqual(t, v.Acceleration, 0.0)
		prev = v.Velocity
	}

	// THEN it cruises at exactly MaxVelocity and stays there
	assert.Equal(t, p.MaxVelocity, v.Velocity)
	v.Update(ctx, p, 1.0/64)
	assert.Equal(t, p.MaxVelocity, v.Velocity)
}

func TestVehicle_Update_MovesInDirectionOfTravel(t *testing.T) {
	p := testPhysics()
	v := newTestVehicle(13, p)

	v.Update(BrakingContext{}, p, 0.1)

	assert.InDelta(t, 0.003, v.Velocity, 1e-15)
	assert.InDelta(t, 12.997, v.Position, 1e-12)

	p.Direction = 1
	w := newTestVehicle(13, p)
	w.Update(BrakingContext{}, p, 0.1)
	assert.InDelta(t, 13.003, w.Position, 1e-12)
}

func TestVehicle_Update_LeaderInsideStoppingDistance_BrakesImmediately(t *testing.T) {
	// GIVEN a vehicle cruising at top speed with a leader just beyond the buffer
	p := testPhysics()
	v := newTestVehicle(20, p)
	v.Velocity = p.MaxVelocity
	v.Acceleration = p.SpeedUpRate
	ctx := BrakingContext{HasLeader: true, LeaderPosition: 20 - p.BrakingBuffer - 1}

	// WHEN it is updated
	d := v.Update(ctx, p, 1.0/64)

	// THEN it brakes on this very tick, with no reaction delay
	assert.True(t, d.ShouldBrake)
	assert.True(t, d.BrakeEdge)
	assert.True(t, v.Braking)
	assert.LessOrEqual(t, v.Acceleration, p.BrakeRate)
	assert.Less(t, v.Velocity, p.MaxVelocity)
	assert.InDelta(t, p.BrakingBuffer+1, d.Gap, 1e-12)
}

func TestVehicle_Update_BrakeEdge_AppliesStrongerOfFixedAndRequiredRate(t *testing.T) {
	p := testPhysics()
	ctx := BrakingContext{SignalVisible: true, SignalColor: Red, StopLine: 3}

	// GIVEN a vehicle at top speed whose hazard is just inside its lookahead,
	// where the exact stopping rate is weaker than BrakeRate
	far := newTestVehicle(3+p.BrakingBuffer+1.6, p)
	far.Velocity = p.MaxVelocity

	// WHEN it first brakes
	d := far.Update(ctx, p, 1.0/64)

	// THEN the fixed rate applies
	require.True(t, d.BrakeEdge)
	assert.Equal(t, p.BrakeRate, far.Acceleration)

	// GIVEN a vehicle at top speed only 0.25 units short of the buffer
	near := newTestVehicle(3+p.BrakingBuffer+0.25, p)
	near.Velocity = p.MaxVelocity

	// WHEN it first brakes
	d = near.Update(ctx, p, 1.0/64)

	// THEN the exact stopping rate applies, stronger than BrakeRate
	require.True(t, d.BrakeEdge)
	assert.InDelta(t, RequiredDeceleration(p.MaxVelocity, 0.25), near.Acceleration, 1e-15)
	assert.Less(t, near.Acceleration, p.BrakeRate)
}

func TestVehicle_Update_SustainedBraking_NoSecondEdge(t *testing.T) {
	p := testPhysics()
	v := newTestVehicle(20, p)
	v.Velocity = p.MaxVelocity
	ctx := BrakingContext{HasLeader: true, LeaderPosition: 20 - p.BrakingBuffer - 1}

	first := v.Update(ctx, p, 1.0/64)
	second := v.Update(ctx, p, 1.0/64)

	assert.True(t, first.BrakeEdge)
	assert.True(t, second.ShouldBrake)
	assert.False(t, second.BrakeEdge, "braking flag must only flip on a genuine edge")
}

func TestVehicle_Update_Release_WaitsForReactionTime(t *testing.T) {
	// GIVEN a braking vehicle with a 0.5s reaction time and 0.125s ticks
	p := testPhysics()
	p.ReactionTime = 0.5
	v := newTestVehicle(20, p)
	v.Velocity = 0.05
	hazard := BrakingContext{HasLeader: true, LeaderPosition: 20 - p.BrakingBuffer - 0.1}
	v.Update(hazard, p, 0.125)
	require.True(t, v.Braking)
	brakingRate := v.Acceleration

	// WHEN the hazard clears
	d := v.Update(BrakingContext{}, p, 0.125)

	// THEN the flag drops and the timer restarts, but braking continues
	assert.True(t, d.ReleaseEdge)
	assert.False(t, v.Braking)
	assert.Equal(t, brakingRate, v.Acceleration)
	assert.Equal(t, 0.125, v.ReactionTimer.Elapsed())

	// WHEN the next two ticks pass, the vehicle has still not re-accelerated
	for range 2 {
		v.Update(BrakingContext{}, p, 0.125)
		assert.Equal(t, brakingRate, v.Acceleration)
	}

	// THEN on the tick that completes the reaction time it speeds up
	d = v.Update(BrakingContext{}, p, 0.125)
	assert.False(t, d.ReleaseEdge)
	assert.True(t, v.ReactionTimer.Finished())
	assert.Equal(t, p.SpeedUpRate, v.Acceleration)
}

func TestVehicle_Update_StationaryBraking_StaysAtZero(t *testing.T) {
	// GIVEN a stopped vehicle facing a red light inside its buffer
	p := testPhysics()
	v := newTestVehicle(3+p.BrakingBuffer-1, p)
	ctx := BrakingContext{SignalVisible: true, SignalColor: Red, StopLine: 3}

	for range 10 {
		d := v.Update(ctx, p, 1.0/64)
		assert.True(t, d.ShouldBrake)
	}

	// THEN deceleration applies but velocity clamps at zero: no reverse travel
	assert.Equal(t, 0.0, v.Velocity)
	assert.Equal(t, 3+p.BrakingBuffer-1, v.Position)
	assert.Less(t, v.Acceleration, 0.0)
}

func TestVehicle_Update_YellowOrPastLine_DoesNotBrakeForSignal(t *testing.T) {
	p := testPhysics()
	near := 3 + p.BrakingBuffer + 0.5

	yellow := newTestVehicle(near, p)
	d := yellow.Update(BrakingContext{SignalVisible: true, SignalColor: Yellow, StopLine: 3}, p, 1.0/64)
	assert.False(t, d.ShouldBrake)

	crossed := newTestVehicle(2, p)
	d = crossed.Update(BrakingContext{}, p, 1.0/64)
	assert.False(t, d.ShouldBrake)
}

func TestVehicle_Update_RedLight_StopsBeforeLineAndBuffer(t *testing.T) {
	// GIVEN a lone vehicle 50 units before a red light that never changes
	p := testPhysics()
	const stopLine = 3.0
	v := newTestVehicle(stopLine+50, p)
	ctx := BrakingContext{SignalVisible: true, SignalColor: Red, StopLine: stopLine}

	// WHEN it drives for a long time
	for i := range 5000 {
		v.Update(ctx, p, 1.0/64)
		// THEN it never enters the buffer in front of the line
		require.GreaterOrEqual(t, v.Position-stopLine, p.BrakingBuffer-1e-9, "tick %d", i)
		require.GreaterOrEqual(t, v.Velocity, 0.0)
		require.LessOrEqual(t, v.Velocity, p.MaxVelocity)
	}

	// THEN it ends up at rest, braking, close to the buffer edge
	assert.Equal(t, 0.0, v.Velocity)
	assert.True(t, v.Braking)
	assert.Less(t, v.Position-stopLine, p.BrakingBuffer+0.01)
}

func TestVehicle_Update_EmergencyInsideBuffer_StopsWithoutCrossing(t *testing.T) {
	// GIVEN a vehicle at top speed that sees red when already inside the buffer
	p := testPhysics()
	v := newTestVehicle(3+2, p)
	v.Velocity = p.MaxVelocity
	v.Acceleration = p.SpeedUpRate
	ctx := BrakingContext{SignalVisible: true, SignalColor: Red, StopLine: 3}

	// WHEN it is updated
	d := v.Update(ctx, p, 1.0/64)

	// THEN the stop-now rate applies and it does not move
	assert.True(t, d.BrakeEdge)
	assert.True(t, d.Stopped)
	assert.Equal(t, 0.0, v.Velocity)
	assert.Equal(t, 5.0, v.Position)
}
