package sim

import "math"

// stoppingSafetyFactor scales the kinematic v²/2a term.
const stoppingSafetyFactor = 3.0

// MinimumStoppingDistance returns the distance needed to stop from velocity,
// including the distance covered during reactionTime before braking engages.
// Only the magnitude of deceleration is used; zero means the vehicle cannot stop.
func MinimumStoppingDistance(velocity, deceleration, reactionTime float64) float64 {
	decel := math.Abs(deceleration)
	if decel == 0 {
		return math.Inf(1)
	}
	return velocity*reactionTime + (stoppingSafetyFactor*velocity*velocity)/(2*decel)
}

// RequiredDeceleration returns the (negative) rate that brings velocity to zero
// exactly after remaining distance.
//
// A remaining distance <= 0 means the vehicle should already be stopped; the
// stop-now rate -velocity is returned instead of dividing by zero. The result
// is never stronger than -velocity, which stops the vehicle within one tick.
func RequiredDeceleration(velocity, remaining float64) float64 {
	if velocity <= 0 {
		return 0
	}
	if remaining <= 0 {
		return -velocity
	}
	return math.Max(-(velocity*velocity)/(2*remaining), -velocity)
}
