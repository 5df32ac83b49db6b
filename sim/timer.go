package sim

import (
	"math"
	"time"
)

// Timer is a one-shot, restartable countdown measured in simulated seconds.
// It backs both the signal's phase timers and each vehicle's reaction timer.
//
// Time is accumulated in whole nanoseconds so that a phase made of N equal
// steps finishes on exactly the Nth step for any decimal step size.
type Timer struct {
	duration time.Duration
	elapsed  time.Duration
}

// seconds converts a float64 second count to the nearest nanosecond.
func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// NewTimer creates a Timer with zero elapsed time.
func NewTimer(duration float64) *Timer {
	return &Timer{duration: seconds(duration)}
}

// Tick advances the timer by dt seconds. Elapsed time never exceeds the duration.
func (t *Timer) Tick(dt float64) {
	t.elapsed = min(t.elapsed+seconds(dt), t.duration)
}

// Finished reports whether the full duration has elapsed.
func (t *Timer) Finished() bool {
	return t.elapsed >= t.duration
}

// Reset restarts the timer from zero.
func (t *Timer) Reset() {
	t.elapsed = 0
}

// Finish marks the timer as already elapsed.
func (t *Timer) Finish() {
	t.elapsed = t.duration
}

// SetDuration changes the duration while keeping the elapsed time.
// A finished timer stays finished.
func (t *Timer) SetDuration(d float64) {
	wasFinished := t.Finished()
	t.duration = seconds(d)
	if wasFinished || t.elapsed > t.duration {
		t.elapsed = t.duration
	}
}

func (t *Timer) Duration() float64 { return t.duration.Seconds() }
func (t *Timer) Elapsed() float64  { return t.elapsed.Seconds() }

// Remaining returns the seconds left before the timer finishes.
func (t *Timer) Remaining() float64 {
	return (t.duration - t.elapsed).Seconds()
}
