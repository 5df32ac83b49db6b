package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// ControlEvent is a discrete mutation raised by an external collaborator
// (UI, input). Events are queued by Simulator.Raise and applied exactly once,
// in FIFO order, at the start of the next Step.
type ControlEvent interface {
	Name() string
	Apply(*Simulator)
}

// ResetEvent restores every vehicle to its start-of-run state and the signal to Red.
type ResetEvent struct{}

func (ResetEvent) Name() string { return "reset" }

// Apply resets the fleet and the signal.
func (ResetEvent) Apply(s *Simulator) {
	logrus.Infof("[tick %07d] << Reset", s.clock)
	s.fleet.Reset()
	s.signal.Reset()
	s.metrics.Resets++
}

// ReactionTimeDeltaEvent shifts the fleet-wide reaction time by Delta seconds.
type ReactionTimeDeltaEvent struct {
	Delta float64
}

func (e ReactionTimeDeltaEvent) Name() string {
	return fmt.Sprintf("reaction-time%+.2f", e.Delta)
}

// Apply adjusts the reaction time, floored at MinReactionTime.
func (e ReactionTimeDeltaEvent) Apply(s *Simulator) {
	rt := s.fleet.AdjustReactionTime(e.Delta)
	logrus.Infof("[tick %07d] << ReactionTimeDelta %+.2fs, now %.2fs", s.clock, e.Delta, rt)
}

// LightChanged is the outbound notification raised on every signal
// transition, at start-up and on reset. It is for presentation only;
// simulation correctness does not depend on anyone draining it.
type LightChanged struct {
	Tick  int64
	Color LightColor
}

func (lc LightChanged) String() string {
	return fmt.Sprintf("%s@%d", lc.Color, lc.Tick)
}
