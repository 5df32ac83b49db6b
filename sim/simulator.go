// sim/simulator.go
package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/trafficsim/sim/trace"
)

// Simulator owns the signal, the fleet and the message queues, and advances
// them together one fixed step at a time. It is driven by the host loop and
// must only be touched from one goroutine.
type Simulator struct {
	cfg   Config
	clock int64 // completed ticks

	signal *TrafficSignal
	fleet  *Fleet

	// control holds events raised by collaborators, applied at the next Step.
	control *MessageQueue[ControlEvent]
	// notifications holds LightChanged messages until the host drains them.
	notifications *MessageQueue[LightChanged]

	metrics *Metrics
	trace   *trace.SimulationTrace
}

// NewSimulator validates cfg and builds the signal and the fleet. The initial
// Red notification is queued (and traced) before NewSimulator returns.
// st may be nil to disable tracing.
func NewSimulator(cfg Config, st *trace.SimulationTrace) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}
	s := &Simulator{
		cfg:           cfg,
		control:       NewMessageQueue[ControlEvent](),
		notifications: NewMessageQueue[LightChanged](),
		metrics:       NewMetrics(),
		trace:         st,
	}
	fleet, err := NewFleet(cfg.Fleet, cfg.Signal.Position, cfg.Physics)
	if err != nil {
		return nil, fmt.Errorf("building fleet: %w", err)
	}
	s.fleet = fleet
	s.signal = NewTrafficSignal(cfg.Signal, s.emitLightChanged)
	return s, nil
}

func (s *Simulator) emitLightChanged(c LightColor) {
	s.notifications.Push(LightChanged{Tick: s.clock, Color: c})
	if s.trace != nil {
		s.trace.RecordSignalChange(trace.SignalChange{Tick: s.clock, Color: c.String()})
	}
}

// Raise queues a control event for the next Step.
func (s *Simulator) Raise(ev ControlEvent) {
	if ev == nil {
		panic("Raise: ev must not be nil")
	}
	s.control.Push(ev)
}

// DrainNotifications returns and clears the pending LightChanged messages.
func (s *Simulator) DrainNotifications() []LightChanged {
	return s.notifications.Drain()
}

// Step runs one tick:
//   - apply queued control events
//   - snapshot the signal color and step the fleet against it
//   - advance the signal by the tick length
//   - record metrics and trace
func (s *Simulator) Step() {
	for _, ev := range s.control.Drain() {
		ev.Apply(s)
	}

	dt := s.cfg.TickSeconds
	view := s.signal.View()
	before := s.fleet.Snapshot()
	decisions := s.fleet.Step(view, dt)
	s.checkViolations(before, view)

	if s.signal.Advance(dt) {
		s.metrics.RecordSignalChange(s.signal.Color())
	}

	states := s.fleet.Vehicles()
	s.metrics.RecordTick(decisions, states, dt)
	if s.trace != nil {
		s.trace.RecordTick(s.tickRecord(view.Color, states))
	}
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		for _, st := range states {
			logrus.Tracef("[tick %07d] vehicle %d pos=%.4f vel=%.4f acc=%.4f braking=%t",
				s.clock, st.ID, st.Position, st.Velocity, st.Acceleration, st.Braking)
		}
	}
	s.clock++
}

// Run executes ticks steps.
func (s *Simulator) Run(ticks int64) {
	logrus.Infof("[tick %07d] Running %d ticks (%.2fs simulated)", s.clock, ticks, float64(ticks)*s.cfg.TickSeconds)
	for range ticks {
		s.Step()
	}
	logrus.Infof("[tick %07d] Simulation ended, signal %s", s.clock, s.signal.Color())
}

// checkViolations counts vehicles that crossed the stop line during a tick
// that started on red.
func (s *Simulator) checkViolations(before []float64, view SignalView) {
	if view.Color != Red {
		return
	}
	dir := s.cfg.Physics.Direction
	for i, st := range s.fleet.Vehicles() {
		if distanceAhead(before[i], view.Position, dir) > 0 && distanceAhead(st.Position, view.Position, dir) <= 0 {
			logrus.Warnf("[tick %07d] vehicle %d crossed the stop line on red", s.clock, st.ID)
			s.metrics.RecordViolation(st.ID)
		}
	}
}

func (s *Simulator) tickRecord(light LightColor, states []VehicleState) trace.TickRecord {
	samples := make([]trace.VehicleSample, len(states))
	for i, st := range states {
		samples[i] = trace.VehicleSample{
			VehicleID:    int(st.ID),
			Position:     st.Position,
			Velocity:     st.Velocity,
			Acceleration: st.Acceleration,
			Braking:      st.Braking,
		}
	}
	return trace.TickRecord{
		Tick:     s.clock,
		Elapsed:  float64(s.clock+1) * s.cfg.TickSeconds,
		Light:    light.String(),
		Vehicles: samples,
	}
}

// Clock returns the number of completed ticks.
func (s *Simulator) Clock() int64 { return s.clock }

// Elapsed returns the simulated seconds covered so far.
func (s *Simulator) Elapsed() float64 { return float64(s.clock) * s.cfg.TickSeconds }

// Vehicles returns a read-only snapshot of every vehicle.
func (s *Simulator) Vehicles() []VehicleState { return s.fleet.Vehicles() }

// SignalColor returns the current light color.
func (s *Simulator) SignalColor() LightColor { return s.signal.Color() }

// Signal returns the current signal view.
func (s *Simulator) Signal() SignalView { return s.signal.View() }

// PhaseRemaining returns the seconds left in the current signal phase.
func (s *Simulator) PhaseRemaining() float64 { return s.signal.PhaseRemaining() }

// ReactionTime returns the current fleet-wide reaction time.
func (s *Simulator) ReactionTime() float64 { return s.fleet.ReactionTime() }

// Config returns the configuration the simulator was built with.
func (s *Simulator) Config() Config { return s.cfg }

func (s *Simulator) Metrics() *Metrics             { return s.metrics }
func (s *Simulator) Trace() *trace.SimulationTrace { return s.trace }
func (s *Simulator) PendingEvents() int            { return s.control.Len() }
