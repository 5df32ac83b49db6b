// Tracks run-wide statistics: braking activity, stops, signal changes and
// safety margins. Counters are mirrored to OpenTelemetry instruments.

package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/inference-sim/trafficsim/sim"

// Metrics aggregates statistics about a run for final reporting.
type Metrics struct {
	Ticks              int64   `json:"ticks"`
	ElapsedSeconds     float64 `json:"elapsed_seconds"`
	BrakeEdges         int     `json:"brake_edges"`
	ReleaseEdges       int     `json:"release_edges"`
	Stops              int     `json:"stops"`
	SignalChanges      int     `json:"signal_changes"`
	RedLightViolations int     `json:"red_light_violations"`
	Resets             int     `json:"resets"`
	PeakVelocity       float64 `json:"peak_velocity"`
	// MinFollowerGap is the smallest leader gap seen; +Inf until a leader exists.
	MinFollowerGap float64 `json:"-"`

	instruments *instruments
}

// NewMetrics creates Metrics bound to the global OpenTelemetry meter provider.
func NewMetrics() *Metrics {
	return &Metrics{
		MinFollowerGap: math.Inf(1),
		instruments:    newInstruments(otel.Meter(meterName)),
	}
}

type instruments struct {
	ticks         metric.Int64Counter
	brakeEdges    metric.Int64Counter
	stops         metric.Int64Counter
	signalChanges metric.Int64Counter
	violations    metric.Int64Counter
}

// newInstruments creates the counters, falling back to noop ones if the meter
// refuses an instrument.
func newInstruments(meter metric.Meter) *instruments {
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logrus.Warnf("metrics: instrument %s unavailable: %v", name, err)
			return noop.Int64Counter{}
		}
		return c
	}
	return &instruments{
		ticks:         counter("trafficsim.ticks", "Simulation ticks executed"),
		brakeEdges:    counter("trafficsim.brake_edges", "Vehicles switching from cruising to braking"),
		stops:         counter("trafficsim.stops", "Vehicles coming to rest"),
		signalChanges: counter("trafficsim.signal_changes", "Traffic signal transitions"),
		violations:    counter("trafficsim.red_light_violations", "Vehicles crossing the stop line on red"),
	}
}

// RecordTick folds one tick's decisions and post-tick states into the totals.
func (m *Metrics) RecordTick(decisions []Decision, states []VehicleState, tickSeconds float64) {
	ctx := context.Background()
	m.Ticks++
	m.ElapsedSeconds = float64(m.Ticks) * tickSeconds
	m.instruments.ticks.Add(ctx, 1)

	for _, d := range decisions {
		attrs := metric.WithAttributes(attribute.Int("vehicle", int(d.ID)))
		if d.BrakeEdge {
			m.BrakeEdges++
			m.instruments.brakeEdges.Add(ctx, 1, attrs)
		}
		if d.ReleaseEdge {
			m.ReleaseEdges++
		}
		if d.Stopped {
			m.Stops++
			m.instruments.stops.Add(ctx, 1, attrs)
		}
		if d.HasGap && d.Gap < m.MinFollowerGap {
			m.MinFollowerGap = d.Gap
		}
	}
	for _, st := range states {
		m.PeakVelocity = math.Max(m.PeakVelocity, st.Velocity)
	}
}

// RecordSignalChange counts a transition to color.
func (m *Metrics) RecordSignalChange(color LightColor) {
	m.SignalChanges++
	m.instruments.signalChanges.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("color", color.String())))
}

// RecordViolation counts a vehicle crossing the stop line while the signal is red.
func (m *Metrics) RecordViolation(id VehicleID) {
	m.RedLightViolations++
	m.instruments.violations.Add(context.Background(), 1,
		metric.WithAttributes(attribute.Int("vehicle", int(id))))
}

// MarshalJSON adds min_follower_gap, omitted when no vehicle ever had a leader.
func (m *Metrics) MarshalJSON() ([]byte, error) {
	type plain Metrics
	out := struct {
		*plain
		MinFollowerGap *float64 `json:"min_follower_gap,omitempty"`
	}{plain: (*plain)(m)}
	if !math.IsInf(m.MinFollowerGap, 1) {
		gap := m.MinFollowerGap
		out.MinFollowerGap = &gap
	}
	return json.Marshal(out)
}

// Print writes the metrics as an indented JSON block to stdout.
func (m *Metrics) Print() {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		logrus.Errorf("marshalling metrics: %v", err)
		return
	}
	fmt.Println("=== Simulation Metrics ===")
	fmt.Println(string(data))
}
