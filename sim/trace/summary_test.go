package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_NilTrace_ReturnsZeroSummary(t *testing.T) {
	s := Summarize(nil)

	assert.Equal(t, 0, s.TickCount)
	assert.NotNil(t, s.PeakVelocity)
	assert.NotNil(t, s.ColorDistribution)
}

func TestSummarize_AggregatesTicks(t *testing.T) {
	// GIVEN a trace with three ticks of two vehicles
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelTicks})
	st.RecordSignalChange(SignalChange{Tick: 0, Color: "red"})
	st.RecordTick(TickRecord{Tick: 0, Light: "red", Vehicles: []VehicleSample{
		{VehicleID: 0, Velocity: 0.01}, {VehicleID: 1, Velocity: 0.02, Braking: true},
	}})
	st.RecordTick(TickRecord{Tick: 1, Light: "red", Vehicles: []VehicleSample{
		{VehicleID: 0, Velocity: 0.04}, {VehicleID: 1, Velocity: 0.01, Braking: true},
	}})
	st.RecordSignalChange(SignalChange{Tick: 1, Color: "green"})
	st.RecordTick(TickRecord{Tick: 2, Light: "green", Vehicles: []VehicleSample{
		{VehicleID: 0, Velocity: 0.03}, {VehicleID: 1, Velocity: 0},
	}})

	// WHEN summarized
	s := Summarize(st)

	// THEN counts, peaks and color shares match
	assert.Equal(t, 3, s.TickCount)
	assert.Equal(t, 2, s.SignalChangeCount)
	assert.Equal(t, 2, s.BrakingSamples)
	assert.Equal(t, map[int]float64{0: 0.04, 1: 0.02}, s.PeakVelocity)
	assert.Equal(t, map[string]int{"red": 2, "green": 1}, s.ColorDistribution)
	assert.InDelta(t, 0.11/6, s.MeanVelocity, 1e-12)
	assert.InDelta(t, 0.015, s.VelocityP50, 1e-12)
}
