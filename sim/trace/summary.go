package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TickCount         int
	SignalChangeCount int
	BrakingSamples    int
	PeakVelocity      map[int]float64 // vehicle ID → highest sampled velocity
	ColorDistribution map[string]int  // light color → number of sampled ticks

	// Fleet-wide velocity distribution over every sample.
	MeanVelocity float64
	VelocityP50  float64
	VelocityP95  float64
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		PeakVelocity:      make(map[int]float64),
		ColorDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	var velocities []float64
	summary.TickCount = len(st.Ticks)
	summary.SignalChangeCount = len(st.SignalChanges)
	for _, tr := range st.Ticks {
		summary.ColorDistribution[tr.Light]++
		for _, v := range tr.Vehicles {
			velocities = append(velocities, v.Velocity)
			if v.Braking {
				summary.BrakingSamples++
			}
			if peak, ok := summary.PeakVelocity[v.VehicleID]; !ok || v.Velocity > peak {
				summary.PeakVelocity[v.VehicleID] = v.Velocity
			}
		}
	}
	summary.MeanVelocity = Mean(velocities)
	summary.VelocityP50 = Percentile(velocities, 50)
	summary.VelocityP95 = Percentile(velocities, 95)

	return summary
}
