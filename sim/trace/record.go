// Package trace provides per-tick recording of a simulation run.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// VehicleSample captures one vehicle's state at the end of a tick.
type VehicleSample struct {
	VehicleID    int
	Position     float64
	Velocity     float64
	Acceleration float64
	Braking      bool
}

// TickRecord captures the whole fleet at the end of a tick, together with the
// signal color the vehicles observed during that tick.
type TickRecord struct {
	Tick     int64
	Elapsed  float64 // simulated seconds at the end of the tick
	Light    string
	Vehicles []VehicleSample
}

// SignalChange captures a LightChanged notification.
type SignalChange struct {
	Tick  int64
	Color string
}
