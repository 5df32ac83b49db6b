// Package sim provides the car-following and traffic-signal engine.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - signal.go: the Red -> Green -> Yellow -> Red state machine and its phase timers
//   - vehicle.go: the per-vehicle braking decision, hysteresis and integration
//   - fleet.go: snapshot, leader detection and the order-independent fleet step
//   - simulator.go: the fixed-step tick that ties the signal and the fleet together
//
// # Model
//
// One lane, one signal, an ordered line of vehicles sharing one performance
// envelope (Physics). Positions are scalars along the lane; Physics.Direction
// gives the sign of travel. Rates are per tick, timers run on simulated seconds.
//
// # Collaborators
//
// Everything outside the engine talks to it through a small surface:
//   - Vehicles / Signal: read-only snapshots for rendering
//   - Raise(ResetEvent{}) / Raise(ReactionTimeDeltaEvent{...}): control events,
//     applied at the start of the next Step
//   - DrainNotifications: LightChanged messages for presentation
//
// Sub-packages:
//   - sim/trace: per-tick recording (pure data)
//   - sim/store: persistence of finished runs through gorm
//   - sim/export: InfluxDB line-protocol export of a trace
package sim
