package trace

// TraceLevel controls the verbosity of run tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelSignals captures signal changes only.
	TraceLevelSignals TraceLevel = "signals"
	// TraceLevelTicks captures signal changes and every sampled tick.
	TraceLevelTicks TraceLevel = "ticks"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:    true,
	TraceLevelSignals: true,
	TraceLevelTicks:   true,
	"":                true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level       TraceLevel
	SampleEvery int64 // keep every Nth tick; <= 1 keeps all
}

// SimulationTrace collects records during a run.
type SimulationTrace struct {
	Config        TraceConfig
	Ticks         []TickRecord
	SignalChanges []SignalChange
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:        config,
		Ticks:         make([]TickRecord, 0),
		SignalChanges: make([]SignalChange, 0),
	}
}

// Enabled reports whether anything is recorded at all.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level != TraceLevelNone && st.Config.Level != ""
}

// RecordTick appends a tick record if tick-level tracing is on and the tick
// falls on the sampling interval.
func (st *SimulationTrace) RecordTick(record TickRecord) {
	if st.Config.Level != TraceLevelTicks {
		return
	}
	if n := st.Config.SampleEvery; n > 1 && record.Tick%n != 0 {
		return
	}
	st.Ticks = append(st.Ticks, record)
}

// RecordSignalChange appends a signal change record.
func (st *SimulationTrace) RecordSignalChange(record SignalChange) {
	if !st.Enabled() {
		return
	}
	st.SignalChanges = append(st.SignalChanges, record)
}
