package sim

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// LightColor is the active color of the traffic signal.
type LightColor int

const (
	Red LightColor = iota
	Green
	Yellow
)

var lightColorNames = map[LightColor]string{
	Red:    "red",
	Green:  "green",
	Yellow: "yellow",
}

func (c LightColor) String() string {
	if name, ok := lightColorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("LightColor(%d)", int(c))
}

// Next returns the color that follows c in the fixed cycle Red -> Green -> Yellow -> Red.
func (c LightColor) Next() LightColor {
	switch c {
	case Red:
		return Green
	case Green:
		return Yellow
	default:
		return Red
	}
}

// ParseLightColor converts a case-insensitive color name into a LightColor.
func ParseLightColor(s string) (LightColor, error) {
	for c, name := range lightColorNames {
		if strings.EqualFold(s, name) {
			return c, nil
		}
	}
	return Red, fmt.Errorf("unknown light color %q", s)
}

// SignalView is the read-only view of the signal that vehicles observe during a tick.
type SignalView struct {
	Color    LightColor
	Position float64
}

// TrafficSignal is the single signal of the simulation. It owns one phase
// timer per color and advances only the timer of the active phase.
type TrafficSignal struct {
	color    LightColor
	position float64
	timers   map[LightColor]*Timer
	notify   func(LightColor)
}

// NewTrafficSignal creates a signal in the Red phase and emits the initial
// Red notification through notify. notify may be nil.
func NewTrafficSignal(cfg SignalConfig, notify func(LightColor)) *TrafficSignal {
	if notify == nil {
		notify = func(LightColor) {}
	}
	ts := &TrafficSignal{
		color:    Red,
		position: cfg.Position,
		timers: map[LightColor]*Timer{
			Red:    NewTimer(cfg.RedSeconds),
			Green:  NewTimer(cfg.GreenSeconds),
			Yellow: NewTimer(cfg.YellowSeconds),
		},
		notify: notify,
	}
	ts.notify(Red)
	return ts
}

// Advance ticks the active phase timer by dt and moves to the next color when
// it finishes. At most one transition happens per call. Returns true on a transition.
func (ts *TrafficSignal) Advance(dt float64) bool {
	timer := ts.timers[ts.color]
	timer.Tick(dt)
	if !timer.Finished() {
		return false
	}
	prev := ts.color
	ts.color = ts.color.Next()
	ts.timers[ts.color].Reset()
	logrus.Debugf("signal %s -> %s", prev, ts.color)
	ts.notify(ts.color)
	return true
}

// Reset forces the signal back to Red, zeroes every phase timer and emits a
// fresh Red notification.
func (ts *TrafficSignal) Reset() {
	ts.color = Red
	for _, t := range ts.timers {
		t.Reset()
	}
	ts.notify(Red)
}

func (ts *TrafficSignal) Color() LightColor { return ts.color }
func (ts *TrafficSignal) Position() float64 { return ts.position }
func (ts *TrafficSignal) View() SignalView  { return SignalView{Color: ts.color, Position: ts.position} }

// PhaseElapsed returns the seconds spent in the current phase.
func (ts *TrafficSignal) PhaseElapsed() float64 {
	return ts.timers[ts.color].Elapsed()
}

// PhaseRemaining returns the seconds left before the current phase ends.
func (ts *TrafficSignal) PhaseRemaining() float64 {
	return ts.timers[ts.color].Remaining()
}

// PhaseTimer exposes the timer for color c, for inspection only.
func (ts *TrafficSignal) PhaseTimer(c LightColor) *Timer {
	return ts.timers[c]
}
