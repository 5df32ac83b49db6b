package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inference-sim/trafficsim/sim"
)

const reactionStep = 0.1

var (
	roadStyle   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	textStyle   = tcell.StyleDefault
	helpStyle   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	cruiseStyle = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	brakeStyle  = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
)

// lightStyles maps each light color straight to its screen style.
var lightStyles = map[sim.LightColor]tcell.Style{
	sim.Red:    tcell.StyleDefault.Foreground(tcell.ColorRed),
	sim.Green:  tcell.StyleDefault.Foreground(tcell.ColorGreen),
	sim.Yellow: tcell.StyleDefault.Foreground(tcell.ColorYellow),
}

// watchCmd runs the simulation in real time in the terminal.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the simulation live in the terminal",
	Run: func(cmd *cobra.Command, args []string) {
		s := loadSettings()
		closeLog, err := setupLogging(s.LogLevel, s.GELFAddr)
		if err != nil {
			logrus.Fatalf("Logging setup failed: %v", err)
		}
		defer closeLog()
		if s.GELFAddr == "" {
			// stderr would scribble over the screen
			logrus.SetOutput(io.Discard)
		}

		cfg, err := buildConfig(s.Scenario)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		simulator, err := sim.NewSimulator(cfg, nil)
		if err != nil {
			logrus.Fatalf("Building simulator: %v", err)
		}

		screen, err := tcell.NewScreen()
		if err != nil {
			logrus.Fatalf("Opening terminal: %v", err)
		}
		if err := screen.Init(); err != nil {
			logrus.Fatalf("Initializing terminal: %v", err)
		}
		defer screen.Fini()

		watch(cmd.Context(), screen, simulator, tickInterval(cfg.TickSeconds, s.Speed))
	},
}

// minTickInterval bounds how fast watch can step; time.NewTicker rejects zero.
const minTickInterval = time.Millisecond

// tickInterval returns the wall-clock time between steps for a playback speed.
func tickInterval(tickSeconds, speed float64) time.Duration {
	return max(time.Duration(tickSeconds/speed*float64(time.Second)), minTickInterval)
}

// watch drives the simulator from a ticker and forwards key presses to it
// until the user quits or ctx is cancelled. The simulator is only touched
// from this goroutine.
func watch(ctx context.Context, screen tcell.Screen, s *sim.Simulator, interval time.Duration) {
	events := make(chan tcell.Event, 100)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	v := newView(s)
	render(screen, v)
	screen.Show()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if _, ok := ev.(*tcell.EventResize); ok {
				screen.Sync()
				continue
			}
			if handleEvent(ev, s) {
				return
			}
		case <-ticker.C:
			s.Step()
			for _, n := range s.DrainNotifications() {
				logrus.Debugf("[tick %07d] light changed to %s", n.Tick, n.Color)
				v.lastChange = n
			}
			v.refresh(s)
			render(screen, v)
			screen.Show()
		}
	}
}

// handleEvent maps a key press onto a control event. It reports whether the
// user asked to quit.
func handleEvent(ev tcell.Event, s *sim.Simulator) bool {
	key, ok := ev.(*tcell.EventKey)
	if !ok {
		return false
	}
	switch key.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		switch key.Rune() {
		case 'q':
			return true
		case 'r':
			s.Raise(sim.ResetEvent{})
		case '+', '=':
			s.Raise(sim.ReactionTimeDeltaEvent{Delta: reactionStep})
		case '-':
			s.Raise(sim.ReactionTimeDeltaEvent{Delta: -reactionStep})
		}
	}
	return false
}

// view is everything render needs, copied out of the simulator.
type view struct {
	cfg            sim.Config
	tick           int64
	elapsed        float64
	signal         sim.SignalView
	phaseRemaining float64
	reactionTime   float64
	vehicles       []sim.VehicleState
	lastChange     sim.LightChanged
}

func newView(s *sim.Simulator) view {
	v := view{cfg: s.Config()}
	v.refresh(s)
	return v
}

func (v *view) refresh(s *sim.Simulator) {
	v.tick = s.Clock()
	v.elapsed = s.Elapsed()
	v.signal = s.Signal()
	v.phaseRemaining = s.PhaseRemaining()
	v.reactionTime = s.ReactionTime()
	v.vehicles = s.Vehicles()
}

// laneSpan returns how far the lane extends behind and past the stop line.
func (v view) laneSpan() (behind, ahead float64) {
	f := v.cfg.Fleet
	behind = f.LeadDistance + float64(f.Vehicles-1)*f.Spacing + v.cfg.Physics.BrakingBuffer
	return behind, max(v.cfg.Physics.BrakingBuffer*2, behind/4)
}

// column maps a lane position onto a screen column. Travel is always drawn
// left to right.
func (v view) column(pos float64, width int) int {
	behind, ahead := v.laneSpan()
	u := (v.signal.Position - pos) * v.cfg.Physics.Direction
	x := int((behind - u) / (behind + ahead) * float64(width-1))
	return min(max(x, 0), width-1)
}

// render draws a status line, one lane row per vehicle and a help line.
func render(screen tcell.Screen, v view) {
	screen.Clear()
	width, height := screen.Size()
	if width < 2 || height < 3 {
		return
	}

	light := lightStyles[v.signal.Color]
	status := fmt.Sprintf("tick %d  t=%.2fs  signal %s (%.1fs)  reaction %.2fs",
		v.tick, v.elapsed, strings.ToUpper(v.signal.Color.String()), v.phaseRemaining, v.reactionTime)
	drawText(screen, 0, 0, textStyle, status)

	line := v.column(v.signal.Position, width)
	for i, st := range v.vehicles {
		y := i + 1
		if y >= height-1 {
			break
		}
		for x := range width {
			screen.SetContent(x, y, '-', nil, roadStyle)
		}
		screen.SetContent(line, y, '|', nil, light)
		style := cruiseStyle
		if st.Braking {
			style = brakeStyle
		}
		screen.SetContent(v.column(st.Position, width), y, '>', nil, style)
	}

	help := "r reset  +/- reaction time  q quit"
	if v.lastChange.Tick > 0 {
		help = fmt.Sprintf("%s  last change %s", help, v.lastChange)
	}
	drawText(screen, 0, height-1, helpStyle, help)
}

func drawText(screen tcell.Screen, x, y int, style tcell.Style, text string) {
	width, _ := screen.Size()
	for _, r := range text {
		if x >= width {
			return
		}
		screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func init() {
	watchCmd.Flags().Float64("speed", 1, "Playback speed relative to real time")
	bindFlags(watchCmd)
}

// speedSetting reads the playback speed, falling back to real time for
// non-positive values.
func speedSetting() float64 {
	if sp := viper.GetFloat64("speed"); sp > 0 {
		return sp
	}
	return 1
}
