// Package export writes simulation traces as InfluxDB line protocol, one
// point per line, ready for `influx write` or a Telegraf file input.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/inference-sim/trafficsim/sim/trace"
)

const (
	MeasurementVehicle = "vehicle"
	MeasurementSignal  = "signal"
)

// VehiclePoints converts one tick record into a point per vehicle, stamped at
// the end of the tick.
func VehiclePoints(rec trace.TickRecord, start time.Time) []*write.Point {
	ts := start.Add(seconds(rec.Elapsed))
	points := make([]*write.Point, 0, len(rec.Vehicles))
	for _, v := range rec.Vehicles {
		p := write.NewPointWithMeasurement(MeasurementVehicle).
			AddTag("vehicle", strconv.Itoa(v.VehicleID)).
			AddTag("light", rec.Light).
			AddField("position", v.Position).
			AddField("velocity", v.Velocity).
			AddField("acceleration", v.Acceleration).
			AddField("braking", v.Braking).
			SetTime(ts)
		points = append(points, p)
	}
	return points
}

// SignalPoint converts a signal change into a point stamped at the start of
// the tick in which it was raised.
func SignalPoint(c trace.SignalChange, start time.Time, tickSeconds float64) *write.Point {
	return write.NewPointWithMeasurement(MeasurementSignal).
		AddTag("light", c.Color).
		AddField("tick", c.Tick).
		SetTime(start.Add(seconds(float64(c.Tick) * tickSeconds)))
}

// WriteLineProtocol writes every vehicle sample and signal change of st to w
// and returns the number of points written.
func WriteLineProtocol(w io.Writer, st *trace.SimulationTrace, start time.Time, tickSeconds float64) (int, error) {
	if st == nil {
		return 0, nil
	}
	bw := bufio.NewWriter(w)
	n := 0
	emit := func(p *write.Point) error {
		line := strings.TrimSuffix(write.PointToLineProtocol(p, time.Nanosecond), "\n")
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
		n++
		return bw.WriteByte('\n')
	}
	for _, c := range st.SignalChanges {
		if err := emit(SignalPoint(c, start, tickSeconds)); err != nil {
			return n, fmt.Errorf("writing signal point: %w", err)
		}
	}
	for _, rec := range st.Ticks {
		for _, p := range VehiclePoints(rec, start) {
			if err := emit(p); err != nil {
				return n, fmt.Errorf("writing vehicle point at tick %d: %w", rec.Tick, err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("flushing line protocol: %w", err)
	}
	return n, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
