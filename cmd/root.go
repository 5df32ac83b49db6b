package cmd

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inference-sim/trafficsim/sim"
	"github.com/inference-sim/trafficsim/sim/export"
	"github.com/inference-sim/trafficsim/sim/store"
	"github.com/inference-sim/trafficsim/sim/trace"
)

// version is set at build time with -ldflags "-X .../cmd.version=...".
var version = "dev"

const envPrefix = "TRAFFICSIM"

// settings is the resolved run configuration: flags, overridden by
// TRAFFICSIM_* environment variables when the flag was not given.
type settings struct {
	Ticks       int64   // Number of ticks to simulate
	LogLevel    string  // Log verbosity level
	Scenario    string  // Optional scenario YAML overlay
	GELFAddr    string  // Graylog UDP address; empty disables shipping
	Trace       string  // Trace level: none, signals, ticks
	TraceSample int64   // Keep every Nth tick in the trace
	DBDriver    string  // sqlite or postgres; empty disables persistence
	DBDSN       string  // Data source name for DBDriver
	InfluxOut   string  // Line-protocol output file; ".gz" compresses
	Speed       float64 // watch playback speed
}

func loadSettings() settings {
	return settings{
		Ticks:       viper.GetInt64("ticks"),
		LogLevel:    viper.GetString("log"),
		Scenario:    viper.GetString("scenario"),
		GELFAddr:    viper.GetString("gelf-addr"),
		Trace:       viper.GetString("trace"),
		TraceSample: viper.GetInt64("trace-sample"),
		DBDriver:    viper.GetString("db-driver"),
		DBDSN:       viper.GetString("db-dsn"),
		InfluxOut:   viper.GetString("influx-out"),
		Speed:       speedSetting(),
	}
}

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "trafficsim",
	Short: "Car-following simulator for a single signalized lane",
}

// runCmd executes a headless simulation and prints its metrics
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation for a fixed number of ticks",
	Run: func(cmd *cobra.Command, args []string) {
		s := loadSettings()
		closeLog, err := setupLogging(s.LogLevel, s.GELFAddr)
		if err != nil {
			logrus.Fatalf("Logging setup failed: %v", err)
		}
		defer closeLog()

		if err := runSimulation(cmd.Context(), s); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "trafficsim", version)
	},
}

// setupLogging sets the logrus level and, when gelfAddr is set, ships every
// entry to Graylog as well as stderr. The returned func closes the GELF writer.
func setupLogging(level, gelfAddr string) (func(), error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)
	if gelfAddr == "" {
		return func() {}, nil
	}
	w, err := gelf.NewWriter(gelfAddr)
	if err != nil {
		return nil, fmt.Errorf("connecting to graylog at %s: %w", gelfAddr, err)
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, w))
	return func() {
		logrus.SetOutput(os.Stderr)
		_ = w.Close()
	}, nil
}

// runSimulation builds the simulator from s, runs it and hands the results to
// every configured sink.
func runSimulation(ctx context.Context, s settings) error {
	if s.Ticks <= 0 {
		return fmt.Errorf("--ticks must be > 0, got %d", s.Ticks)
	}
	if !trace.IsValidTraceLevel(s.Trace) {
		return fmt.Errorf("unknown trace level %q; valid: none, signals, ticks", s.Trace)
	}
	cfg, err := buildConfig(s.Scenario)
	if err != nil {
		return err
	}

	level := trace.TraceLevel(s.Trace)
	if (s.DBDriver != "" || s.InfluxOut != "") && level != trace.TraceLevelTicks {
		logrus.Infof("Sinks configured, raising trace level from %q to %q", s.Trace, trace.TraceLevelTicks)
		level = trace.TraceLevelTicks
	}
	var st *trace.SimulationTrace
	if level != trace.TraceLevelNone && level != "" {
		st = trace.NewSimulationTrace(trace.TraceConfig{Level: level, SampleEvery: s.TraceSample})
	}

	simulator, err := sim.NewSimulator(cfg, st)
	if err != nil {
		return err
	}
	logrus.Infof("Starting simulation: %d vehicles, stop line %.1f, tick %.4fs, reaction %.2fs",
		cfg.Fleet.Vehicles, cfg.Signal.Position, cfg.TickSeconds, cfg.Physics.ReactionTime)

	start := time.Now()
	simulator.Run(s.Ticks)
	for _, n := range simulator.DrainNotifications() {
		logrus.Debugf("light changed: %s", n)
	}
	simulator.Metrics().Print()

	if st != nil {
		sum := trace.Summarize(st)
		logrus.Infof("Trace: %d ticks, %d signal changes, %d braking samples, velocity mean %.4f p95 %.4f",
			sum.TickCount, sum.SignalChangeCount, sum.BrakingSamples, sum.MeanVelocity, sum.VelocityP95)
	}
	if s.DBDriver != "" {
		if err := saveRun(ctx, s.DBDriver, s.DBDSN, cfg, st, simulator.Metrics()); err != nil {
			return err
		}
	}
	if s.InfluxOut != "" {
		if err := exportTrace(s.InfluxOut, st, start, cfg.TickSeconds); err != nil {
			return err
		}
	}
	return nil
}

func saveRun(ctx context.Context, driver, dsn string, cfg sim.Config, st *trace.SimulationTrace, m *sim.Metrics) error {
	db, err := store.Open(driver, dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := db.SaveRun(ctx, cfg, st, m); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// exportTrace writes st as line protocol to path, gzip-compressed when the
// path ends in ".gz".
func exportTrace(path string, st *trace.SimulationTrace, start time.Time, tickSeconds float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}
	n, err := export.WriteLineProtocol(w, st, start, tickSeconds)
	if err != nil {
		return fmt.Errorf("exporting to %s: %w", path, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("compressing %s: %w", path, err)
		}
	}
	logrus.Infof("Wrote %d points to %s", n, path)
	return f.Close()
}

// bindFlags exposes every flag of c to viper under its own name, so that
// TRAFFICSIM_DB_DSN overrides --db-dsn.
func bindFlags(c *cobra.Command) {
	if err := viper.BindPFlags(c.Flags()); err != nil {
		logrus.Fatalf("Binding flags of %s: %v", c.Name(), err)
	}
}

// Execute runs the CLI root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().String("log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().String("scenario", "", "Scenario YAML overlaying the built-in defaults")
	rootCmd.PersistentFlags().String("gelf-addr", "", "Graylog GELF UDP address (host:port) for log shipping")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		logrus.Fatalf("Binding persistent flags: %v", err)
	}

	runCmd.Flags().Int64("ticks", 64*60, "Number of ticks to simulate")
	runCmd.Flags().String("trace", string(trace.TraceLevelNone), "Trace level (none, signals, ticks)")
	runCmd.Flags().Int64("trace-sample", 1, "Keep every Nth tick when tracing ticks")
	runCmd.Flags().String("db-driver", "", "Persist the run with this driver (sqlite, postgres)")
	runCmd.Flags().String("db-dsn", "", "Data source name; empty sqlite DSN means in-memory")
	runCmd.Flags().String("influx-out", "", "Write the trace as InfluxDB line protocol to this file")
	bindFlags(runCmd)

	rootCmd.AddCommand(runCmd, watchCmd, versionCmd)
}
