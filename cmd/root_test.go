package cmd

import (
	"bufio"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings() settings {
	return settings{
		Ticks:       128,
		LogLevel:    "error",
		Trace:       "none",
		TraceSample: 1,
		Speed:       1,
	}
}

func TestRunSimulation_Defaults(t *testing.T) {
	err := runSimulation(context.Background(), testSettings())

	assert.NoError(t, err)
}

func TestRunSimulation_RejectsBadSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*settings)
		want   string
	}{
		{name: "zero ticks", mutate: func(s *settings) { s.Ticks = 0 }, want: "--ticks"},
		{name: "unknown trace level", mutate: func(s *settings) { s.Trace = "everything" }, want: "unknown trace level"},
		{name: "missing scenario", mutate: func(s *settings) { s.Scenario = "/nonexistent.yaml" }, want: "reading scenario"},
		{name: "unknown db driver", mutate: func(s *settings) { s.DBDriver = "oracle" }, want: "unknown db driver"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := testSettings()
			tc.mutate(&s)

			err := runSimulation(context.Background(), s)

			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestRunSimulation_InfluxExport_RaisesTraceLevel(t *testing.T) {
	// GIVEN a run with tracing off but a line-protocol sink
	out := filepath.Join(t.TempDir(), "run.lp")
	s := testSettings()
	s.InfluxOut = out

	// WHEN it runs
	require.NoError(t, runSimulation(context.Background(), s))

	// THEN every tick of every vehicle was exported, plus the initial red
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 128*3+1)
	assert.True(t, strings.HasPrefix(lines[0], "signal,light=red "), lines[0])
}

func TestRunSimulation_GzipExport(t *testing.T) {
	out := filepath.Join(t.TempDir(), "run.lp.gz")
	s := testSettings()
	s.InfluxOut = out
	s.Trace = "ticks"
	s.TraceSample = 16

	require.NoError(t, runSimulation(context.Background(), s))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	count := 0
	for sc := bufio.NewScanner(gz); sc.Scan(); {
		count++
	}
	assert.Equal(t, 128/16*3+1, count)
}

func TestRunSimulation_SQLiteFile_PersistsRun(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "runs.db")
	s := testSettings()
	s.DBDriver = "sqlite"
	s.DBDSN = dsn

	require.NoError(t, runSimulation(context.Background(), s))

	info, err := os.Stat(dsn)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestSetupLogging(t *testing.T) {
	t.Cleanup(func() { logrus.SetLevel(logrus.InfoLevel) })

	closeLog, err := setupLogging("debug", "")
	require.NoError(t, err)
	closeLog()
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	_, err = setupLogging("loud", "")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var sb strings.Builder
	versionCmd.SetOut(&sb)

	versionCmd.Run(versionCmd, nil)

	assert.Equal(t, "trafficsim dev\n", sb.String())
}
