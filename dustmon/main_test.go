package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/dustnode/pkg/config"
	"github.com/itohio/dustnode/pkg/sample"
	"github.com/itohio/dustnode/pkg/store/memory"
	"github.com/itohio/dustnode/pkg/telemetry"
)

func init() {
	color.NoColor = true
}

func writeConfig(t *testing.T, edit func(*config.Config)) string {
	t.Helper()
	c := config.Default()
	c.Mock.Period = 10 * time.Millisecond
	c.Store.Driver = "sqlite"
	c.Store.Path = filepath.Join(t.TempDir(), "dust.db")
	if edit != nil {
		edit(c)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, c.Save(path))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDensityBand(t *testing.T) {
	tests := []struct {
		density float32
		want    string
	}{
		{0, "good"},
		{34.9, "good"},
		{35, "moderate"},
		{74.9, "moderate"},
		{75, "unhealthy"},
		{150, "hazardous"},
		{900, "hazardous"},
	}

	for _, tt := range tests {
		band, c := densityBand(tt.density)
		assert.Equal(t, tt.want, band, "density %v", tt.density)
		assert.NotNil(t, c)
	}
}

func TestFormatSample(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	line := formatSample(sample.Sample{Timestamp: ts, Uptime: time.Second, Ready: true, Raw: 993, Voltage: 0.8, Density: 64.8, Rain1: 12, Rain2: 15})
	assert.Contains(t, line, "12:30:00")
	assert.Contains(t, line, "64.80 mg/m3")
	assert.Contains(t, line, "moderate")
	assert.Contains(t, line, "raw= 993")
	assert.Contains(t, line, "0.800 V")
	assert.Contains(t, line, "rain  12%  15%")

	line = formatSample(sample.Sample{Timestamp: ts, Raw: 760, Voltage: 0.612})
	assert.Contains(t, line, "calibrating")
	assert.NotContains(t, line, "mg/m3")
}

func TestOpenStore(t *testing.T) {
	repo, err := openStore(config.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &memory.Repository{}, repo)

	repo, err = openStore(config.StoreConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.NoError(t, repo.Close())

	_, err = openStore(config.StoreConfig{Driver: "csv"})
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := run(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	_, err = run(t, "--config", path, "config", "init")
	assert.Error(t, err, "refuses to overwrite")

	_, err = run(t, "--config", path, "config", "init", "--force")
	assert.NoError(t, err)

	out, err = run(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "gain: 1.8")
	assert.Contains(t, out, "port: /dev/ttyUSB0")
}

func TestInvalidConfig(t *testing.T) {
	path := writeConfig(t, func(c *config.Config) { c.Dust.Gain = 5 })

	_, err := run(t, "--config", path, "config", "show")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestWatchMock(t *testing.T) {
	path := writeConfig(t, nil)

	out, err := run(t, "--config", path, "--log-level", "error", "watch", "--mock", "-n", "3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for _, l := range lines {
		assert.Contains(t, l, "mg/m3")
	}
}

func TestWatchMockAveraged(t *testing.T) {
	path := writeConfig(t, nil)

	out, err := run(t, "--config", path, "--log-level", "error", "watch", "--mock", "-n", "2", "--average", "4")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)
}

func TestRecalibrateMock(t *testing.T) {
	path := writeConfig(t, nil)

	out, err := run(t, "--config", path, "--log-level", "error", "recalibrate", "--mock", "--window", "500ms")
	require.NoError(t, err)
	assert.Contains(t, out, "recalibration requested for 500ms")
	assert.Contains(t, out, "mg/m3")

	_, err = run(t, "--config", path, "--log-level", "error", "recalibrate", "--mock", "--window", "0s")
	assert.Error(t, err)
}

func TestHistoryEmpty(t *testing.T) {
	path := writeConfig(t, nil)

	out, err := run(t, "--config", path, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "no readings stored")
}

func TestFirstAfter_SkipsReadingsInFlight(t *testing.T) {
	records := make(chan telemetry.Record, 2)
	records <- telemetry.Record{Uptime: time.Second}
	records <- telemetry.Record{Uptime: 5 * time.Second, Ready: true}

	sent := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := []time.Time{sent.Add(10 * time.Millisecond), sent.Add(3 * time.Second)}
	now := func() time.Time {
		ts := clock[0]
		clock = clock[1:]
		return ts
	}

	rec, err := firstAfter(records, sent.Add(3*time.Second), time.Second, now)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, rec.Uptime)
}

func TestFirstAfter_Errors(t *testing.T) {
	records := make(chan telemetry.Record)
	_, err := firstAfter(records, time.Now(), 20*time.Millisecond, time.Now)
	assert.ErrorContains(t, err, "no reading within")

	close(records)
	_, err = firstAfter(records, time.Now(), time.Second, time.Now)
	assert.ErrorContains(t, err, "node disconnected")
}

func TestProbeRejectsNonPositiveInterval(t *testing.T) {
	path := writeConfig(t, nil)

	_, err := run(t, "--config", path, "probe", "--interval", "0s")
	assert.ErrorContains(t, err, "--interval must be positive")
}

func TestWatchRejectsNonPositiveMockPeriod(t *testing.T) {
	path := writeConfig(t, func(c *config.Config) { c.Mock.Period = -time.Second })

	_, err := run(t, "--config", path, "watch", "--mock", "-n", "1")
	assert.ErrorIs(t, err, config.ErrInvalid)
}
