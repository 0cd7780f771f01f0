package node

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/dustnode/pkg/config"
	"github.com/itohio/dustnode/pkg/telemetry"
)

func mockConfig() *config.Config {
	cfg := config.Default()
	cfg.Mock.Period = 5 * time.Millisecond
	cfg.Mock.PlumePeriod = 2 * time.Second
	cfg.Dust.LearnWindow = 100 * time.Millisecond
	return cfg
}

func receive(t *testing.T, ch <-chan telemetry.Record, n int) []telemetry.Record {
	t.Helper()
	var got []telemetry.Record
	timeout := time.After(5 * time.Second)
	for len(got) < n {
		select {
		case r, ok := <-ch:
			require.True(t, ok, "records channel closed early")
			got = append(got, r)
		case <-timeout:
			t.Fatalf("received %d of %d records", len(got), n)
		}
	}
	return got
}

func TestNewMock_NilConfig(t *testing.T) {
	dev := NewMock(nil)
	assert.NotNil(t, dev)
	assert.NotNil(t, dev.cfg)
	assert.Equal(t, 0.62, dev.cfg.Mock.CleanVoltage)
	assert.False(t, dev.IsConnected())
	assert.False(t, dev.driver.Ready())
}

func TestMock_Connect(t *testing.T) {
	dev := NewMock(mockConfig())

	require.NoError(t, dev.Connect())
	defer dev.Close()

	assert.True(t, dev.IsConnected())
	assert.ErrorIs(t, dev.Connect(), ErrAlreadyConnected)

	cal := dev.driver.Calibration()
	assert.True(t, cal.Ready)
	assert.InDelta(t, 0.62, cal.BaselineVoltage, 0.01, "baseline learned in clean air")
}

func TestMock_Records(t *testing.T) {
	dev := NewMock(mockConfig())
	require.NoError(t, dev.Connect())
	defer dev.Close()

	records := receive(t, dev.Records(), 20)

	var peak float32
	for i, r := range records {
		assert.True(t, r.Ready)
		assert.GreaterOrEqual(t, r.Density, float32(0))
		assert.LessOrEqual(t, r.Raw, 4095)
		assert.InDelta(t, 6, r.Rain1, 1, "mock rain sensors read dry")
		if i > 0 {
			assert.Greater(t, r.Uptime, records[i-1].Uptime)
		}
		peak = max(peak, r.Density)
	}
	// 0.4V plume peak -> ~144 mg/m3
	assert.Greater(t, peak, float32(50))
}

func TestMock_Recalibrate(t *testing.T) {
	dev := NewMock(mockConfig())

	assert.ErrorIs(t, dev.Recalibrate(time.Second), ErrNotConnected)

	require.NoError(t, dev.Connect())
	defer dev.Close()

	assert.Error(t, dev.Recalibrate(0))
	assert.Error(t, dev.Recalibrate(2*telemetry.MaxRecalibrate))
	assert.NoError(t, dev.Recalibrate(500*time.Millisecond))

	receive(t, dev.Records(), 2)
}

func TestMock_Close(t *testing.T) {
	dev := NewMock(mockConfig())

	assert.NoError(t, dev.Close(), "closing an unconnected mock is a no-op")

	require.NoError(t, dev.Connect())
	records := dev.Records()
	receive(t, records, 3)

	require.NoError(t, dev.Close())
	assert.False(t, dev.IsConnected())

	for range records {
	}
	_, ok := <-records
	assert.False(t, ok, "Channel should be closed")

	assert.ErrorIs(t, dev.Connect(), ErrClosed)
}

func TestPlumeVoltage(t *testing.T) {
	mc := config.MockConfig{CleanVoltage: 0.6, PlumeVoltage: 0.4, PlumePeriod: time.Minute}

	assert.InDelta(t, 0.6, plumeVoltage(mc, 0), 1e-9)
	assert.InDelta(t, 1.0, plumeVoltage(mc, 30*time.Second), 1e-9)
	assert.InDelta(t, 0.8, plumeVoltage(mc, 15*time.Second), 1e-9)
	assert.InDelta(t, 0.6, plumeVoltage(mc, time.Minute), 1e-9)

	mc.PlumePeriod = 0
	assert.Equal(t, 0.6, plumeVoltage(mc, 30*time.Second))
}

func TestNoiseVoltage(t *testing.T) {
	mc := config.MockConfig{NoiseCounts: 6}
	lsb := 3.3 / 4095

	for n := range 100 {
		v := noiseVoltage(mc, n, 3.3, 12)
		assert.LessOrEqual(t, v, 3*lsb+1e-12)
		assert.GreaterOrEqual(t, v, -3*lsb-1e-12)
	}

	mc.NoiseCounts = 0
	assert.Equal(t, 0.0, noiseVoltage(mc, 7, 3.3, 12))
}
