package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/dustnode/pkg/telemetry"
)

func collect(t *testing.T, out <-chan Sample) []Sample {
	t.Helper()
	var got []Sample
	timeout := time.After(5 * time.Second)
	for {
		select {
		case s, ok := <-out:
			if !ok {
				return got
			}
			got = append(got, s)
		case <-timeout:
			t.Fatal("output channel did not close")
		}
	}
}

func TestNewConverter(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	converter := NewConverter(func() time.Time { return ts }, 10)

	in := make(chan telemetry.Record, 3)
	in <- telemetry.Record{Uptime: time.Second, Ready: true, Raw: 993, Voltage: 0.8, Density: 64.8, Rain1: 12, Rain2: 15}
	in <- telemetry.Record{Uptime: 2 * time.Second}
	close(in)

	got := collect(t, converter(in))

	require.Len(t, got, 2)
	assert.Equal(t, Sample{
		Timestamp: ts,
		Uptime:    time.Second,
		Ready:     true,
		Raw:       993,
		Voltage:   0.8,
		Density:   64.8,
		Rain1:     12,
		Rain2:     15,
	}, got[0])
	assert.False(t, got[1].Ready)
}

func TestConverter_GracefulShutdown(t *testing.T) {
	converter := NewConverter(nil, 0)
	in := make(chan telemetry.Record)
	out := converter(in)

	close(in)

	_, ok := <-out
	assert.False(t, ok, "Output channel should be closed")
}

func TestNewAveragingConverter_MovingAverage(t *testing.T) {
	converter := NewAveragingConverter(3, 10)

	in := make(chan Sample, 10)
	for i, d := range []float32{10, 20, 30, 40} {
		in <- Sample{Uptime: time.Duration(i) * time.Second, Ready: true, Density: d, Voltage: 1, Raw: i}
	}
	close(in)

	got := collect(t, converter(in))

	require.Len(t, got, 4)
	assert.InDelta(t, 10, got[0].Density, 1e-6)
	assert.InDelta(t, 15, got[1].Density, 1e-6)
	assert.InDelta(t, 20, got[2].Density, 1e-6)
	assert.InDelta(t, 30, got[3].Density, 1e-6, "window drops the oldest")
	assert.Equal(t, 3*time.Second, got[3].Uptime)
	assert.Equal(t, 3, got[3].Raw)
	assert.InDelta(t, 1, got[3].Voltage, 1e-6)
}

func TestNewAveragingConverter_SkipsUncalibrated(t *testing.T) {
	converter := NewAveragingConverter(4, 10)

	in := make(chan Sample, 10)
	in <- Sample{Ready: false}
	in <- Sample{Ready: true, Density: 50}
	in <- Sample{Ready: false}
	in <- Sample{Ready: true, Density: 70}
	close(in)

	got := collect(t, converter(in))

	require.Len(t, got, 4)
	assert.Equal(t, Sample{}, got[0])
	assert.InDelta(t, 50, got[1].Density, 1e-6)
	assert.False(t, got[2].Ready)
	assert.InDelta(t, 60, got[3].Density, 1e-6)
}

func TestNewAveragingConverter_InvalidWindowSize(t *testing.T) {
	converter := NewAveragingConverter(0, 0)

	in := make(chan Sample, 2)
	in <- Sample{Ready: true, Density: 5}
	in <- Sample{Ready: true, Density: 9}
	close(in)

	got := collect(t, converter(in))

	require.Len(t, got, 2)
	assert.InDelta(t, 9, got[1].Density, 1e-6, "window of one passes values through")
}

func TestAverageSamples_Empty(t *testing.T) {
	assert.Equal(t, Sample{}, averageSamples(nil))
}
