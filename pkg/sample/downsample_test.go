package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func densitySeries(n int) []Sample {
	now := time.Now()
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = Sample{
			Timestamp: now.Add(time.Duration(i) * time.Second),
			Ready:     true,
			Density:   float32(i),
		}
	}
	return samples
}

func TestDownsample_NoDownsampling(t *testing.T) {
	samples := densitySeries(3)

	result := Downsample(nil, samples, 10)
	require.Len(t, result, 3)
	assert.Equal(t, samples, result)

	dst := make([]Sample, 0, 10)
	result = Downsample(dst, samples, 10)
	assert.Equal(t, samples, result)
	assert.Equal(t, cap(dst), cap(result), "should reuse dst")
}

func TestDownsample_WithDownsampling(t *testing.T) {
	samples := densitySeries(100)

	dst := make([]Sample, 0, 20)
	result := Downsample(dst, samples, 10)

	require.Len(t, result, 10)
	assert.Equal(t, cap(dst), cap(result))
	assert.Equal(t, samples[0], result[0])
	assert.GreaterOrEqual(t, result[9].Density, float32(80))
	for i := 1; i < len(result); i++ {
		assert.True(t, result[i].Timestamp.After(result[i-1].Timestamp), "order preserved")
	}
}

func TestDownsample_SmallDst(t *testing.T) {
	samples := densitySeries(50)
	dst := make([]Sample, 0, 2)

	result := Downsample(dst, samples, 5)

	require.Len(t, result, 5)
	assert.Equal(t, []float32{0, 10, 20, 30, 40}, []float32{
		result[0].Density, result[1].Density, result[2].Density, result[3].Density, result[4].Density,
	})
}

func TestDownsample_Empty(t *testing.T) {
	assert.Empty(t, Downsample(nil, nil, 10))
	assert.Len(t, Downsample(nil, densitySeries(4), 0), 4)
}
