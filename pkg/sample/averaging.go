package sample

import (
	"time"

	"github.com/rs/zerolog/log"
)

// NewAveragingConverter creates a converter that replaces the dust and rain
// values of each ready sample by their moving average over the last
// windowSize ready samples. Samples from an uncalibrated node pass through
// unchanged and do not enter the window.
func NewAveragingConverter(windowSize int, bufSize int) func(in <-chan Sample) <-chan Sample {
	if windowSize <= 0 {
		windowSize = 1 // No averaging if invalid
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan Sample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			var buffer []Sample
			for s := range in {
				if s.Ready {
					buffer = append(buffer, s)
					if len(buffer) > windowSize {
						buffer = buffer[1:] // Remove oldest
					}
					s = averageSamples(buffer)
				}

				select {
				case out <- s:
				case <-time.After(time.Second):
					log.Warn().Msg("averaging converter output channel full")
				}
			}
		}()

		return out
	}
}

// averageSamples averages a slice of samples.
// Uses the most recent sample's timestamps and raw count.
func averageSamples(samples []Sample) Sample {
	if len(samples) == 0 {
		return Sample{}
	}

	var sumVoltage, sumDensity, sumRain1, sumRain2 float64
	last := samples[len(samples)-1]

	for _, s := range samples {
		sumVoltage += float64(s.Voltage)
		sumDensity += float64(s.Density)
		sumRain1 += float64(s.Rain1)
		sumRain2 += float64(s.Rain2)
	}

	n := float64(len(samples))
	return Sample{
		Timestamp: last.Timestamp,
		Uptime:    last.Uptime,
		Ready:     last.Ready,
		Raw:       last.Raw,
		Voltage:   float32(sumVoltage / n),
		Density:   float32(sumDensity / n),
		Rain1:     float32(sumRain1 / n),
		Rain2:     float32(sumRain2 / n),
	}
}
