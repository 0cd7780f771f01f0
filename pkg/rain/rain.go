// Package rain reads a pair of HW-028 resistive rain sensors.
package rain

import (
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/dustnode/pkg/dust"
)

const (
	// DefaultOversample is the number of conversions averaged per channel.
	DefaultOversample = 8
	// DefaultInterval is the pause between conversions.
	DefaultInterval = 2 * time.Millisecond
)

// Reading holds both channels. Percentages run from 0 (dry) to 100 (wet).
type Reading struct {
	Raw1, Raw2 int
	Pct1, Pct2 float32
}

// Sensors reads two rain sensors wired to separate ADC channels.
type Sensors struct {
	a, b       dust.ADC
	clock      dust.Clock
	oversample int
	interval   time.Duration
	bits       uint32
}

// New creates a rain sensor pair. Non-positive oversample and interval
// select defaults; a nil clock selects dust.SystemClock.
func New(a, b dust.ADC, clock dust.Clock, bits uint32, oversample int, interval time.Duration) *Sensors {
	if clock == nil {
		clock = dust.SystemClock{}
	}
	if bits == 0 {
		bits = dust.DefaultADCBits
	}
	if oversample <= 0 {
		oversample = DefaultOversample
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sensors{a: a, b: b, clock: clock, oversample: oversample, interval: interval, bits: bits}
}

// Configure sets both channels to the configured resolution.
func (s *Sensors) Configure() {
	s.a.Configure(s.bits)
	s.b.Configure(s.bits)
}

// Read oversamples both channels.
func (s *Sensors) Read() Reading {
	full := 1<<s.bits - 1

	r := Reading{
		Raw1: s.oversampleADC(s.a),
		Raw2: s.oversampleADC(s.b),
	}
	r.Pct1 = Percent(r.Raw1, full)
	r.Pct2 = Percent(r.Raw2, full)
	return r
}

func (s *Sensors) oversampleADC(adc dust.ADC) int {
	sum := 0
	for range s.oversample {
		sum += int(adc.Get())
		s.clock.Sleep(s.interval)
	}
	return sum / s.oversample
}

// Percent converts a raw count to wetness. The HW-028 output is high when
// dry, so the scale is inverted.
func Percent(raw, fullScale int) float32 {
	pct := (1 - float32(raw)/float32(fullScale)) * 100
	return math32.Min(math32.Max(pct, 0), 100)
}
