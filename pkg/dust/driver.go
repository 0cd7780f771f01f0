// Package dust drives a Sharp GP2Y1010 optical dust sensor.
//
// The sensor is read by pulsing its IR LED and sampling the photodiode output
// inside a narrow window of the pulse. The output voltage in clean air drifts
// from unit to unit and with temperature, so the driver learns that "zero"
// baseline at startup and reports density relative to it.
package dust

import (
	"time"

	"github.com/chewxy/math32"
)

// Reading is the result of one averaged measurement.
type Reading struct {
	RawCounts int     // mean ADC count, 0..FullScale
	Voltage   float32 // V
	Density   float32 // mg/m3, never negative
}

// Calibration is the driver's learned state.
type Calibration struct {
	BaselineVoltage float32 // clean-air voltage (V)
	Ready           bool    // a baseline has been learned at least once
}

// Driver reads one GP2Y1010. It owns the LED line and the ADC channel
// exclusively and is not safe for concurrent use.
type Driver struct {
	cfg   Config
	led   LED
	adc   ADC
	clock Clock
	log   Logger

	cal Calibration
}

// New creates a driver. A nil clock selects SystemClock and a nil logger
// discards diagnostics. The hardware is not touched until Initialize.
func New(cfg Config, led LED, adc ADC, clock Clock, log Logger) *Driver {
	cfg.ensureDefaults()
	if clock == nil {
		clock = SystemClock{}
	}
	if log == nil {
		log = nopLogger{}
	}

	return &Driver{
		cfg:   cfg,
		led:   led,
		adc:   adc,
		clock: clock,
		log:   log,
		cal: Calibration{
			BaselineVoltage: cfg.DefaultBaseline,
		},
	}
}

// Config returns the effective configuration.
func (d *Driver) Config() Config {
	return d.cfg
}

// Calibration returns a copy of the calibration state.
func (d *Driver) Calibration() Calibration {
	return d.cal
}

// Ready reports whether a baseline has been learned. A zero density from an
// unready driver means "not calibrated", not "clean air".
func (d *Driver) Ready() bool {
	return d.cal.Ready
}

// Initialize configures the hardware and learns the baseline over
// Config.LearnWindow. It blocks for the whole window.
func (d *Driver) Initialize() {
	d.led.Configure()
	d.led.High() // LED off
	d.adc.Configure(d.cfg.ADCBits)

	if v, n := d.learn(d.cfg.LearnWindow); n > 0 {
		d.cal.BaselineVoltage = d.clampBaseline(v)
	} else {
		d.log.Warnf("Dust baseline: no samples in %v, keeping %.3f V", d.cfg.LearnWindow, d.cal.BaselineVoltage)
	}

	d.log.Infof("Dust baseline learned: %.3f V  (gain=%.1f)", d.cal.BaselineVoltage, d.cfg.Gain)
	d.cal.Ready = true
}

// RecalibrateBaseline relearns the baseline over window. Call it only when
// the air is known to be clean. Readiness is left unchanged.
func (d *Driver) RecalibrateBaseline(window time.Duration) {
	v, n := d.learn(window)
	if n == 0 {
		d.log.Warnf("Dust baseline: no samples in %v, keeping %.3f V", window, d.cal.BaselineVoltage)
		return
	}

	d.cal.BaselineVoltage = d.clampBaseline(v)
	d.log.Infof("Dust baseline re-set: %.3f V", d.cal.BaselineVoltage)
}

// Read averages samples pulses and converts the result to a density.
// An unready driver or a non-positive sample count yields the zero Reading
// without touching the hardware.
func (d *Driver) Read(samples int) Reading {
	if !d.cal.Ready || samples <= 0 {
		return Reading{}
	}

	acc := 0
	for range samples {
		acc += d.SampleOnce()
	}

	raw := acc / samples
	voltage := d.Voltage(raw)

	return Reading{
		RawCounts: raw,
		Voltage:   voltage,
		Density:   d.Density(voltage),
	}
}

// SampleOnce runs one 10ms pulse cycle and returns the ADC count taken
// while the LED was on. It cannot be interrupted.
func (d *Driver) SampleOnce() int {
	d.led.Low() // LED on
	d.clock.Busy(d.cfg.LEDSettle)
	v := d.adc.Get()
	d.clock.Busy(d.cfg.SampleHold)
	d.led.High() // LED off
	d.clock.Busy(d.cfg.OffPeriod)
	return int(v)
}

// Voltage converts an ADC count to volts.
func (d *Driver) Voltage(counts int) float32 {
	return float32(counts) * d.cfg.VRef / float32(d.cfg.FullScale())
}

// Density converts a sensor voltage to mg/m3 against the current baseline.
// Voltages at or below the baseline give 0.
func (d *Driver) Density(voltage float32) float32 {
	deltaV := voltage - d.cal.BaselineVoltage
	mgm3 := (deltaV / d.cfg.K) * d.cfg.Gain
	return math32.Max(mgm3, 0)
}

// learn returns the mean voltage of the pulses taken within window and the
// number of pulses.
func (d *Driver) learn(window time.Duration) (float32, int) {
	start := d.clock.Now()
	n := 0
	sum := 0.0
	for d.clock.Now().Sub(start) < window {
		sum += float64(d.Voltage(d.SampleOnce()))
		n++
		d.clock.Sleep(d.cfg.LearnInterval)
	}
	if n == 0 {
		return 0, 0
	}
	return float32(sum / float64(n)), n
}

func (d *Driver) clampBaseline(v float32) float32 {
	return math32.Min(math32.Max(v, d.cfg.BaselineMin), d.cfg.BaselineMax)
}
