//go:build tinygo

package main

import (
	"fmt"
	"io"
	"machine"

	"github.com/itohio/dustnode/pkg/dust"
)

// pinLED drives the dust sensor LED line.
type pinLED struct {
	pin machine.Pin
}

func (l pinLED) Configure() { l.pin.Configure(machine.PinConfig{Mode: machine.PinOutput}) }
func (l pinLED) High()      { l.pin.High() }
func (l pinLED) Low()       { l.pin.Low() }

// adc wraps machine.ADC. TinyGo returns left-aligned 16-bit samples whatever
// the configured resolution, so Get shifts them down to bits.
type adc struct {
	a    machine.ADC
	bits uint32
}

func newADC(pin machine.Pin) *adc {
	pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	return &adc{a: machine.ADC{Pin: pin}, bits: ADC_RESOLUTION}
}

func (a *adc) Configure(bits uint32) {
	a.bits = bits
	a.a.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: bits,
	})
}

func (a *adc) Get() uint16 {
	return a.a.Get() >> (16 - a.bits)
}

// lineLogger writes diagnostics the host recognizes by their leading '['.
type lineLogger struct {
	w io.Writer
}

func (l lineLogger) Infof(format string, args ...any) { l.printf("[INFO] ", format, args...) }
func (l lineLogger) Warnf(format string, args ...any) { l.printf("[WARN] ", format, args...) }

func (l lineLogger) printf(prefix, format string, args ...any) {
	io.WriteString(l.w, prefix)
	fmt.Fprintf(l.w, format, args...)
	io.WriteString(l.w, "\n")
}

var (
	_ dust.LED    = pinLED{}
	_ dust.ADC    = (*adc)(nil)
	_ dust.Logger = lineLogger{}
)
