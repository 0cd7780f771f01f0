// Package hostio runs the dust driver on a Linux board through periph.io:
// the sensor LED on a GPIO and its analog output on an ADS1015.
//
// Pulse timing on a Linux host is best effort. The driver still spins for
// the settle time, but the I2C conversion adds its own latency.
package hostio

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"

	"github.com/itohio/dustnode/pkg/dust"
)

var (
	ErrPinNotFound = errors.New("gpio pin not found")
	ErrChannel     = errors.New("ads1015 channel out of range")
)

// ADS1015 single-ended inputs by index.
var channels = []ads1x15.Channel{
	ads1x15.Channel0,
	ads1x15.Channel1,
	ads1x15.Channel2,
	ads1x15.Channel3,
}

// LED drives the sensor IR LED. The LED is active low.
type LED struct {
	pin gpio.PinOut
}

var _ dust.LED = (*LED)(nil)

func NewLED(pin gpio.PinOut) *LED {
	return &LED{pin: pin}
}

// LEDByName looks the pin up in the periph.io registry.
func LEDByName(name string) (*LED, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	return NewLED(p), nil
}

// Configure drives the pin high so the LED starts off.
func (l *LED) Configure() { l.out(gpio.High) }
func (l *LED) High()      { l.out(gpio.High) }
func (l *LED) Low()       { l.out(gpio.Low) }

func (l *LED) out(level gpio.Level) {
	if err := l.pin.Out(level); err != nil {
		log.Error().Err(err).Str("pin", l.pin.String()).Msg("failed to drive dust led")
	}
}

// Sampler is the part of analog.PinADC the ADC adapter needs.
type Sampler interface {
	Read() (analog.Sample, error)
}

// ADC converts sampled voltages to counts of the resolution the dust
// driver expects, so that Driver.Voltage recovers the measured voltage.
type ADC struct {
	pin  Sampler
	vref float32
	bits uint32
}

var _ dust.ADC = (*ADC)(nil)

// NewADC wraps pin. vref must match the dust driver VRef.
func NewADC(pin Sampler, vref float32) *ADC {
	if vref <= 0 {
		vref = dust.DefaultVRef
	}
	return &ADC{pin: pin, vref: vref, bits: dust.DefaultADCBits}
}

func (a *ADC) Configure(bits uint32) {
	if bits > 0 {
		a.bits = bits
	}
}

// Get returns the last conversion in counts. Read errors read as 0.
func (a *ADC) Get() uint16 {
	s, err := a.pin.Read()
	if err != nil {
		log.Error().Err(err).Msg("failed to read dust adc")
		return 0
	}
	return Counts(s.V, a.vref, a.bits)
}

// Counts converts v into counts of a bits wide converter referenced to vref,
// rounded and clamped to [0, full scale].
func Counts(v physic.ElectricPotential, vref float32, bits uint32) uint16 {
	fullScale := float64(int(1)<<bits - 1)
	volts := float64(v) / float64(physic.Volt)
	c := math.Round(volts / float64(vref) * fullScale)
	return uint16(math.Max(0, math.Min(c, fullScale)))
}

// Opts selects the hardware for Open.
type Opts struct {
	LEDPin     string
	Channel    int
	I2CAddress uint16  // 0 keeps the ads1x15 default
	MaxVoltage float32 // ADS1015 full-scale range (V)
	VRef       float32
}

// Hardware holds the opened periph.io resources.
type Hardware struct {
	LED *LED
	ADC *ADC

	bus i2c.BusCloser
	pin ads1x15.PinADC
}

// Open initializes periph.io and opens the LED pin and ADS1015 channel.
func Open(opts Opts) (*Hardware, error) {
	if opts.Channel < 0 || opts.Channel >= len(channels) {
		return nil, fmt.Errorf("%w: %d", ErrChannel, opts.Channel)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	led, err := LEDByName(opts.LEDPin)
	if err != nil {
		return nil, err
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c bus: %w", err)
	}

	adcOpts := ads1x15.DefaultOpts
	if opts.I2CAddress != 0 {
		adcOpts.I2cAddress = opts.I2CAddress
	}
	adc, err := ads1x15.NewADS1015(bus, &adcOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to open ads1015: %w", err)
	}

	maxV := physic.ElectricPotential(float64(opts.MaxVoltage) * float64(physic.Volt))
	pin, err := adc.PinForChannel(channels[opts.Channel], maxV, 3300*physic.Hertz, ads1x15.BestQuality)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to open ads1015 channel %d: %w", opts.Channel, err)
	}

	log.Info().
		Str("led", opts.LEDPin).
		Int("channel", opts.Channel).
		Str("bus", bus.String()).
		Msg("dust probe hardware opened")

	return &Hardware{
		LED: led,
		ADC: NewADC(pin, opts.VRef),
		bus: bus,
		pin: pin,
	}, nil
}

// Close turns the LED off and releases the ADC channel and bus.
func (h *Hardware) Close() error {
	h.LED.High()
	return errors.Join(h.pin.Halt(), h.bus.Close())
}
