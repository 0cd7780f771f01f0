package dust

import "time"

const (
	// DefaultK is the GP2Y1010 output slope from the Sharp datasheet (V per mg/m3).
	DefaultK = 0.005
	// DefaultGain is the sensitivity multiplier. Typical tuning range is 1.0-3.0.
	DefaultGain = 1.8
	// DefaultBaseline is the clean-air voltage assumed before the first calibration.
	DefaultBaseline = 0.60
	// DefaultBaselineMin and DefaultBaselineMax bound a learned baseline.
	DefaultBaselineMin = 0.3
	DefaultBaselineMax = 0.9

	// DefaultLearnWindow is how long Initialize learns the baseline.
	DefaultLearnWindow = 3000 * time.Millisecond
	// DefaultLearnInterval is the pause between learning samples.
	DefaultLearnInterval = 5 * time.Millisecond

	// Pulse timing from the Sharp application note. The three delays add up
	// to the sensor's 10ms pulse period.
	DefaultLEDSettle  = 280 * time.Microsecond
	DefaultSampleHold = 40 * time.Microsecond
	DefaultOffPeriod  = 9680 * time.Microsecond

	// DefaultADCBits is the ADC resolution (12-bit = 0-4095).
	DefaultADCBits = 12
	// DefaultVRef is the ADC full-scale voltage.
	DefaultVRef = 3.3

	// DefaultSamples is the number of pulses averaged per Read.
	DefaultSamples = 5
)

// Config holds the driver tunables. Zero fields are replaced by defaults in New.
type Config struct {
	K               float32 // V per mg/m3
	Gain            float32
	DefaultBaseline float32 // V
	BaselineMin     float32 // V
	BaselineMax     float32 // V

	LearnWindow   time.Duration
	LearnInterval time.Duration

	LEDSettle  time.Duration
	SampleHold time.Duration
	OffPeriod  time.Duration

	ADCBits uint32
	VRef    float32 // V
}

// DefaultConfig returns the configuration matching the reference hardware.
func DefaultConfig() Config {
	return Config{
		K:               DefaultK,
		Gain:            DefaultGain,
		DefaultBaseline: DefaultBaseline,
		BaselineMin:     DefaultBaselineMin,
		BaselineMax:     DefaultBaselineMax,
		LearnWindow:     DefaultLearnWindow,
		LearnInterval:   DefaultLearnInterval,
		LEDSettle:       DefaultLEDSettle,
		SampleHold:      DefaultSampleHold,
		OffPeriod:       DefaultOffPeriod,
		ADCBits:         DefaultADCBits,
		VRef:            DefaultVRef,
	}
}

// FullScale returns the highest count the ADC can report.
func (c Config) FullScale() int {
	return 1<<c.ADCBits - 1
}

// PulsePeriod returns the length of one SampleOnce cycle.
func (c Config) PulsePeriod() time.Duration {
	return c.LEDSettle + c.SampleHold + c.OffPeriod
}

func (c *Config) ensureDefaults() {
	def := DefaultConfig()

	if c.K == 0 {
		c.K = def.K
	}
	if c.Gain == 0 {
		c.Gain = def.Gain
	}
	if c.DefaultBaseline == 0 {
		c.DefaultBaseline = def.DefaultBaseline
	}
	if c.BaselineMin == 0 {
		c.BaselineMin = def.BaselineMin
	}
	if c.BaselineMax == 0 {
		c.BaselineMax = def.BaselineMax
	}
	if c.LearnWindow == 0 {
		c.LearnWindow = def.LearnWindow
	}
	if c.LearnInterval == 0 {
		c.LearnInterval = def.LearnInterval
	}
	if c.LEDSettle == 0 {
		c.LEDSettle = def.LEDSettle
	}
	if c.SampleHold == 0 {
		c.SampleHold = def.SampleHold
	}
	if c.OffPeriod == 0 {
		c.OffPeriod = def.OffPeriod
	}
	if c.ADCBits == 0 {
		c.ADCBits = def.ADCBits
	}
	if c.VRef == 0 {
		c.VRef = def.VRef
	}
}
