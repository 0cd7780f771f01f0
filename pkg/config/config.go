package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/itohio/dustnode/pkg/dust"
	"github.com/itohio/dustnode/pkg/rain"
)

// ErrInvalid is wrapped by every Validate error.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application configuration.
type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	Dust    DustConfig    `yaml:"dust"`
	Rain    RainConfig    `yaml:"rain"`
	Store   StoreConfig   `yaml:"store"`
	Monitor MonitorConfig `yaml:"monitor"`
	Log     LogConfig     `yaml:"log"`
	Probe   ProbeConfig   `yaml:"probe"`
	Mock    MockConfig    `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// DustConfig contains the GP2Y1010 tunables.
type DustConfig struct {
	K               float32       `yaml:"k"`                // V per mg/m3
	Gain            float32       `yaml:"gain"`             // sensitivity multiplier, 1.0-3.0
	DefaultBaseline float32       `yaml:"default_baseline"` // V, before first calibration
	BaselineMin     float32       `yaml:"baseline_min"`     // V
	BaselineMax     float32       `yaml:"baseline_max"`     // V
	LearnWindow     time.Duration `yaml:"learn_window"`
	LearnInterval   time.Duration `yaml:"learn_interval"`
	ADCBits         uint32        `yaml:"adc_bits"`
	VRef            float32       `yaml:"vref"`
	Samples         int           `yaml:"samples"` // pulses averaged per reading
}

// RainConfig contains rain sensor sampling parameters.
type RainConfig struct {
	Oversample int           `yaml:"oversample"`
	Interval   time.Duration `yaml:"interval"`
}

// StoreConfig selects where readings are kept.
type StoreConfig struct {
	Driver    string        `yaml:"driver"` // "sqlite" or "memory"
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"`
}

// MonitorConfig contains host-side processing parameters.
type MonitorConfig struct {
	AverageWindow int `yaml:"average_window"` // records in the moving average (0 = disabled)
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// ProbeConfig maps the sensor onto local periph.io hardware.
type ProbeConfig struct {
	LEDPin     string  `yaml:"led_pin"`
	Channel    int     `yaml:"channel"`     // ADS1015 input
	I2CAddress uint16  `yaml:"i2c_address"` // 0 = driver default
	MaxVoltage float32 `yaml:"max_voltage"` // ADS1015 full-scale range (V)
}

// MockConfig contains mock node configuration.
type MockConfig struct {
	CleanVoltage float64       `yaml:"clean_voltage"` // sensor output in clean air (V)
	PlumeVoltage float64       `yaml:"plume_voltage"` // peak rise during a dust plume (V)
	PlumePeriod  time.Duration `yaml:"plume_period"`  // time between plume peaks (simulated)
	NoiseCounts  int           `yaml:"noise_counts"`  // peak-to-peak ADC noise
	Period       time.Duration `yaml:"period"`        // wall time between records
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 115200,
		},
		Dust: DustConfig{
			K:               dust.DefaultK,
			Gain:            dust.DefaultGain,
			DefaultBaseline: dust.DefaultBaseline,
			BaselineMin:     dust.DefaultBaselineMin,
			BaselineMax:     dust.DefaultBaselineMax,
			LearnWindow:     dust.DefaultLearnWindow,
			LearnInterval:   dust.DefaultLearnInterval,
			ADCBits:         dust.DefaultADCBits,
			VRef:            dust.DefaultVRef,
			Samples:         dust.DefaultSamples,
		},
		Rain: RainConfig{
			Oversample: rain.DefaultOversample,
			Interval:   rain.DefaultInterval,
		},
		Store: StoreConfig{
			Driver:    "sqlite",
			Path:      "dustnode.db",
			Retention: 30 * 24 * time.Hour,
		},
		Monitor: MonitorConfig{
			AverageWindow: 0, // No averaging by default
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
		Probe: ProbeConfig{
			LEDPin:     "GPIO17",
			Channel:    0,
			MaxVoltage: 4.096,
		},
		Mock: MockConfig{
			CleanVoltage: 0.62,
			PlumeVoltage: 0.4,
			PlumePeriod:  2 * time.Minute,
			NoiseCounts:  6,
			Period:       time.Second,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the tunables are physically meaningful.
func (c *Config) Validate() error {
	d := c.Dust
	switch {
	case d.K <= 0:
		return fmt.Errorf("%w: dust.k must be positive, got %v", ErrInvalid, d.K)
	case d.Gain < 1.0 || d.Gain > 3.0:
		return fmt.Errorf("%w: dust.gain must be within [1.0, 3.0], got %v", ErrInvalid, d.Gain)
	case d.BaselineMin <= 0 || d.BaselineMin >= d.BaselineMax:
		return fmt.Errorf("%w: dust baseline bounds [%v, %v] are not ordered", ErrInvalid, d.BaselineMin, d.BaselineMax)
	case d.DefaultBaseline < d.BaselineMin || d.DefaultBaseline > d.BaselineMax:
		return fmt.Errorf("%w: dust.default_baseline %v outside [%v, %v]", ErrInvalid, d.DefaultBaseline, d.BaselineMin, d.BaselineMax)
	case d.ADCBits < 8 || d.ADCBits > 16:
		return fmt.Errorf("%w: dust.adc_bits must be within [8, 16], got %d", ErrInvalid, d.ADCBits)
	case d.VRef <= 0:
		return fmt.Errorf("%w: dust.vref must be positive, got %v", ErrInvalid, d.VRef)
	case d.Samples < 1:
		return fmt.Errorf("%w: dust.samples must be at least 1, got %d", ErrInvalid, d.Samples)
	}

	if c.Mock.Period <= 0 {
		return fmt.Errorf("%w: mock.period must be positive, got %v", ErrInvalid, c.Mock.Period)
	}

	switch c.Store.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("%w: unknown store.driver %q", ErrInvalid, c.Store.Driver)
	}

	if c.Monitor.AverageWindow < 0 {
		return fmt.Errorf("%w: monitor.average_window must not be negative", ErrInvalid)
	}

	return nil
}

// Driver converts the dust section to the driver configuration.
// Pulse timing is fixed by the sensor and not configurable.
func (d DustConfig) Driver() dust.Config {
	cfg := dust.DefaultConfig()
	cfg.K = d.K
	cfg.Gain = d.Gain
	cfg.DefaultBaseline = d.DefaultBaseline
	cfg.BaselineMin = d.BaselineMin
	cfg.BaselineMax = d.BaselineMax
	cfg.LearnWindow = d.LearnWindow
	cfg.LearnInterval = d.LearnInterval
	cfg.ADCBits = d.ADCBits
	cfg.VRef = d.VRef
	return cfg
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Dust.K == 0 {
		c.Dust.K = def.Dust.K
	}
	if c.Dust.Gain == 0 {
		c.Dust.Gain = def.Dust.Gain
	}
	if c.Dust.DefaultBaseline == 0 {
		c.Dust.DefaultBaseline = def.Dust.DefaultBaseline
	}
	if c.Dust.BaselineMin == 0 {
		c.Dust.BaselineMin = def.Dust.BaselineMin
	}
	if c.Dust.BaselineMax == 0 {
		c.Dust.BaselineMax = def.Dust.BaselineMax
	}
	if c.Dust.LearnWindow == 0 {
		c.Dust.LearnWindow = def.Dust.LearnWindow
	}
	if c.Dust.LearnInterval == 0 {
		c.Dust.LearnInterval = def.Dust.LearnInterval
	}
	if c.Dust.ADCBits == 0 {
		c.Dust.ADCBits = def.Dust.ADCBits
	}
	if c.Dust.VRef == 0 {
		c.Dust.VRef = def.Dust.VRef
	}
	if c.Dust.Samples == 0 {
		c.Dust.Samples = def.Dust.Samples
	}

	if c.Rain.Oversample == 0 {
		c.Rain.Oversample = def.Rain.Oversample
	}
	if c.Rain.Interval == 0 {
		c.Rain.Interval = def.Rain.Interval
	}

	if c.Store.Driver == "" {
		c.Store.Driver = def.Store.Driver
	}
	if c.Store.Path == "" {
		c.Store.Path = def.Store.Path
	}
	if c.Store.Retention == 0 {
		c.Store.Retention = def.Store.Retention
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}

	if c.Probe.LEDPin == "" {
		c.Probe.LEDPin = def.Probe.LEDPin
	}
	if c.Probe.MaxVoltage == 0 {
		c.Probe.MaxVoltage = def.Probe.MaxVoltage
	}

	if c.Mock.CleanVoltage == 0 {
		c.Mock.CleanVoltage = def.Mock.CleanVoltage
	}
	if c.Mock.PlumePeriod == 0 {
		c.Mock.PlumePeriod = def.Mock.PlumePeriod
	}
	if c.Mock.Period == 0 {
		c.Mock.Period = def.Mock.Period
	}
}
