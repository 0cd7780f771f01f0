package node

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/itohio/dustnode/pkg/config"
	"github.com/itohio/dustnode/pkg/dust"
	"github.com/itohio/dustnode/pkg/dust/dusttest"
	"github.com/itohio/dustnode/pkg/logging"
	"github.com/itohio/dustnode/pkg/rain"
	"github.com/itohio/dustnode/pkg/telemetry"
)

// ErrBusy is returned when a recalibration is already queued.
var ErrBusy = errors.New("recalibration already pending")

// Mock simulates a dust node for testing and development. It runs the real
// dust driver against simulated hardware whose output follows a
// periodic dust plume. Simulated time runs independently of wall time.
type Mock struct {
	cfg *config.Config

	records   chan telemetry.Record
	recal     chan time.Duration
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool

	rig    *dusttest.Rig
	driver *dust.Driver
	rain   *rain.Sensors
}

// NewMock creates a new mocked node. A nil cfg selects config.Default().
func NewMock(cfg *config.Config) *Mock {
	if cfg == nil {
		cfg = config.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Mock{
		cfg:     cfg,
		records: make(chan telemetry.Record, DefaultBufferSize),
		recal:   make(chan time.Duration, 1),
		ctx:     ctx,
		cancel:  cancel,
	}

	m.rig = dusttest.NewRig(nil)
	m.rig.ADC.SetSource(m.dustCounts)
	m.driver = m.rig.NewDriver(cfg.Dust.Driver(), logging.Dust(log.Logger))

	bits := cfg.Dust.ADCBits
	dry := dusttest.CountsFor(3.1, float64(cfg.Dust.VRef), bits)
	m.rain = rain.New(
		dusttest.NewADC(m.rig.Clock, dusttest.Sequence(dry, dry-3, dry+2)),
		dusttest.NewADC(m.rig.Clock, dusttest.Sequence(dry-40, dry-37)),
		m.rig.Clock, bits, cfg.Rain.Oversample, cfg.Rain.Interval,
	)

	return m
}

// Connect initializes the simulated node and starts generating records.
// The baseline is learned in clean air before the first plume.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return ErrAlreadyConnected
	}
	if m.ctx.Err() != nil {
		return ErrClosed
	}

	m.driver.Initialize()
	m.rain.Configure()

	m.connected = true
	m.done = make(chan struct{})
	go m.generateRecords()

	return nil
}

// Close stops the mocked node and closes the records channel.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	m.connected = false
	done := m.done
	m.mu.Unlock()

	<-done
	return nil
}

// Records returns the channel for reading records.
func (m *Mock) Records() <-chan telemetry.Record {
	return m.records
}

// Recalibrate queues a baseline recalibration. It runs between records on
// the generator goroutine, which owns the simulated sensor.
func (m *Mock) Recalibrate(window time.Duration) error {
	if window <= 0 || window > telemetry.MaxRecalibrate {
		return fmt.Errorf("recalibration window %v out of range", window)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return ErrNotConnected
	}

	select {
	case m.recal <- window:
		return nil
	default:
		return ErrBusy
	}
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// generateRecords emits one record per configured period.
func (m *Mock) generateRecords() {
	defer close(m.done)
	defer close(m.records)

	ticker := time.NewTicker(m.cfg.Mock.Period)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case window := <-m.recal:
			m.driver.RecalibrateBaseline(window)
		case <-ticker.C:
			rec := m.generateRecord()
			select {
			case m.records <- rec:
			case <-m.ctx.Done():
				return
			default:
				// Channel full, skip
			}
		}
	}
}

// generateRecord takes one reading and advances simulated time by a period.
func (m *Mock) generateRecord() telemetry.Record {
	d := m.driver.Read(m.cfg.Dust.Samples)
	r := m.rain.Read()
	rec := telemetry.NewRecord(m.rig.Clock.Elapsed(), m.driver.Ready(), d, r)
	m.rig.Clock.Sleep(m.cfg.Mock.Period)
	return rec
}

// dustCounts is the simulated sensor output for the n-th conversion.
func (m *Mock) dustCounts(n int) uint16 {
	mc := m.cfg.Mock
	return dusttest.CountsFor(
		plumeVoltage(mc, m.rig.Clock.Elapsed())+noiseVoltage(mc, n, float64(m.cfg.Dust.VRef), m.cfg.Dust.ADCBits),
		float64(m.cfg.Dust.VRef),
		m.cfg.Dust.ADCBits,
	)
}

// plumeVoltage models the sensor output: clean air plus a raised-cosine plume
// peaking in the middle of every period and starting from clean air at boot.
func plumeVoltage(mc config.MockConfig, t time.Duration) float64 {
	if mc.PlumePeriod <= 0 {
		return mc.CleanVoltage
	}
	phase := float64(t%mc.PlumePeriod) / float64(mc.PlumePeriod)
	return mc.CleanVoltage + mc.PlumeVoltage*0.5*(1-math.Cos(2*math.Pi*phase))
}

// noiseVoltage is a deterministic triangle of NoiseCounts peak-to-peak.
func noiseVoltage(mc config.MockConfig, n int, vref float64, bits uint32) float64 {
	if mc.NoiseCounts <= 0 {
		return 0
	}
	span := 2 * mc.NoiseCounts
	k := n % span
	if k > mc.NoiseCounts {
		k = span - k
	}
	counts := float64(k) - float64(mc.NoiseCounts)/2
	return counts * vref / float64(uint32(1)<<bits-1)
}
