// Package dusttest provides simulated hardware for the dust driver. Nothing
// in this package blocks: delays advance a simulated clock.
package dusttest

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/itohio/dustnode/pkg/dust"
)

var (
	_ dust.Clock = (*Clock)(nil)
	_ dust.LED   = (*LED)(nil)
	_ dust.ADC   = (*ADC)(nil)
)

// Epoch is the simulated time at which a new Clock starts.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Delay kinds recorded by Clock.
const (
	KindSleep = "sleep"
	KindBusy  = "busy"
)

// Call is one recorded delay.
type Call struct {
	Kind string
	At   time.Duration // elapsed simulated time when the delay started
	D    time.Duration
}

// Clock is a simulated clock. Sleep and Busy advance it by exactly d.
type Clock struct {
	mu    sync.Mutex
	now   time.Time
	calls []Call
	start time.Time
}

// NewClock creates a clock at Epoch.
func NewClock() *Clock {
	return &Clock{now: Epoch, start: Epoch}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Sleep(d time.Duration) { c.advance(KindSleep, d) }

func (c *Clock) Busy(d time.Duration) { c.advance(KindBusy, d) }

func (c *Clock) advance(kind string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Kind: kind, At: c.now.Sub(c.start), D: d})
	c.now = c.now.Add(d)
}

// Elapsed returns the simulated time since the clock was created.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(c.start)
}

// Calls returns a copy of the recorded delays.
func (c *Clock) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// Reset clears the recorded delays. Simulated time keeps running.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

// LED event kinds.
const (
	EventConfigure = "configure"
	EventHigh      = "high"
	EventLow       = "low"
)

// Event is one recorded LED line change.
type Event struct {
	Kind string
	At   time.Duration
}

// LED records every change of the LED control line.
type LED struct {
	clock  *Clock
	mu     sync.Mutex
	high   bool
	events []Event
}

// NewLED creates an LED line stamped by clock.
func NewLED(clock *Clock) *LED {
	return &LED{clock: clock}
}

func (l *LED) Configure() { l.record(EventConfigure) }

func (l *LED) High() {
	l.record(EventHigh)
	l.mu.Lock()
	l.high = true
	l.mu.Unlock()
}

func (l *LED) Low() {
	l.record(EventLow)
	l.mu.Lock()
	l.high = false
	l.mu.Unlock()
}

func (l *LED) record(kind string) {
	at := l.clock.Elapsed()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, Event{Kind: kind, At: at})
}

// IsHigh reports the current line level. High means the LED is off.
func (l *LED) IsHigh() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.high
}

// Events returns a copy of the recorded events.
func (l *LED) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

// Reset clears the recorded events.
func (l *LED) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// Source produces the count for the n-th conversion (starting at 0).
type Source func(n int) uint16

// Constant returns a source that always reads c.
func Constant(c uint16) Source {
	return func(int) uint16 { return c }
}

// Sequence returns a source that cycles through cs.
func Sequence(cs ...uint16) Source {
	if len(cs) == 0 {
		panic("dusttest: empty sequence")
	}
	return func(n int) uint16 { return cs[n%len(cs)] }
}

// CountsFor returns the ADC count closest to volts for the given reference
// and resolution.
func CountsFor(volts, vref float64, bits uint32) uint16 {
	full := float64(uint32(1)<<bits - 1)
	c := math.Round(volts / vref * full)
	if c < 0 {
		return 0
	}
	if c > full {
		return uint16(full)
	}
	return uint16(c)
}

// ADC returns counts from a Source and records each conversion.
type ADC struct {
	clock *Clock
	mu    sync.Mutex
	src   Source
	bits  uint32
	reads []time.Duration
}

// NewADC creates an ADC stamped by clock.
func NewADC(clock *Clock, src Source) *ADC {
	return &ADC{clock: clock, src: src}
}

func (a *ADC) Configure(bits uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bits = bits
}

func (a *ADC) Get() uint16 {
	at := a.clock.Elapsed()
	a.mu.Lock()
	defer a.mu.Unlock()
	v := a.src(len(a.reads))
	a.reads = append(a.reads, at)
	return v
}

// SetSource replaces the count source. The conversion counter keeps running.
func (a *ADC) SetSource(src Source) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.src = src
}

// Bits returns the configured resolution, 0 if Configure was never called.
func (a *ADC) Bits() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bits
}

// Reads returns the number of conversions.
func (a *ADC) Reads() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.reads)
}

// ReadTimes returns the simulated times of every conversion.
func (a *ADC) ReadTimes() []time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]time.Duration(nil), a.reads...)
}

// Rig bundles simulated hardware for one sensor.
type Rig struct {
	Clock *Clock
	LED   *LED
	ADC   *ADC
}

// NewRig creates simulated hardware reading from src.
func NewRig(src Source) *Rig {
	clock := NewClock()
	return &Rig{
		Clock: clock,
		LED:   NewLED(clock),
		ADC:   NewADC(clock, src),
	}
}

// NewDriver creates a driver wired to the rig.
func (r *Rig) NewDriver(cfg dust.Config, log dust.Logger) *dust.Driver {
	return dust.New(cfg, r.LED, r.ADC, r.Clock, log)
}

// Log collects driver diagnostics.
type Log struct {
	mu    sync.Mutex
	Lines []string
}

var _ dust.Logger = (*Log)(nil)

func (l *Log) Infof(format string, args ...any) { l.add("INFO", format, args...) }

func (l *Log) Warnf(format string, args ...any) { l.add("WARN", format, args...) }

func (l *Log) add(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Lines = append(l.Lines, fmt.Sprintf("[%s] ", level)+fmt.Sprintf(format, args...))
}
