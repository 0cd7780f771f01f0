package dust

import "time"

// LED drives the sensor's LED control line. The line is active-low:
// Low turns the LED on, High turns it off.
type LED interface {
	Configure() // push-pull output
	High()
	Low()
}

// ADC reads the sensor's analog output.
type ADC interface {
	// Configure sets the resolution. Get must then return counts in [0, 2^bits-1].
	Configure(bits uint32)
	Get() uint16
}

// Clock provides the blocking delays the pulse sequence depends on.
type Clock interface {
	Now() time.Time
	// Sleep blocks for at least d. Used for millisecond bookkeeping.
	Sleep(d time.Duration)
	// Busy blocks for d with microsecond precision, without yielding to a scheduler.
	Busy(d time.Duration)
}

// Logger receives diagnostics. A nil Logger discards them.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// SystemClock implements Clock on top of the time package.
type SystemClock struct{}

var _ Clock = SystemClock{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

// Busy spins until d has elapsed.
func (SystemClock) Busy(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any) {}
func (nopLogger) Warnf(string, ...any) {}
