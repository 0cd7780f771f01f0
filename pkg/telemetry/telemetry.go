// Package telemetry defines the line protocol between the node firmware and
// the host.
//
// The node writes one record per line:
//
//	uptime_ms,ready,raw,voltage_mV,density_cmgm3,rain1,rain2
//
// ready is 0 or 1, voltage is in integer millivolts, density in hundredths of
// mg/m3 and rain in integer percent. Example: "123456,1,993,800,6480,12,15".
// Lines starting with '[' are diagnostics and carry no record.
//
// The host controls the node with single-line commands:
//
//	R<ms>   relearn the dust baseline for <ms> milliseconds
package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/dustnode/pkg/dust"
	"github.com/itohio/dustnode/pkg/rain"
)

const (
	// MaxRaw is the largest raw count accepted on the wire (12-bit ADC).
	MaxRaw = 4095
	// MaxRecalibrate bounds the recalibration window of a command.
	MaxRecalibrate = 60 * time.Second
)

var (
	// ErrMalformed is wrapped by every parse error.
	ErrMalformed = errors.New("malformed telemetry")
	// ErrDiagnostic is returned for diagnostic lines.
	ErrDiagnostic = errors.New("diagnostic line")
)

// Record is one node measurement.
type Record struct {
	Uptime  time.Duration
	Ready   bool    // dust baseline learned
	Raw     int     // mean dust ADC count
	Voltage float32 // dust sensor output (V)
	Density float32 // mg/m3
	Rain1   float32 // %
	Rain2   float32 // %
}

// NewRecord assembles a record from sensor readings.
func NewRecord(uptime time.Duration, ready bool, d dust.Reading, r rain.Reading) Record {
	return Record{
		Uptime:  uptime,
		Ready:   ready,
		Raw:     d.RawCounts,
		Voltage: d.Voltage,
		Density: d.Density,
		Rain1:   r.Pct1,
		Rain2:   r.Pct2,
	}
}

// AppendLine appends the wire form of r, including the trailing newline.
func (r Record) AppendLine(dst []byte) []byte {
	dst = strconv.AppendInt(dst, r.Uptime.Milliseconds(), 10)
	dst = append(dst, ',')
	if r.Ready {
		dst = append(dst, '1')
	} else {
		dst = append(dst, '0')
	}
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(r.Raw), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, scaled(r.Voltage, 1000), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, scaled(r.Density, 100), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, scaled(r.Rain1, 1), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, scaled(r.Rain2, 1), 10)
	return append(dst, '\n')
}

// String returns the wire form of r without the newline.
func (r Record) String() string {
	b := r.AppendLine(nil)
	return string(b[:len(b)-1])
}

// scaled rounds v*factor to the nearest integer. Negative values become 0.
func scaled(v float32, factor float32) int64 {
	x := v*factor + 0.5
	if x < 0 {
		return 0
	}
	return int64(x)
}

// IsDiagnostic reports whether line is a node diagnostic rather than a record.
func IsDiagnostic(line string) bool {
	return strings.HasPrefix(line, "[")
}

// ParseLine parses one record line. Surrounding whitespace is ignored.
func ParseLine(line string) (Record, error) {
	line = strings.TrimSpace(line)
	if IsDiagnostic(line) {
		return Record{}, ErrDiagnostic
	}

	parts := strings.Split(line, ",")
	if len(parts) != 7 {
		return Record{}, fmt.Errorf("%w: expected 7 comma-separated values, got %d", ErrMalformed, len(parts))
	}

	uptime, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || uptime < 0 {
		return Record{}, fmt.Errorf("%w: invalid uptime %q", ErrMalformed, parts[0])
	}

	var ready bool
	switch parts[1] {
	case "0":
	case "1":
		ready = true
	default:
		return Record{}, fmt.Errorf("%w: invalid ready flag %q", ErrMalformed, parts[1])
	}

	raw, err := parseRange(parts[2], "raw", MaxRaw)
	if err != nil {
		return Record{}, err
	}
	mv, err := parseRange(parts[3], "voltage", 1<<31-1)
	if err != nil {
		return Record{}, err
	}
	density, err := parseRange(parts[4], "density", 1<<31-1)
	if err != nil {
		return Record{}, err
	}
	rain1, err := parseRange(parts[5], "rain1", 100)
	if err != nil {
		return Record{}, err
	}
	rain2, err := parseRange(parts[6], "rain2", 100)
	if err != nil {
		return Record{}, err
	}

	return Record{
		Uptime:  time.Duration(uptime) * time.Millisecond,
		Ready:   ready,
		Raw:     int(raw),
		Voltage: float32(mv) / 1000,
		Density: float32(density) / 100,
		Rain1:   float32(rain1),
		Rain2:   float32(rain2),
	}, nil
}

func parseRange(s, field string, max int64) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s: %v", ErrMalformed, field, err)
	}
	if v < 0 || v > max {
		return 0, fmt.Errorf("%w: %s out of range: %d (max %d)", ErrMalformed, field, v, max)
	}
	return v, nil
}

// Command is a host request to the node.
type Command struct {
	Recalibrate time.Duration
}

// AppendRecalibrate appends a recalibration command for window.
func AppendRecalibrate(dst []byte, window time.Duration) []byte {
	dst = append(dst, 'R')
	dst = strconv.AppendInt(dst, window.Milliseconds(), 10)
	return append(dst, '\n')
}

// ParseCommand parses one command line.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if len(line) < 2 || line[0] != 'R' {
		return Command{}, fmt.Errorf("%w: unknown command %q", ErrMalformed, line)
	}

	ms, err := strconv.ParseInt(line[1:], 10, 64)
	if err != nil {
		return Command{}, fmt.Errorf("%w: invalid window: %v", ErrMalformed, err)
	}
	if ms <= 0 || ms > MaxRecalibrate.Milliseconds() {
		return Command{}, fmt.Errorf("%w: window out of range: %dms", ErrMalformed, ms)
	}

	return Command{Recalibrate: time.Duration(ms) * time.Millisecond}, nil
}
