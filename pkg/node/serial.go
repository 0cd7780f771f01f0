package node

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/itohio/dustnode/pkg/telemetry"
)

const (
	// DefaultBaudRate is the UART rate used by the node firmware.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the records channel buffer.
	DefaultBufferSize = 100
)

var (
	// ErrNotConnected is returned by operations that need an open link.
	ErrNotConnected = errors.New("not connected")
	// ErrAlreadyConnected is returned by Connect on an open link.
	ErrAlreadyConnected = errors.New("already connected")
	// ErrClosed is returned by Connect after Close.
	ErrClosed = errors.New("device closed")
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial represents a connection to a node over UART.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      serial.Port
	records   chan telemetry.Record
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool
}

// NewSerial creates a new Serial instance with the specified port, baud rate, and buffer size.
func NewSerial(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		records:  make(chan telemetry.Record, bufSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil || len(details) == 0 {
		// Fall back to plain names when the platform has no enumerator
		names, err := serial.GetPortsList()
		if err != nil {
			return nil, fmt.Errorf("failed to list serial ports: %w", err)
		}
		result := make([]Port, 0, len(names))
		for _, name := range names {
			result = append(result, Port{Name: name, Description: name})
		}
		return result, nil
	}

	result := make([]Port, 0, len(details))
	for _, d := range details {
		desc := d.Name
		if d.IsUSB {
			desc = fmt.Sprintf("%s (USB %s:%s %s)", d.Name, d.VID, d.PID, strings.TrimSpace(d.Product))
		}
		result = append(result, Port{Name: d.Name, Description: desc})
	}
	return result, nil
}

// Connect connects to the serial port and starts reading records.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return ErrAlreadyConnected
	}
	if d.ctx.Err() != nil {
		return ErrClosed
	}

	port, err := serial.Open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	if d.done != nil {
		// the previous reader closed its channel when the link was lost
		d.records = make(chan telemetry.Record, d.bufSize)
	}
	d.conn = port
	d.connected = true
	d.done = make(chan struct{})

	go d.read(port)

	log.Info().Str("port", d.port).Int("baud", d.baudRate).Msg("connected to node")
	return nil
}

// Close closes the connection and waits for the reader to stop. The records
// channel is closed once the reader exits.
func (d *Serial) Close() error {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil
	}

	d.cancel()
	var err error
	if d.conn != nil {
		if err = d.conn.Close(); err != nil {
			err = fmt.Errorf("failed to close serial port %s: %w", d.port, err)
		}
		d.conn = nil
	}
	d.connected = false
	done := d.done
	d.mu.Unlock()

	<-done
	return err
}

// read runs the scanner until the port fails or Close cancels it. A port
// that fails on its own leaves the device disconnected.
func (d *Serial) read(r io.Reader) {
	defer close(d.done)
	defer close(d.records)

	scanRecords(d.ctx, r, d.records)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx.Err() != nil {
		return
	}
	log.Warn().Str("port", d.port).Msg("serial link lost")
	d.connected = false
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

// Records returns the channel for reading records.
// A reconnect after a lost link replaces the channel.
func (d *Serial) Records() <-chan telemetry.Record {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.records
}

// Recalibrate sends the baseline recalibration command.
func (d *Serial) Recalibrate(window time.Duration) error {
	if window <= 0 || window > telemetry.MaxRecalibrate {
		return fmt.Errorf("recalibration window %v out of range", window)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}

	if _, err := d.conn.Write(telemetry.AppendRecalibrate(nil, window)); err != nil {
		return fmt.Errorf("failed to send recalibrate command: %w", err)
	}
	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// scanRecords reads lines from r until EOF, a read error or ctx is done.
// Diagnostic lines are logged, malformed lines are skipped and records are
// pushed without blocking; a full channel drops the record.
func scanRecords(ctx context.Context, r io.Reader, out chan<- telemetry.Record) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if telemetry.IsDiagnostic(line) {
			log.Debug().Str("line", line).Msg("node diagnostic")
			continue
		}

		rec, err := telemetry.ParseLine(line)
		if err != nil {
			log.Warn().Err(err).Str("line", line).Msg("failed to parse line")
			continue
		}

		select {
		case out <- rec:
		case <-ctx.Done():
			return
		default:
			log.Warn().Msg("records channel full, dropping record")
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("error reading from serial port")
	}
}
