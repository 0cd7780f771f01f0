package node

import (
	"time"

	"github.com/itohio/dustnode/pkg/telemetry"
)

// Device defines the interface for dust nodes (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Records() <-chan telemetry.Record
	// Recalibrate asks the node to relearn its dust baseline over window.
	// Only call it while the air around the sensor is clean.
	Recalibrate(window time.Duration) error
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
