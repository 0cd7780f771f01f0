// Package store persists dust node readings on the host.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/itohio/dustnode/pkg/sample"
)

var (
	// ErrNotFound indicates no reading matched the query.
	ErrNotFound = errors.New("reading not found")

	// ErrInvalidReading indicates a reading that must not be stored.
	ErrInvalidReading = errors.New("invalid reading")
)

// Reading is one stored telemetry record.
type Reading struct {
	ID        int64
	Timestamp time.Time     // host receive time
	Uptime    time.Duration // node uptime
	Ready     bool
	RawCounts int
	Voltage   float32 // V
	Density   float32 // mg/m3
	Rain1     float32 // %
	Rain2     float32 // %
}

// FromSample converts a host sample to a reading ready to be saved.
func FromSample(s sample.Sample) *Reading {
	return &Reading{
		Timestamp: s.Timestamp,
		Uptime:    s.Uptime,
		Ready:     s.Ready,
		RawCounts: s.Raw,
		Voltage:   s.Voltage,
		Density:   s.Density,
		Rain1:     s.Rain1,
		Rain2:     s.Rain2,
	}
}

// Sample converts the reading back to a host sample.
func (r *Reading) Sample() sample.Sample {
	return sample.Sample{
		Timestamp: r.Timestamp,
		Uptime:    r.Uptime,
		Ready:     r.Ready,
		Raw:       r.RawCounts,
		Voltage:   r.Voltage,
		Density:   r.Density,
		Rain1:     r.Rain1,
		Rain2:     r.Rain2,
	}
}

// Validate reports ErrInvalidReading for readings the node cannot produce.
func (r *Reading) Validate() error {
	switch {
	case r.Timestamp.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrInvalidReading)
	case r.Density < 0:
		return fmt.Errorf("%w: negative density", ErrInvalidReading)
	case r.RawCounts < 0:
		return fmt.Errorf("%w: negative raw counts", ErrInvalidReading)
	}
	return nil
}

// Repository stores and queries readings.
type Repository interface {
	// Save persists a reading and assigns its ID.
	Save(ctx context.Context, reading *Reading) error

	// Get returns the reading with id or ErrNotFound.
	Get(ctx context.Context, id int64) (*Reading, error)

	// Latest returns up to n most recent readings, newest first.
	Latest(ctx context.Context, n int) ([]*Reading, error)

	// Between returns readings in [from, to), oldest first.
	Between(ctx context.Context, from, to time.Time) ([]*Reading, error)

	// DeleteOlderThan removes readings older than age and returns how many.
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)

	Close() error
}
