// Package monitor records dust node telemetry into a store.
package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/itohio/dustnode/pkg/node"
	"github.com/itohio/dustnode/pkg/sample"
	"github.com/itohio/dustnode/pkg/store"
)

// DefaultCleanupInterval is how often expired readings are purged.
const DefaultCleanupInterval = 24 * time.Hour

// Recorder stores every record a device emits.
type Recorder struct {
	dev       node.Device
	repo      store.Repository
	retention time.Duration

	// AverageWindow > 1 stores the moving average instead of raw records.
	AverageWindow   int
	CleanupInterval time.Duration
	Now             func() time.Time

	saved   int
	skipped int
}

// NewRecorder creates a recorder. A non-positive retention keeps everything.
func NewRecorder(dev node.Device, repo store.Repository, retention time.Duration) *Recorder {
	return &Recorder{
		dev:             dev,
		repo:            repo,
		retention:       retention,
		CleanupInterval: DefaultCleanupInterval,
		Now:             time.Now,
	}
}

// Run consumes device records until ctx is cancelled or the device stops.
// The device must already be connected.
func (r *Recorder) Run(ctx context.Context) error {
	log.Info().
		Dur("retention", r.retention).
		Int("average_window", r.AverageWindow).
		Msg("starting recorder")

	samples := sample.NewConverter(r.Now, 0)(r.dev.Records())
	if r.AverageWindow > 1 {
		samples = sample.NewAveragingConverter(r.AverageWindow, 0)(samples)
	}

	interval := r.CleanupInterval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	cleanupTicker := time.NewTicker(interval)
	defer cleanupTicker.Stop()

	r.cleanup(ctx)

	for {
		select {
		case s, ok := <-samples:
			if !ok {
				log.Info().Int("saved", r.saved).Msg("device stopped, recorder exiting")
				return nil
			}
			r.recordOnce(ctx, s)

		case <-cleanupTicker.C:
			r.cleanup(ctx)

		case <-ctx.Done():
			log.Info().Int("saved", r.saved).Msg("stopping recorder")
			return ctx.Err()
		}
	}
}

// Saved returns how many readings were stored.
func (r *Recorder) Saved() int { return r.saved }

// Skipped returns how many readings failed to store.
func (r *Recorder) Skipped() int { return r.skipped }

func (r *Recorder) recordOnce(ctx context.Context, s sample.Sample) {
	reading := store.FromSample(s)
	if err := r.repo.Save(ctx, reading); err != nil {
		r.skipped++
		log.Error().Err(err).Msg("failed to save reading")
		return
	}
	r.saved++

	log.Debug().
		Int64("id", reading.ID).
		Bool("ready", reading.Ready).
		Float32("density", reading.Density).
		Float32("voltage", reading.Voltage).
		Float32("rain1", reading.Rain1).
		Float32("rain2", reading.Rain2).
		Msg("recorded dust reading")
}

func (r *Recorder) cleanup(ctx context.Context) {
	if r.retention <= 0 {
		return
	}
	n, err := r.repo.DeleteOlderThan(ctx, r.retention)
	if err != nil {
		log.Error().Err(err).Msg("failed to delete old readings")
		return
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Dur("retention", r.retention).Msg("deleted old readings")
	}
}
