package sample

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/itohio/dustnode/pkg/telemetry"
)

// Sample represents a node record stamped with host time.
type Sample struct {
	Timestamp time.Time     // host receive time
	Uptime    time.Duration // node uptime
	Ready     bool          // dust baseline learned
	Raw       int
	Voltage   float32 // V
	Density   float32 // mg/m3
	Rain1     float32 // %
	Rain2     float32 // %
}

// Converter is a function type that converts a Record channel to a Sample channel.
type Converter func(in <-chan telemetry.Record) <-chan Sample

// NewConverter creates a converter that stamps each record with now().
// A nil now selects time.Now.
func NewConverter(now func() time.Time, bufSize int) Converter {
	if now == nil {
		now = time.Now
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan telemetry.Record) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			for rec := range in {
				select {
				case out <- FromRecord(rec, now()):
				case <-time.After(time.Second):
					log.Warn().Msg("converter output channel full, dropping sample")
				}
			}
		}()

		return out
	}
}

// FromRecord converts a record received at ts.
func FromRecord(rec telemetry.Record, ts time.Time) Sample {
	return Sample{
		Timestamp: ts,
		Uptime:    rec.Uptime,
		Ready:     rec.Ready,
		Raw:       rec.Raw,
		Voltage:   rec.Voltage,
		Density:   rec.Density,
		Rain1:     rec.Rain1,
		Rain2:     rec.Rain2,
	}
}
