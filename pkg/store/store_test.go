package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/itohio/dustnode/pkg/sample"
)

func TestFromSample(t *testing.T) {
	s := sample.Sample{
		Timestamp: time.Unix(100, 0),
		Uptime:    time.Second,
		Ready:     true,
		Raw:       993,
		Voltage:   0.8,
		Density:   64.8,
		Rain1:     1,
		Rain2:     2,
	}

	r := FromSample(s)
	assert.Zero(t, r.ID)
	assert.Equal(t, 993, r.RawCounts)
	assert.Equal(t, s, r.Sample())
}

func TestReading_Validate(t *testing.T) {
	tests := []struct {
		name    string
		reading Reading
		wantErr bool
	}{
		{"valid", Reading{Timestamp: time.Unix(1, 0), Density: 1}, false},
		{"zero density", Reading{Timestamp: time.Unix(1, 0)}, false},
		{"missing timestamp", Reading{Density: 1}, true},
		{"negative density", Reading{Timestamp: time.Unix(1, 0), Density: -0.1}, true},
		{"negative raw", Reading{Timestamp: time.Unix(1, 0), RawCounts: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reading.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidReading)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
