package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/dustnode/pkg/store"
	"github.com/itohio/dustnode/pkg/store/memory"
	"github.com/itohio/dustnode/pkg/store/storetest"
	"github.com/itohio/dustnode/pkg/telemetry"
)

type fakeDevice struct {
	records chan telemetry.Record
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{records: make(chan telemetry.Record, 10)}
}

func (d *fakeDevice) Connect() error { return nil }
func (d *fakeDevice) Close() error { return nil }
func (d *fakeDevice) Records() <-chan telemetry.Record { return d.records }
func (d *fakeDevice) Recalibrate(window time.Duration) error { return nil }
func (d *fakeDevice) IsConnected() bool { return true }

func TestRecorder_StoresRecords(t *testing.T) {
	dev := newFakeDevice()
	repo := memory.New()
	ts := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	rec := NewRecorder(dev, repo, 0)
	rec.Now = func() time.Time { return ts }

	dev.records <- telemetry.Record{Uptime: time.Second, Ready: false}
	dev.records <- telemetry.Record{Uptime: 2 * time.Second, Ready: true, Raw: 993, Voltage: 0.8, Density: 64.8}
	dev.records <- telemetry.Record{Uptime: 3 * time.Second, Ready: true, Density: -1}
	close(dev.records)

	require.NoError(t, rec.Run(context.Background()))
	assert.Equal(t, 2, rec.Saved())
	assert.Equal(t, 1, rec.Skipped(), "negative density is rejected by the store")

	got, err := repo.Latest(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Timestamp.Equal(ts))
	assert.Equal(t, 993, got[0].RawCounts)
	assert.InDelta(t, 64.8, got[0].Density, 1e-4)
}

func TestRecorder_Averaging(t *testing.T) {
	dev := newFakeDevice()
	repo := memory.New()

	rec := NewRecorder(dev, repo, 0)
	rec.AverageWindow = 2

	for i, d := range []float32{10, 20, 30} {
		dev.records <- telemetry.Record{Uptime: time.Duration(i+1) * time.Second, Ready: true, Density: d}
	}
	close(dev.records)

	require.NoError(t, rec.Run(context.Background()))

	got, err := repo.Latest(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	var densities []float32
	for _, r := range got {
		densities = append(densities, r.Density)
	}
	assert.ElementsMatch(t, []float32{10, 15, 25}, densities)
}

func TestRecorder_CleanupOnStart(t *testing.T) {
	dev := newFakeDevice()
	repo := memory.New()
	ctx := context.Background()

	old := storetest.Reading(time.Now().Add(-48*time.Hour), 1)
	fresh := storetest.Reading(time.Now(), 2)
	require.NoError(t, repo.Save(ctx, old))
	require.NoError(t, repo.Save(ctx, fresh))
	close(dev.records)

	rec := NewRecorder(dev, repo, 24*time.Hour)
	require.NoError(t, rec.Run(ctx))

	_, err := repo.Get(ctx, old.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = repo.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestRecorder_PeriodicCleanup(t *testing.T) {
	dev := newFakeDevice()
	repo := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := NewRecorder(dev, repo, time.Hour)
	rec.CleanupInterval = 10 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()

	// saved after the initial cleanup, so only the ticker can remove it
	time.Sleep(20 * time.Millisecond)
	old := storetest.Reading(time.Now().Add(-2*time.Hour), 1)
	require.NoError(t, repo.Save(ctx, old))

	assert.Eventually(t, func() bool {
		_, err := repo.Get(ctx, old.ID)
		return err != nil
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("recorder did not stop")
	}
}
