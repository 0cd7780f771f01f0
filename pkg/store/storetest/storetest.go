// Package storetest runs the behaviour every store.Repository must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/dustnode/pkg/store"
)

// Reading builds a valid reading at ts.
func Reading(ts time.Time, density float32) *store.Reading {
	return &store.Reading{
		Timestamp: ts,
		Uptime:    time.Minute,
		Ready:     true,
		RawCounts: 993,
		Voltage:   0.8,
		Density:   density,
		Rain1:     12.5,
		Rain2:     3,
	}
}

// Run exercises a repository created fresh by factory for each subtest.
func Run(t *testing.T, factory func(t *testing.T) store.Repository) {
	t.Run("SaveAndGet", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		ts := time.Now().Truncate(time.Millisecond)
		reading := Reading(ts, 64.8)
		require.NoError(t, repo.Save(ctx, reading))
		assert.NotZero(t, reading.ID)

		got, err := repo.Get(ctx, reading.ID)
		require.NoError(t, err)
		assert.True(t, got.Timestamp.Equal(ts))
		assert.Equal(t, time.Minute, got.Uptime)
		assert.True(t, got.Ready)
		assert.Equal(t, 993, got.RawCounts)
		assert.InDelta(t, 0.8, got.Voltage, 1e-6)
		assert.InDelta(t, 64.8, got.Density, 1e-4)
		assert.InDelta(t, 12.5, got.Rain1, 1e-6)
		assert.InDelta(t, 3, got.Rain2, 1e-6)
	})

	t.Run("GetMissing", func(t *testing.T) {
		repo := factory(t)

		_, err := repo.Get(context.Background(), 42)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("RejectsInvalid", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		assert.ErrorIs(t, repo.Save(ctx, Reading(time.Now(), -1)), store.ErrInvalidReading)
		assert.ErrorIs(t, repo.Save(ctx, Reading(time.Time{}, 1)), store.ErrInvalidReading)

		got, err := repo.Latest(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Latest", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		base := time.Now()
		for i := range 5 {
			require.NoError(t, repo.Save(ctx, Reading(base.Add(time.Duration(i)*time.Second), float32(i))))
		}

		got, err := repo.Latest(ctx, 3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []float32{4, 3, 2}, []float32{got[0].Density, got[1].Density, got[2].Density})

		got, err = repo.Latest(ctx, 100)
		require.NoError(t, err)
		assert.Len(t, got, 5)

		got, err = repo.Latest(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Between", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		now := time.Now()
		before := Reading(now.Add(-2*time.Hour), 1)
		within := Reading(now.Add(-time.Hour), 2)
		atEnd := Reading(now, 3)
		for _, r := range []*store.Reading{atEnd, before, within} {
			require.NoError(t, repo.Save(ctx, r))
		}

		got, err := repo.Between(ctx, now.Add(-90*time.Minute), now)
		require.NoError(t, err)
		require.Len(t, got, 1, "range is half-open")
		assert.Equal(t, within.ID, got[0].ID)

		got, err = repo.Between(ctx, now.Add(-2*time.Hour), now.Add(time.Second))
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []int64{before.ID, within.ID, atEnd.ID}, []int64{got[0].ID, got[1].ID, got[2].ID})
	})

	t.Run("DeleteOlderThan", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		now := time.Now()
		old := Reading(now.Add(-48*time.Hour), 1)
		fresh := Reading(now.Add(-time.Hour), 2)
		require.NoError(t, repo.Save(ctx, old))
		require.NoError(t, repo.Save(ctx, fresh))

		n, err := repo.DeleteOlderThan(ctx, 24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = repo.Get(ctx, old.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = repo.Get(ctx, fresh.ID)
		assert.NoError(t, err)

		n, err = repo.DeleteOlderThan(ctx, 24*time.Hour)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
