// Package memory implements store.Repository in process memory.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/itohio/dustnode/pkg/store"
)

var _ store.Repository = (*Repository)(nil)

// Repository keeps readings in a map; useful for `watch` sessions and tests.
type Repository struct {
	mu       sync.RWMutex
	readings map[int64]store.Reading
	nextID   int64
	now      func() time.Time
}

// New creates an empty repository.
func New() *Repository {
	return &Repository{
		readings: make(map[int64]store.Reading),
		nextID:   1,
		now:      time.Now,
	}
}

// Save stores a copy of reading and sets its ID.
func (r *Repository) Save(ctx context.Context, reading *store.Reading) error {
	if err := reading.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if reading.ID == 0 {
		reading.ID = r.nextID
		r.nextID++
	}
	r.readings[reading.ID] = *reading
	return nil
}

// Get retrieves a reading by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*store.Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reading, ok := r.readings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &reading, nil
}

// Latest returns up to n most recent readings, newest first.
func (r *Repository) Latest(ctx context.Context, n int) ([]*store.Reading, error) {
	if n <= 0 {
		return nil, nil
	}

	all := r.sorted(func(store.Reading) bool { return true })
	slices.Reverse(all)
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// Between returns readings in [from, to), oldest first.
func (r *Repository) Between(ctx context.Context, from, to time.Time) ([]*store.Reading, error) {
	return r.sorted(func(reading store.Reading) bool {
		return !reading.Timestamp.Before(from) && reading.Timestamp.Before(to)
	}), nil
}

// DeleteOlderThan removes readings older than age.
func (r *Repository) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-age)

	var n int64
	for id, reading := range r.readings {
		if reading.Timestamp.Before(cutoff) {
			delete(r.readings, id)
			n++
		}
	}
	return n, nil
}

func (r *Repository) Close() error {
	return nil
}

// sorted returns copies of matching readings ordered by timestamp then ID.
func (r *Repository) sorted(match func(store.Reading) bool) []*store.Reading {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*store.Reading
	for _, reading := range r.readings {
		if match(reading) {
			results = append(results, &reading)
		}
	}

	slices.SortFunc(results, func(a, b *store.Reading) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})
	return results
}
