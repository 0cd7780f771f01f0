// Package sqlite implements store.Repository on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/itohio/dustnode/pkg/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS dust_readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	uptime_ms INTEGER NOT NULL,
	ready INTEGER NOT NULL,
	raw INTEGER NOT NULL,
	voltage REAL NOT NULL,
	density REAL NOT NULL,
	rain1 REAL NOT NULL,
	rain2 REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dust_readings_timestamp ON dust_readings(timestamp);
`

const columns = `id, timestamp, uptime_ms, ready, raw, voltage, density, rain1, rain2`

var _ store.Repository = (*Repository)(nil)

// Repository is a SQLite-backed store.Repository.
// Timestamps are stored as Unix nanoseconds.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared across queries
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Repository{db: db, now: time.Now}, nil
}

// Save stores a reading and sets its ID.
func (r *Repository) Save(ctx context.Context, reading *store.Reading) error {
	if err := reading.Validate(); err != nil {
		return err
	}

	query := `INSERT INTO dust_readings (timestamp, uptime_ms, ready, raw, voltage, density, rain1, rain2)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		reading.Timestamp.UnixNano(),
		reading.Uptime.Milliseconds(),
		reading.Ready,
		reading.RawCounts,
		reading.Voltage,
		reading.Density,
		reading.Rain1,
		reading.Rain2,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert id: %w", err)
	}

	reading.ID = id
	return nil
}

// Get retrieves a reading by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*store.Reading, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM dust_readings WHERE id = ?`, id)

	reading, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query reading: %w", err)
	}
	return reading, nil
}

// Latest returns up to n most recent readings, newest first.
func (r *Repository) Latest(ctx context.Context, n int) ([]*store.Reading, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+columns+` FROM dust_readings ORDER BY timestamp DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	return collect(rows)
}

// Between returns readings in [from, to), oldest first.
func (r *Repository) Between(ctx context.Context, from, to time.Time) ([]*store.Reading, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+columns+` FROM dust_readings
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC, id ASC`,
		from.UnixNano(), to.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	return collect(rows)
}

// DeleteOlderThan removes readings older than age.
func (r *Repository) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := r.now().Add(-age)

	result, err := r.db.ExecContext(ctx, `DELETE FROM dust_readings WHERE timestamp < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old readings: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted readings: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReading(s scanner) (*store.Reading, error) {
	var (
		reading  store.Reading
		ts       int64
		uptimeMs int64
	)
	err := s.Scan(
		&reading.ID,
		&ts,
		&uptimeMs,
		&reading.Ready,
		&reading.RawCounts,
		&reading.Voltage,
		&reading.Density,
		&reading.Rain1,
		&reading.Rain2,
	)
	if err != nil {
		return nil, err
	}

	reading.Timestamp = time.Unix(0, ts)
	reading.Uptime = time.Duration(uptimeMs) * time.Millisecond
	return &reading, nil
}

func collect(rows *sql.Rows) ([]*store.Reading, error) {
	defer rows.Close()

	var readings []*store.Reading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}
	return readings, nil
}
