package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"adsbglobe/pkg/db"
	"adsbglobe/pkg/telemetry"
)

// Store composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	RecordStore
	FetchLogStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Records ---

// SaveSnapshot archives snap as reported inside (start, end). Every row is
// stamped with the window midpoint so that replaying the same window returns
// it under the exclusive bounds of Window.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, start, end time.Time, snap telemetry.Snapshot) error {
	if len(snap) == 0 {
		return nil
	}
	stamp := start.Add(end.Sub(start) / 2).UTC().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO planes (icao, lat, lon, t, r, track_degrees, time) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range snap {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Coordinate.Latitude, r.Coordinate.Longitude,
			r.AircraftType, r.Registration, float64(r.Heading), stamp); err != nil {
			return fmt.Errorf("failed to save %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// SaveRecordAt stores a single row with an explicit report time.
func (s *SQLiteStore) SaveRecordAt(ctx context.Context, r *telemetry.Record, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO planes (icao, lat, lon, t, r, track_degrees, time) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Coordinate.Latitude, r.Coordinate.Longitude, r.AircraftType, r.Registration, float64(r.Heading), at.UTC().UnixMilli())
	return err
}

// Window returns the rows reported strictly inside (start, end), ordered by
// time then icao and capped at limit. Later rows for an icao replace earlier ones.
func (s *SQLiteStore) Window(ctx context.Context, start, end time.Time, limit int) (telemetry.Snapshot, error) {
	if limit <= 0 {
		limit = telemetry.DefaultRowLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT icao, lat, lon, t, r, track_degrees FROM planes
		 WHERE time > ? AND time < ? ORDER BY time, icao LIMIT ?`,
		start.UTC().UnixMilli(), end.UTC().UnixMilli(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := make(telemetry.Snapshot)
	for rows.Next() {
		var r telemetry.Record
		var typ, reg sql.NullString
		var track sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.Coordinate.Latitude, &r.Coordinate.Longitude, &typ, &reg, &track); err != nil {
			return nil, err
		}
		r.AircraftType = typ.String
		r.Registration = reg.String
		r.Heading = float32(track.Float64)
		snap.Add(r)
	}
	return snap, rows.Err()
}

func (s *SQLiteStore) CountRecords(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM planes").Scan(&n)
	return n, err
}

// TimeRange returns the first and last archived report times.
func (s *SQLiteStore) TimeRange(ctx context.Context) (first, last time.Time, ok bool, err error) {
	var lo, hi sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT min(time), max(time) FROM planes").Scan(&lo, &hi); err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	if !lo.Valid || !hi.Valid {
		return time.Time{}, time.Time{}, false, nil
	}
	return time.UnixMilli(lo.Int64).UTC(), time.UnixMilli(hi.Int64).UTC(), true, nil
}

// --- Fetch Log ---

func (s *SQLiteStore) LogFetch(ctx context.Context, e FetchLogEntry) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fetch_log (source, window_start, window_end, rows, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.Source, e.WindowStart.UTC().UnixMilli(), e.WindowEnd.UTC().UnixMilli(), e.Rows, created.UTC())
	return err
}

// RecentFetches returns up to limit entries, newest first.
func (s *SQLiteStore) RecentFetches(ctx context.Context, limit int) ([]FetchLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, window_start, window_end, rows, created_at FROM fetch_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FetchLogEntry
	for rows.Next() {
		var e FetchLogEntry
		var start, end int64
		if err := rows.Scan(&e.Source, &start, &end, &e.Rows, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.WindowStart = time.UnixMilli(start).UTC()
		e.WindowEnd = time.UnixMilli(end).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
