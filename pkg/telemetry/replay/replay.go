// Package replay serves telemetry windows from the local sqlite archive.
package replay

import (
	"context"
	"time"

	"adsbglobe/pkg/store"
	"adsbglobe/pkg/telemetry"
)

// SourceName is the FetchError source of this package.
const SourceName = "replay"

// Source implements telemetry.Fetcher over a RecordStore.
type Source struct {
	records store.RecordStore
	limit   int
}

// New creates a replay source bounded to limit rows per window.
func New(records store.RecordStore, limit int) *Source {
	if limit <= 0 {
		limit = telemetry.DefaultRowLimit
	}
	return &Source{records: records, limit: limit}
}

// Fetch implements telemetry.Fetcher.
func (s *Source) Fetch(ctx context.Context, start, end time.Time) (telemetry.Snapshot, error) {
	snap, err := s.records.Window(ctx, start, end, s.limit)
	if err != nil {
		return nil, &telemetry.FetchError{Source: SourceName, Err: err}
	}
	return snap, nil
}

// Ping reports whether the archive holds any rows.
func (s *Source) Ping(ctx context.Context) error {
	_, _, ok, err := s.records.TimeRange(ctx)
	if err != nil {
		return &telemetry.FetchError{Source: SourceName, Err: err}
	}
	if !ok {
		return &telemetry.FetchError{Source: SourceName, Err: ErrEmptyArchive}
	}
	return nil
}
