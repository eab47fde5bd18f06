package store

import (
	"context"
	"time"

	"adsbglobe/pkg/telemetry"
)

// RecordStore archives fetched telemetry so windows can be replayed later.
type RecordStore interface {
	SaveSnapshot(ctx context.Context, start, end time.Time, snap telemetry.Snapshot) error
	SaveRecordAt(ctx context.Context, r *telemetry.Record, at time.Time) error
	Window(ctx context.Context, start, end time.Time, limit int) (telemetry.Snapshot, error)
	CountRecords(ctx context.Context) (int64, error)
	TimeRange(ctx context.Context) (first, last time.Time, ok bool, err error)
}

// FetchLogEntry describes one fetched window.
type FetchLogEntry struct {
	Source      string    `json:"source"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Rows        int       `json:"rows"`
	CreatedAt   time.Time `json:"created_at"`
}

// FetchLogStore keeps an audit trail of fetched windows.
type FetchLogStore interface {
	LogFetch(ctx context.Context, e FetchLogEntry) error
	RecentFetches(ctx context.Context, limit int) ([]FetchLogEntry, error)
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
