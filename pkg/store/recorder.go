package store

import (
	"context"
	"log/slog"
	"time"

	"adsbglobe/pkg/telemetry"
)

type recorder struct {
	next    telemetry.Fetcher
	source  string
	records RecordStore
	log     FetchLogStore
}

// NewRecorder wraps f so every successful window lands in the fetch log and,
// when records is non-nil, in the replay archive. Storage errors are logged
// and never fail the fetch.
func NewRecorder(f telemetry.Fetcher, source string, records RecordStore, log FetchLogStore) telemetry.Fetcher {
	return &recorder{next: f, source: source, records: records, log: log}
}

func (r *recorder) Fetch(ctx context.Context, start, end time.Time) (telemetry.Snapshot, error) {
	snap, err := r.next.Fetch(ctx, start, end)
	if err != nil {
		return snap, err
	}

	// The snapshot is handed on untouched; storage gets its own context so a
	// cancelled fetch context doesn't lose the write.
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if r.records != nil {
		if err := r.records.SaveSnapshot(sctx, start, end, snap); err != nil {
			slog.Warn("Failed to archive snapshot", "source", r.source, "error", err)
		}
	}
	if r.log != nil {
		entry := FetchLogEntry{Source: r.source, WindowStart: start, WindowEnd: end, Rows: len(snap)}
		if err := r.log.LogFetch(sctx, entry); err != nil {
			slog.Warn("Failed to log fetch", "source", r.source, "error", err)
		}
	}
	return snap, nil
}
