package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"adsbglobe/pkg/geo"
	"adsbglobe/pkg/telemetry"
)

func TestRecorder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fail := false
	inner := telemetry.FetcherFunc(func(ctx context.Context, start, end time.Time) (telemetry.Snapshot, error) {
		if fail {
			return nil, &telemetry.FetchError{Source: "clickhouse", Err: errors.New("connection refused")}
		}
		return telemetry.Snapshot{
			"ABC123": {ID: "ABC123", Coordinate: geo.Coordinate{Latitude: 47, Longitude: 8}, Heading: 90},
		}, nil
	})

	rec := NewRecorder(inner, "clickhouse", s, s)
	start := time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Second)

	snap, err := rec.Fetch(ctx, start, end)
	if err != nil || len(snap) != 1 {
		t.Fatalf("Fetch = %v, %v", snap, err)
	}

	replayed, err := s.Window(ctx, start, end, 10)
	if err != nil {
		t.Fatal(err)
	}
	if replayed["ABC123"] != snap["ABC123"] {
		t.Errorf("archived %+v, want %+v", replayed["ABC123"], snap["ABC123"])
	}

	fail = true
	if _, err := rec.Fetch(ctx, end, end.Add(10*time.Second)); err == nil {
		t.Fatal("expected the inner error")
	}

	entries, err := s.RecentFetches(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Rows != 1 {
		t.Errorf("fetch log = %+v, want one entry with one row", entries)
	}
}

func TestRecorder_LogOnly(t *testing.T) {
	s := newTestStore(t)
	inner := telemetry.FetcherFunc(func(ctx context.Context, start, end time.Time) (telemetry.Snapshot, error) {
		return telemetry.Snapshot{"ABC123": {ID: "ABC123"}}, nil
	})

	rec := NewRecorder(inner, "mock", nil, s)
	start := time.Now()
	if _, err := rec.Fetch(context.Background(), start, start.Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.CountRecords(context.Background()); n != 0 {
		t.Errorf("archive has %d rows, want 0 with recording off", n)
	}
}
