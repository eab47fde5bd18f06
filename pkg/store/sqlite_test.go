package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"adsbglobe/pkg/db"
	"adsbglobe/pkg/geo"
	"adsbglobe/pkg/telemetry"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return NewSQLiteStore(d)
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	testSnapshotRoundTrip(t, ctx, store)
	testWindowBounds(t, ctx, store)
	testFetchLog(t, ctx, store)
	testState(t, ctx, store)
}

func testSnapshotRoundTrip(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("SnapshotRoundTrip", func(t *testing.T) {
		start := time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC)
		end := start.Add(10 * time.Second)
		snap := telemetry.Snapshot{
			"ABC123": {ID: "ABC123", Coordinate: geo.Coordinate{Latitude: 10, Longitude: 20}, Heading: 90, AircraftType: "A320", Registration: "D-AIAB"},
			"DEF456": {ID: "DEF456", Coordinate: geo.Coordinate{Latitude: -5, Longitude: 170}, Heading: 270.5},
		}

		if err := store.SaveSnapshot(ctx, start, end, snap); err != nil {
			t.Fatalf("SaveSnapshot failed: %v", err)
		}

		got, err := store.Window(ctx, start, end, 100)
		if err != nil {
			t.Fatalf("Window failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("Window returned %d rows, want 2", len(got))
		}
		if got["ABC123"] != snap["ABC123"] {
			t.Errorf("ABC123 = %+v, want %+v", got["ABC123"], snap["ABC123"])
		}
		if got["DEF456"].Heading != 270.5 {
			t.Errorf("DEF456 heading = %v", got["DEF456"].Heading)
		}

		n, err := store.CountRecords(ctx)
		if err != nil || n != 2 {
			t.Errorf("CountRecords = %d, %v", n, err)
		}
		first, last, ok, err := store.TimeRange(ctx)
		if err != nil || !ok {
			t.Fatalf("TimeRange = %v, %v", ok, err)
		}
		if want := start.Add(5 * time.Second); !first.Equal(want) || !last.Equal(want) {
			t.Errorf("TimeRange = %v..%v, want %v", first, last, want)
		}
	})
}

func testWindowBounds(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("WindowBounds", func(t *testing.T) {
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		rec := func(id string, lat float64) *telemetry.Record {
			return &telemetry.Record{ID: id, Coordinate: geo.Coordinate{Latitude: lat}}
		}
		// Same aircraft reported twice: the later row wins.
		_ = store.SaveRecordAt(ctx, rec("AAA111", 1), base.Add(2*time.Second))
		_ = store.SaveRecordAt(ctx, rec("AAA111", 2), base.Add(4*time.Second))
		// Exactly on the bounds: excluded.
		_ = store.SaveRecordAt(ctx, rec("EDGE01", 0), base)
		_ = store.SaveRecordAt(ctx, rec("EDGE02", 0), base.Add(10*time.Second))

		got, err := store.Window(ctx, base, base.Add(10*time.Second), 100)
		if err != nil {
			t.Fatalf("Window failed: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("Window = %v, want only AAA111", got)
		}
		if got["AAA111"].Coordinate.Latitude != 2 {
			t.Errorf("AAA111 lat = %v, want the later report", got["AAA111"].Coordinate.Latitude)
		}

		limited, err := store.Window(ctx, base, base.Add(10*time.Second), 1)
		if err != nil {
			t.Fatal(err)
		}
		if limited["AAA111"].Coordinate.Latitude != 1 {
			t.Errorf("limit not applied in time order: %v", limited)
		}
	})
}

func testFetchLog(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("FetchLog", func(t *testing.T) {
		base := time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			e := FetchLogEntry{
				Source:      "clickhouse",
				WindowStart: base.Add(time.Duration(i) * 10 * time.Second),
				WindowEnd:   base.Add(time.Duration(i+1) * 10 * time.Second),
				Rows:        i * 100,
			}
			if err := store.LogFetch(ctx, e); err != nil {
				t.Fatalf("LogFetch failed: %v", err)
			}
		}

		got, err := store.RecentFetches(ctx, 2)
		if err != nil {
			t.Fatalf("RecentFetches failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d entries, want 2", len(got))
		}
		if got[0].Rows != 200 || !got[0].WindowEnd.Equal(base.Add(30*time.Second)) {
			t.Errorf("newest entry = %+v", got[0])
		}
	})
}

func testState(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("State", func(t *testing.T) {
		if _, found := store.GetState(ctx, "missing"); found {
			t.Error("missing key reported as found")
		}
		if err := store.SetState(ctx, "clock", "2025-12-28T00:00:10Z"); err != nil {
			t.Fatalf("SetState failed: %v", err)
		}
		if v, found := store.GetState(ctx, "clock"); !found || v != "2025-12-28T00:00:10Z" {
			t.Errorf("GetState = %q, %v", v, found)
		}
		if err := store.DeleteState(ctx, "clock"); err != nil {
			t.Fatalf("DeleteState failed: %v", err)
		}
		if _, found := store.GetState(ctx, "clock"); found {
			t.Error("key still present after delete")
		}
	})
}
