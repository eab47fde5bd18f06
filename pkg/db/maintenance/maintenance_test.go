package maintenance

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"adsbglobe/pkg/db"
	"adsbglobe/pkg/store"
)

func TestMaintenance(t *testing.T) {
	tempDir := t.TempDir()
	d, err := db.Init(filepath.Join(tempDir, "maint_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	s := store.NewSQLiteStore(d)
	ctx := context.Background()

	dumpPath := filepath.Join(tempDir, "planes.tsv")
	dump := "\ufefficao\tlat\tlon\tt\tr\ttrack_degrees\ttime\n" +
		"OLD001\t1.0\t2.0\tB738\tN1\t10\t2025-12-01T00:00:00\n" +
		"ABC123\t47.5\t8.5\tA320\tHB-JLT\t90\t2025-12-28 00:00:05\n" +
		"BROKEN\tnorth\t8.5\tA320\tHB-JLT\t90\t2025-12-28T00:00:05Z\n" +
		"DEF456\t-33.9\t151.2\tB789\tVH-ZNA\t270\t2025-12-28T00:00:06Z\n"
	if err := os.WriteFile(dumpPath, []byte(dump), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Run(ctx, s, d, Options{ImportPath: dumpPath, Retain: 7 * 24 * time.Hour}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Import: 3 valid rows, OLD001 then pruned by retention.
	n, err := s.CountRecords(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("CountRecords = %d, want 2", n)
	}

	start := time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC)
	snap, err := s.Window(ctx, start, start.Add(10*time.Second), 100)
	if err != nil {
		t.Fatal(err)
	}
	if rec, ok := snap["ABC123"]; !ok || rec.AircraftType != "A320" || rec.Heading != 90 {
		t.Errorf("ABC123 = %+v, %v", rec, ok)
	}
	if _, ok := snap["BROKEN"]; ok {
		t.Error("malformed row was imported")
	}

	if _, found := s.GetState(ctx, importStateKey); !found {
		t.Error("State not updated after import")
	}

	// A second run with an unchanged file is a no-op.
	if _, err := d.Exec("DELETE FROM planes"); err != nil {
		t.Fatal(err)
	}
	if err := Run(ctx, s, d, Options{ImportPath: dumpPath}); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.CountRecords(ctx); n != 0 {
		t.Errorf("unchanged dump was re-imported (%d rows)", n)
	}
}

func TestRun_MissingDump(t *testing.T) {
	d, err := db.Init(filepath.Join(t.TempDir(), "maint.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	s := store.NewSQLiteStore(d)
	if err := Run(context.Background(), s, d, Options{ImportPath: "does-not-exist.tsv"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}
