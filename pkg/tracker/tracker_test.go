package tracker

import (
	"sync"
	"testing"
)

func TestTracker(t *testing.T) {
	tr := New()
	source := "clickhouse"

	stats := tr.Snapshot()
	if len(stats) != 0 {
		t.Errorf("Expected empty stats, got %d", len(stats))
	}

	tr.TrackRequest(source)
	tr.TrackRequest(source)
	tr.TrackRetry(source)
	tr.TrackFailure(source)
	tr.TrackSnapshot(source, false)
	tr.TrackSnapshot(source, true)
	tr.TrackMalformed(source, 3)
	tr.TrackMalformed(source, 0)

	stats = tr.Snapshot()
	s, ok := stats[source]
	if !ok {
		t.Fatalf("Expected stats for source %s", source)
	}

	want := SourceStats{Requests: 2, Retries: 1, Failures: 1, Snapshots: 2, EmptyWindows: 1, MalformedRows: 3}
	if s != want {
		t.Errorf("stats = %+v, want %+v", s, want)
	}
}

func TestTracker_Concurrent(t *testing.T) {
	tr := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.TrackRequest("replay")
		}()
	}
	wg.Wait()

	if got := tr.Snapshot()["replay"].Requests; got != 50 {
		t.Errorf("Requests = %d, want 50", got)
	}
}
