package tracker

import (
	"sync"
	"sync/atomic"
)

// Tracker tracks usage statistics per telemetry source.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*SourceStats
}

// SourceStats holds counters for a specific source.
// Fields are accessed atomically.
type SourceStats struct {
	Requests      int64
	Retries       int64
	Failures      int64
	Snapshots     int64
	EmptyWindows  int64
	MalformedRows int64
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*SourceStats),
	}
}

// getStats returns the stats object for a source, creating it if needed.
func (t *Tracker) getStats(source string) *SourceStats {
	t.mu.RLock()
	s, ok := t.stats[source]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[source]; ok {
		return s
	}
	s = &SourceStats{}
	t.stats[source] = s
	return s
}

// TrackRequest counts one network round trip.
func (t *Tracker) TrackRequest(source string) {
	atomic.AddInt64(&t.getStats(source).Requests, 1)
}

func (t *Tracker) TrackRetry(source string) {
	atomic.AddInt64(&t.getStats(source).Retries, 1)
}

func (t *Tracker) TrackFailure(source string) {
	atomic.AddInt64(&t.getStats(source).Failures, 1)
}

// TrackSnapshot counts a successful fetch and whether it came back empty.
func (t *Tracker) TrackSnapshot(source string, empty bool) {
	s := t.getStats(source)
	atomic.AddInt64(&s.Snapshots, 1)
	if empty {
		atomic.AddInt64(&s.EmptyWindows, 1)
	}
}

func (t *Tracker) TrackMalformed(source string, rows int) {
	if rows <= 0 {
		return
	}
	atomic.AddInt64(&t.getStats(source).MalformedRows, int64(rows))
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]SourceStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]SourceStats)
	for k, v := range t.stats {
		result[k] = SourceStats{
			Requests:      atomic.LoadInt64(&v.Requests),
			Retries:       atomic.LoadInt64(&v.Retries),
			Failures:      atomic.LoadInt64(&v.Failures),
			Snapshots:     atomic.LoadInt64(&v.Snapshots),
			EmptyWindows:  atomic.LoadInt64(&v.EmptyWindows),
			MalformedRows: atomic.LoadInt64(&v.MalformedRows),
		}
	}
	return result
}
