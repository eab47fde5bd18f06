package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"adsbglobe/pkg/geo"
	"adsbglobe/pkg/sim"
	"adsbglobe/pkg/telemetry"
)

var t0 = time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC)

// gatedFetcher blocks each Fetch until a value arrives on gate and records
// the requested windows.
type gatedFetcher struct {
	gate chan struct{}
	snap telemetry.Snapshot
	err  error

	mu      sync.Mutex
	windows [][2]time.Time
}

func newGatedFetcher(snap telemetry.Snapshot, err error) *gatedFetcher {
	return &gatedFetcher{gate: make(chan struct{}, 8), snap: snap, err: err}
}

func (f *gatedFetcher) Fetch(ctx context.Context, start, end time.Time) (telemetry.Snapshot, error) {
	f.mu.Lock()
	f.windows = append(f.windows, [2]time.Time{start, end})
	f.mu.Unlock()
	<-f.gate
	if f.err != nil {
		return nil, f.err
	}
	return f.snap.Clone(), nil
}

func (f *gatedFetcher) Windows() [][2]time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]time.Time(nil), f.windows...)
}

func oneAircraft() telemetry.Snapshot {
	s := telemetry.Snapshot{}
	s.Add(telemetry.Record{ID: "ABC123", Coordinate: geo.Coordinate{Latitude: 10, Longitude: 20}, Heading: 90})
	return s
}

func TestIngest_PublishesCycle(t *testing.T) {
	f := newGatedFetcher(oneAircraft(), nil)
	clock := sim.NewClock(t0, 10*time.Second)
	s := NewIngestScheduler(f, clock)

	if !s.Poll(context.Background()) {
		t.Fatal("first Poll should start a fetch")
	}
	if _, ok := s.Take(); ok {
		t.Fatal("Take returned a result before the fetch completed")
	}

	f.gate <- struct{}{}
	s.Wait()

	c, ok := s.Take()
	if !ok {
		t.Fatal("expected a published cycle")
	}
	if !c.Start.Equal(t0) || !c.End.Equal(t0.Add(10*time.Second)) {
		t.Errorf("window = [%v, %v]", c.Start, c.End)
	}
	if !c.SimTime.Equal(t0.Add(10 * time.Second)) {
		t.Errorf("SimTime = %v, want window end", c.SimTime)
	}
	if c.Err != nil || len(c.Snapshot) != 1 {
		t.Errorf("cycle = %+v", c)
	}
}

func TestIngest_FetchFailure(t *testing.T) {
	f := newGatedFetcher(nil, errors.New("connection refused"))
	clock := sim.NewClock(t0, 10*time.Second)
	s := NewIngestScheduler(f, clock)

	s.Poll(context.Background())
	f.gate <- struct{}{}
	s.Wait()

	c, ok := s.Take()
	if !ok {
		t.Fatal("a failed fetch must still publish")
	}
	if c.Err == nil {
		t.Error("Err should carry the fetch failure")
	}
	if c.Snapshot == nil || len(c.Snapshot) != 0 {
		t.Errorf("failed fetch should yield an empty snapshot, got %v", c.Snapshot)
	}
	if got := clock.Now(); !got.Equal(t0.Add(10 * time.Second)) {
		t.Errorf("clock = %v, want advanced by one step", got)
	}

	// The next window follows on from the failed one.
	if !s.Poll(context.Background()) {
		t.Fatal("Poll after Take should start the next fetch")
	}
	f.gate <- struct{}{}
	s.Wait()

	w := f.Windows()
	if len(w) != 2 {
		t.Fatalf("windows = %v", w)
	}
	if !w[1][0].Equal(t0.Add(10*time.Second)) || !w[1][1].Equal(t0.Add(20*time.Second)) {
		t.Errorf("second window = %v", w[1])
	}
}

func TestIngest_SingleOutstandingFetch(t *testing.T) {
	f := newGatedFetcher(oneAircraft(), nil)
	s := NewIngestScheduler(f, sim.NewClock(t0, 10*time.Second))
	ctx := context.Background()

	if !s.Poll(ctx) {
		t.Fatal("first Poll should start a fetch")
	}
	if s.Poll(ctx) {
		t.Error("Poll started a second fetch while one was in flight")
	}

	f.gate <- struct{}{}
	s.Wait()

	if s.Poll(ctx) {
		t.Error("Poll started a fetch while the previous result was untaken")
	}
	if _, ok := s.Take(); !ok {
		t.Fatal("expected a result")
	}
	if _, ok := s.Take(); ok {
		t.Error("a result was delivered twice")
	}
	if !s.Poll(ctx) {
		t.Error("Poll should start a fetch once the slot is empty")
	}
	f.gate <- struct{}{}
	s.Wait()

	if n := len(f.Windows()); n != 2 {
		t.Errorf("fetches = %d, want 2", n)
	}
}

func TestIngest_FetchOutlivesCaller(t *testing.T) {
	f := newGatedFetcher(oneAircraft(), nil)
	s := NewIngestScheduler(f, sim.NewClock(t0, 10*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	s.Poll(ctx)
	cancel()

	f.gate <- struct{}{}
	s.Wait()

	if c, ok := s.Take(); !ok || c.Err != nil {
		t.Errorf("fetch should complete after cancel: ok=%v err=%v", ok, c.Err)
	}
}
