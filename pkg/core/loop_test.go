package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"adsbglobe/pkg/sim"
	"adsbglobe/pkg/traffic"
)

type countingFlusher struct{ n int }

func (f *countingFlusher) Flush() { f.n++ }

func TestLoop_AppliesCycle(t *testing.T) {
	f := newGatedFetcher(oneAircraft(), nil)
	clock := sim.NewClock(t0, 10*time.Second)
	engine := traffic.NewEngine(traffic.DefaultConfig(), nil)
	flusher := &countingFlusher{}
	l := NewLoop(time.Millisecond, NewIngestScheduler(f, clock), engine, nil, flusher)
	ctx := context.Background()

	if l.Tick(ctx) {
		t.Fatal("nothing should be applied while the fetch is blocked")
	}
	f.gate <- struct{}{}
	l.Ingest().Wait()

	if !l.Tick(ctx) {
		t.Fatal("completed cycle was not applied")
	}
	if engine.Len() != 1 {
		t.Errorf("population = %d, want 1", engine.Len())
	}
	if flusher.n != 2 {
		t.Errorf("flushes = %d, want one per frame", flusher.n)
	}

	st := l.Status()
	if st.Frames != 2 || st.Cycles != 1 || st.Failures != 0 {
		t.Errorf("status = %+v", st)
	}
	if st.Last.Spawned != 1 || !st.LastSimTime.Equal(t0.Add(10*time.Second)) {
		t.Errorf("status = %+v", st)
	}
}

func TestLoop_FailedFetchKeepsPopulation(t *testing.T) {
	good := newGatedFetcher(oneAircraft(), nil)
	clock := sim.NewClock(t0, 10*time.Second)
	engine := traffic.NewEngine(traffic.DefaultConfig(), nil)
	ctx := context.Background()

	// Seed one aircraft.
	l := NewLoop(time.Millisecond, NewIngestScheduler(good, clock), engine, nil, nil)
	l.Tick(ctx)
	good.gate <- struct{}{}
	l.Ingest().Wait()
	l.Tick(ctx)

	bad := newGatedFetcher(nil, errors.New("timeout"))
	l = NewLoop(time.Millisecond, NewIngestScheduler(bad, clock), engine, nil, nil)
	before := clock.Now()

	l.Tick(ctx)
	bad.gate <- struct{}{}
	l.Ingest().Wait()
	if !l.Tick(ctx) {
		t.Fatal("failed cycle should still be applied")
	}

	if engine.Len() != 1 {
		t.Errorf("population = %d, want unchanged 1", engine.Len())
	}
	if got := clock.Now(); !got.Equal(before.Add(10 * time.Second)) {
		t.Errorf("clock = %v, want %v", got, before.Add(10*time.Second))
	}
	st := l.Status()
	if st.Failures != 1 || st.LastError == "" {
		t.Errorf("status = %+v", st)
	}

	l.Tick(ctx)
	w := bad.Windows()
	if len(w) < 2 || !w[1][0].Equal(before.Add(10*time.Second)) {
		t.Errorf("next window not scheduled after failure: %v", w)
	}
	bad.gate <- struct{}{}
	l.Ingest().Wait()
}

func TestLoop_StartStops(t *testing.T) {
	f := newGatedFetcher(oneAircraft(), nil)
	for i := 0; i < 8; i++ {
		f.gate <- struct{}{}
	}
	l := NewLoop(time.Millisecond, NewIngestScheduler(f, sim.NewClock(t0, time.Second)), traffic.NewEngine(traffic.DefaultConfig(), nil), nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		l.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop on context cancel")
	}
	if l.Status().Frames == 0 {
		t.Error("no frames ran")
	}
}
