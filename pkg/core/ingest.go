package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"adsbglobe/pkg/sim"
	"adsbglobe/pkg/telemetry"
)

// Cycle is the result of one completed fetch, published through the
// single-slot mailbox.
type Cycle struct {
	Start    time.Time // window start
	End      time.Time // window end
	SimTime  time.Time // clock after advancing past the window
	Snapshot telemetry.Snapshot
	Err      error // set when the fetch failed; Snapshot is then empty
}

// IngestScheduler runs at most one fetch at a time and hands each result to
// the consumer through a one-element mailbox. A new fetch starts only once
// the previous result has been taken, so results are applied in window
// order and never overwritten.
type IngestScheduler struct {
	BaseJob
	fetcher telemetry.Fetcher
	clock   *sim.Clock
	slot    chan Cycle
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewIngestScheduler creates an idle scheduler.
func NewIngestScheduler(f telemetry.Fetcher, clock *sim.Clock) *IngestScheduler {
	return &IngestScheduler{
		BaseJob: NewBaseJob("Ingest"),
		fetcher: f,
		clock:   clock,
		slot:    make(chan Cycle, 1),
		logger:  slog.With("component", "ingest"),
	}
}

// Poll starts the fetch for the clock's current window when no fetch is in
// flight and the mailbox is empty. It reports whether a fetch was started.
//
// The fetch does not inherit ctx cancellation: once started it runs to
// completion or failure.
func (s *IngestScheduler) Poll(ctx context.Context) bool {
	if len(s.slot) > 0 {
		return false
	}
	if !s.TryLock() {
		return false
	}

	start, end := s.clock.Window()
	s.wg.Add(1)
	go s.run(context.WithoutCancel(ctx), start, end)
	return true
}

func (s *IngestScheduler) run(ctx context.Context, start, end time.Time) {
	defer s.wg.Done()
	defer s.Unlock()

	snap, err := s.fetcher.Fetch(ctx, start, end)
	if err != nil {
		s.logger.Warn("Fetch failed, treating window as empty",
			"window_start", start.UTC().Format(telemetry.TimeLayout),
			"error", err)
		snap = telemetry.Snapshot{}
	}
	if snap == nil {
		snap = telemetry.Snapshot{}
	}

	simTime := s.clock.Advance()

	// Never blocks: Poll only starts a fetch while the slot is empty and
	// only one fetch runs at a time.
	s.slot <- Cycle{Start: start, End: end, SimTime: simTime, Snapshot: snap, Err: err}
}

// Take returns the published result, if any. Each result is returned once.
func (s *IngestScheduler) Take() (Cycle, bool) {
	select {
	case c := <-s.slot:
		return c, true
	default:
		return Cycle{}, false
	}
}

// Wait blocks until the in-flight fetch, if any, has published.
func (s *IngestScheduler) Wait() {
	s.wg.Wait()
}
