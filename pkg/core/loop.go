package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"adsbglobe/pkg/metrics"
	"adsbglobe/pkg/telemetry"
	"adsbglobe/pkg/traffic"
)

// Reconciler applies a snapshot to the tracked population.
type Reconciler interface {
	Reconcile(snap telemetry.Snapshot, simTime time.Time) traffic.Result
}

// Flusher is implemented by renderers that batch transform updates.
type Flusher interface {
	Flush()
}

// LoopStatus summarizes the frame loop for the API.
type LoopStatus struct {
	Frames      uint64         `json:"frames"`
	Cycles      uint64         `json:"cycles"`
	Failures    uint64         `json:"failures"`
	Fetching    bool           `json:"fetching"`
	LastWindow  time.Time      `json:"last_window"`
	LastSimTime time.Time      `json:"last_sim_time"`
	LastError   string         `json:"last_error,omitempty"`
	Last        traffic.Result `json:"last"`
}

// Loop is the per-frame driver: it polls the ingest scheduler, applies any
// completed cycle, and flushes the renderer.
type Loop struct {
	interval time.Duration
	ingest   *IngestScheduler
	engine   Reconciler
	metrics  *metrics.Collector
	flusher  Flusher

	mu     sync.RWMutex
	status LoopStatus
}

// NewLoop creates a frame loop. m and flusher may be nil.
func NewLoop(interval time.Duration, ingest *IngestScheduler, engine Reconciler, m *metrics.Collector, flusher Flusher) *Loop {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Loop{
		interval: interval,
		ingest:   ingest,
		engine:   engine,
		metrics:  m,
		flusher:  flusher,
	}
}

// Start runs the loop until ctx is done. An in-flight fetch is left to
// finish on its own; call Ingest().Wait() to drain it.
func (l *Loop) Start(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	slog.Info("Frame loop started", "interval", l.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Frame loop stopped")
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick runs a single frame. It reports whether a cycle was applied.
func (l *Loop) Tick(ctx context.Context) bool {
	l.ingest.Poll(ctx)

	c, ok := l.ingest.Take()
	if ok {
		l.apply(c)
	}

	if l.flusher != nil {
		l.flusher.Flush()
	}

	l.mu.Lock()
	l.status.Frames++
	l.status.Fetching = l.ingest.Running()
	l.mu.Unlock()
	return ok
}

func (l *Loop) apply(c Cycle) {
	res := l.engine.Reconcile(c.Snapshot, c.SimTime)

	l.metrics.ObserveReconcile(res.Updated, res.Spawned, res.Evicted, res.Dropped, res.Population)
	l.metrics.SetSimTime(c.SimTime)

	if res.Spawned > 0 || res.Evicted > 0 || res.Dropped > 0 {
		slog.Debug("Cycle applied",
			"window_start", c.Start.UTC().Format(telemetry.TimeLayout),
			"updated", res.Updated,
			"spawned", res.Spawned,
			"evicted", res.Evicted,
			"dropped", res.Dropped,
			"population", res.Population)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.status.Cycles++
	l.status.LastWindow = c.Start
	l.status.LastSimTime = c.SimTime
	l.status.Last = res
	if c.Err != nil {
		l.status.Failures++
		l.status.LastError = c.Err.Error()
	} else {
		l.status.LastError = ""
	}
}

// Ingest returns the underlying scheduler.
func (l *Loop) Ingest() *IngestScheduler {
	return l.ingest
}

// Status returns a copy of the loop status.
func (l *Loop) Status() LoopStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}
