package api

import (
	"log/slog"
	"net/http"
	"runtime"
	"sync"

	"adsbglobe/pkg/core"
	"adsbglobe/pkg/sim"
	"adsbglobe/pkg/store"
	"adsbglobe/pkg/tracker"
)

// recentFetchLimit caps the fetch log entries included in /api/stats.
const recentFetchLimit = 20

// LoopStatusProvider exposes the frame loop status.
type LoopStatusProvider interface {
	Status() core.LoopStatus
}

// SubscriberCounter reports connected render stream clients.
type SubscriberCounter interface {
	Subscribers() int
}

type StatsHandler struct {
	tracker  *tracker.Tracker
	traffic  TrafficSource
	loop     LoopStatusProvider
	fetchLog store.FetchLogStore
	subs     SubscriberCounter

	mu     sync.Mutex
	maxMem uint64
}

// NewStatsHandler creates the stats handler. fetchLog and subs may be nil.
func NewStatsHandler(t *tracker.Tracker, src TrafficSource, loop LoopStatusProvider, fetchLog store.FetchLogStore, subs SubscriberCounter) *StatsHandler {
	return &StatsHandler{
		tracker:  t,
		traffic:  src,
		loop:     loop,
		fetchLog: fetchLog,
		subs:     subs,
	}
}

type SourceStatsDTO struct {
	Requests      int64 `json:"requests"`
	Retries       int64 `json:"retries"`
	Failures      int64 `json:"failures"`
	Snapshots     int64 `json:"snapshots"`
	EmptyWindows  int64 `json:"empty_windows"`
	MalformedRows int64 `json:"malformed_rows"`
	FailureRate   int64 `json:"failure_rate"` // percent of requests
}

type Diagnostics struct {
	MemoryMB    uint64 `json:"memory_mb"`
	MemoryMaxMB uint64 `json:"memory_max_mb"`
	Goroutines  int    `json:"goroutines"`
}

type PopulationStats struct {
	Count int `json:"count"`
	Cap   int `json:"cap"`
}

type StatsResponse struct {
	Diagnostics   Diagnostics               `json:"diagnostics"`
	Population    PopulationStats           `json:"population"`
	Loop          core.LoopStatus           `json:"loop"`
	Sources       map[string]SourceStatsDTO `json:"sources"`
	RecentFetches []store.FetchLogEntry     `json:"recent_fetches,omitempty"`
	Subscribers   int                       `json:"subscribers"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Diagnostics: h.diagnostics(),
		Population:  PopulationStats{Count: h.traffic.Len(), Cap: h.traffic.Cap()},
		Loop:        h.loop.Status(),
		Sources:     make(map[string]SourceStatsDTO),
	}

	for source, s := range h.tracker.Snapshot() {
		rate := int64(0)
		if s.Requests > 0 {
			rate = (s.Failures * 100) / s.Requests
		}
		resp.Sources[source] = SourceStatsDTO{
			Requests:      s.Requests,
			Retries:       s.Retries,
			Failures:      s.Failures,
			Snapshots:     s.Snapshots,
			EmptyWindows:  s.EmptyWindows,
			MalformedRows: s.MalformedRows,
			FailureRate:   rate,
		}
	}

	if h.fetchLog != nil {
		entries, err := h.fetchLog.RecentFetches(r.Context(), recentFetchLimit)
		if err != nil {
			slog.Warn("Failed to read fetch log", "error", err)
		}
		resp.RecentFetches = entries
	}
	if h.subs != nil {
		resp.Subscribers = h.subs.Subscribers()
	}

	writeJSON(w, resp)
}

func (h *StatsHandler) diagnostics() Diagnostics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	h.mu.Lock()
	if m.Sys > h.maxMem {
		h.maxMem = m.Sys
	}
	maxMem := h.maxMem
	h.mu.Unlock()

	return Diagnostics{
		MemoryMB:    bToMb(m.Sys),
		MemoryMaxMB: bToMb(maxMem),
		Goroutines:  runtime.NumGoroutine(),
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

// ClockHandler reports the simulated clock.
type ClockHandler struct {
	clock ClockStatusProvider
}

// ClockStatusProvider is implemented by *sim.Clock.
type ClockStatusProvider interface {
	Status() sim.Status
}

func NewClockHandler(c ClockStatusProvider) *ClockHandler {
	return &ClockHandler{clock: c}
}

func (h *ClockHandler) Handle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.clock.Status())
}
