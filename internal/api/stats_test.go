package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsbglobe/pkg/core"
	"adsbglobe/pkg/store"
	"adsbglobe/pkg/tracker"
	"adsbglobe/pkg/traffic"
)

type stubFetchLog struct {
	entries []store.FetchLogEntry
	err     error
}

func (s *stubFetchLog) LogFetch(ctx context.Context, e store.FetchLogEntry) error { return nil }

func (s *stubFetchLog) RecentFetches(ctx context.Context, limit int) ([]store.FetchLogEntry, error) {
	return s.entries, s.err
}

type stubSubs int

func (s stubSubs) Subscribers() int { return int(s) }

func TestStatsHandler(t *testing.T) {
	tr := tracker.New()
	tr.TrackRequest("clickhouse")
	tr.TrackRequest("clickhouse")
	tr.TrackFailure("clickhouse")
	tr.TrackSnapshot("clickhouse", true)
	tr.TrackMalformed("clickhouse", 4)

	loop := stubLoop{st: core.LoopStatus{Frames: 10, Cycles: 2, Failures: 1, Last: traffic.Result{Spawned: 3, Population: 3}}}
	logs := &stubFetchLog{entries: []store.FetchLogEntry{{Source: "clickhouse", Rows: 3, WindowStart: t0}}}

	h := NewStatsHandler(tr, testEngine(t), loop, logs, stubSubs(2))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, PopulationStats{Count: 3, Cap: 5000}, resp.Population)
	assert.Equal(t, uint64(2), resp.Loop.Cycles)
	assert.Equal(t, 3, resp.Loop.Last.Spawned)
	assert.Equal(t, 2, resp.Subscribers)
	require.Len(t, resp.RecentFetches, 1)
	assert.True(t, resp.RecentFetches[0].WindowStart.Equal(t0))

	ch := resp.Sources["clickhouse"]
	assert.Equal(t, int64(2), ch.Requests)
	assert.Equal(t, int64(50), ch.FailureRate)
	assert.Equal(t, int64(1), ch.EmptyWindows)
	assert.Equal(t, int64(4), ch.MalformedRows)
	assert.Greater(t, resp.Diagnostics.Goroutines, 0)
}

func TestStatsHandler_FetchLogError(t *testing.T) {
	logs := &stubFetchLog{err: errors.New("database is locked")}
	h := NewStatsHandler(tracker.New(), testEngine(t), stubLoop{}, logs, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "a failing fetch log must not break stats")
}
