package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsbglobe/pkg/core"
	"adsbglobe/pkg/sim"
	"adsbglobe/pkg/tracker"
	"adsbglobe/pkg/version"
)

type stubLoop struct{ st core.LoopStatus }

func (s stubLoop) Status() core.LoopStatus { return s.st }

func newTestServer(t *testing.T, shutdown func()) *http.Server {
	t.Helper()
	e := testEngine(t)
	clock := sim.NewClock(time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC), 10*time.Second)
	return NewServer("127.0.0.1:0",
		NewTrafficHandler(e, nil),
		NewStatsHandler(tracker.New(), e, stubLoop{}, nil, nil),
		NewClockHandler(clock),
		nil, nil,
		shutdown,
	)
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t, func() {})

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"Health", http.MethodGet, "/health", http.StatusOK},
		{"Version", http.MethodGet, "/api/version", http.StatusOK},
		{"Clock", http.MethodGet, "/api/clock", http.StatusOK},
		{"Stats", http.MethodGet, "/api/stats", http.StatusOK},
		{"Traffic", http.MethodGet, "/api/traffic", http.StatusOK},
		{"Aircraft", http.MethodGet, "/api/traffic/A1B2C3", http.StatusOK},
		{"WebsocketDisabled", http.MethodGet, "/ws", http.StatusNotFound},
		{"ShutdownNeedsPost", http.MethodGet, "/api/shutdown", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestServer_Version(t *testing.T) {
	srv := newTestServer(t, func() {})
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, version.Version, body["version"])
}

func TestServer_Clock(t *testing.T) {
	srv := newTestServer(t, func() {})
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/clock", nil))

	var st sim.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 10*time.Second, st.Step)
	assert.Equal(t, uint64(0), st.Ticks)
}

func TestServer_Shutdown(t *testing.T) {
	called := make(chan struct{})
	srv := newTestServer(t, func() { close(called) })

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/shutdown", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown callback not invoked")
	}
}

func TestListen(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0"}
	ln, err := Listen(srv, 2)
	require.NoError(t, err)
	defer ln.Close()
	assert.NotEmpty(t, ln.Addr().String())

	_, err = Listen(&http.Server{Addr: "256.0.0.1:bad"}, 0)
	assert.Error(t, err)
}
