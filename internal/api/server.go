package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"adsbglobe/pkg/logging"
	"adsbglobe/pkg/version"
)

// NewServer creates and configures the HTTP server.
// ws and metrics may be nil. shutdown is called from POST /api/shutdown.
func NewServer(addr string, trafficH *TrafficHandler, statsH *StatsHandler, clockH *ClockHandler, ws http.Handler, metrics http.Handler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health and version
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2. Diagnostics
	mux.Handle("GET /api/stats", statsH)
	mux.HandleFunc("GET /api/clock", clockH.Handle)
	mux.HandleFunc("GET /api/log", handleLog)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// 3. Traffic
	mux.HandleFunc("GET /api/traffic", trafficH.HandleList)
	mux.HandleFunc("GET /api/traffic/density", trafficH.HandleDensity)
	mux.HandleFunc("GET /api/traffic/regions", trafficH.HandleRegions)
	mux.HandleFunc("GET /api/traffic/{id}", trafficH.HandleAircraft)

	// 4. Render stream and metrics
	if ws != nil {
		mux.Handle("GET /ws", ws)
	}
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	// 5. Shutdown
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Let the response flush first
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:        addr,
		Handler:     LoggingMiddleware(mux),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: /ws connections are long-lived.
		IdleTimeout: 60 * time.Second,
	}
}

// Listen opens the server's address, capping concurrent connections when
// maxConns is positive.
func Listen(srv *http.Server, maxConns int) (net.Listener, error) {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}
	return ln, nil
}

// LoggingMiddleware writes one line per request to the request log.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"version": version.Version})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
