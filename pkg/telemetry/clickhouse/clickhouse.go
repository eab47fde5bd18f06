// Package clickhouse fetches telemetry windows over the ClickHouse HTTP
// interface using TabSeparated output.
package clickhouse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"adsbglobe/pkg/request"
	"adsbglobe/pkg/telemetry"
	"adsbglobe/pkg/tracker"
)

// SourceName is the tracker bucket and FetchError source of this package.
const SourceName = "clickhouse"

// Config holds connection settings.
type Config struct {
	URL      string
	User     string
	Password string
	Database string
	Table    string
	RowLimit int
}

// Source implements telemetry.Fetcher against a ClickHouse server.
type Source struct {
	client  *request.Client
	tracker *tracker.Tracker
	cfg     Config
	logger  *slog.Logger
}

// New creates a Source. The table name is interpolated into the query, so
// callers must pass a plain identifier (config validation guarantees it).
func New(client *request.Client, t *tracker.Tracker, cfg Config) *Source {
	if cfg.RowLimit <= 0 {
		cfg.RowLimit = telemetry.DefaultRowLimit
	}
	if cfg.Table == "" {
		cfg.Table = "planes_mercator"
	}
	if t == nil {
		t = tracker.New()
	}
	return &Source{
		client:  client,
		tracker: t,
		cfg:     cfg,
		logger:  slog.With("component", "clickhouse"),
	}
}

// Query returns the SQL sent for every window. Window bounds and the row
// limit travel as query parameters.
func (s *Source) Query() string {
	return fmt.Sprintf("SELECT icao, lat, lon, t, r, track_degrees FROM %s "+
		"WHERE time > parseDateTimeBestEffort({start:String}, 'UTC') "+
		"AND time < parseDateTimeBestEffort({end:String}, 'UTC') "+
		"ORDER BY time, icao LIMIT {limit:UInt32} FORMAT TabSeparated", s.cfg.Table)
}

func (s *Source) endpoint(start, end time.Time) string {
	q := url.Values{}
	if s.cfg.Database != "" {
		q.Set("database", s.cfg.Database)
	}
	q.Set("param_start", start.UTC().Format(telemetry.TimeLayout))
	q.Set("param_end", end.UTC().Format(telemetry.TimeLayout))
	q.Set("param_limit", strconv.Itoa(s.cfg.RowLimit))
	return strings.TrimRight(s.cfg.URL, "/") + "/?" + q.Encode()
}

func (s *Source) headers() map[string]string {
	h := map[string]string{"Content-Type": "text/plain; charset=utf-8"}
	if s.cfg.User != "" {
		h["X-ClickHouse-User"] = s.cfg.User
	}
	if s.cfg.Password != "" {
		h["X-ClickHouse-Key"] = s.cfg.Password
	}
	return h
}

// Fetch implements telemetry.Fetcher.
func (s *Source) Fetch(ctx context.Context, start, end time.Time) (telemetry.Snapshot, error) {
	began := time.Now()

	body, err := s.client.Post(ctx, s.endpoint(start, end), []byte(s.Query()), s.headers())
	if err != nil {
		return nil, s.fetchError(err)
	}

	snap, malformed, err := telemetry.ParseTSV(bytes.NewReader(body), s.logger)
	if err != nil {
		return nil, &telemetry.FetchError{Source: SourceName, Err: err}
	}
	if malformed > 0 {
		s.tracker.TrackMalformed(SourceName, malformed)
	}

	s.logger.Debug("Fetched window",
		"start", start.UTC().Format(telemetry.TimeLayout),
		"rows", len(snap),
		"malformed", malformed,
		"took_ms", float64(time.Since(began).Microseconds())/1000.0)
	return snap, nil
}

func (s *Source) fetchError(err error) *telemetry.FetchError {
	fe := &telemetry.FetchError{Source: SourceName, Err: err}
	var se *request.StatusError
	if errors.As(err, &se) {
		fe.Status = se.Code
	}
	return fe
}

// Ping checks the server's /ping endpoint.
func (s *Source) Ping(ctx context.Context) error {
	body, err := s.client.Get(ctx, strings.TrimRight(s.cfg.URL, "/")+"/ping", nil)
	if err != nil {
		return s.fetchError(err)
	}
	if !strings.HasPrefix(string(body), "Ok.") {
		return &telemetry.FetchError{Source: SourceName, Err: fmt.Errorf("unexpected ping reply %q", strings.TrimSpace(string(body)))}
	}
	return nil
}
