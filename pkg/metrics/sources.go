package metrics

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"adsbglobe/pkg/telemetry"
	"adsbglobe/pkg/tracker"
)

var (
	sourceRequestsDesc  = prometheus.NewDesc("adsb_source_requests_total", "HTTP requests issued per telemetry source.", []string{"source"}, nil)
	sourceRetriesDesc   = prometheus.NewDesc("adsb_source_retries_total", "Retried requests per telemetry source.", []string{"source"}, nil)
	sourceFailuresDesc  = prometheus.NewDesc("adsb_source_failures_total", "Failed fetches per telemetry source.", []string{"source"}, nil)
	sourceSnapshotsDesc = prometheus.NewDesc("adsb_source_snapshots_total", "Snapshots delivered per telemetry source.", []string{"source"}, nil)
	sourceEmptyDesc     = prometheus.NewDesc("adsb_source_empty_windows_total", "Windows that returned no rows.", []string{"source"}, nil)
	sourceMalformedDesc = prometheus.NewDesc("adsb_malformed_rows_total", "Telemetry rows dropped as malformed.", []string{"source"}, nil)
)

// TrackerCollector exports tracker.Tracker counters at scrape time.
type TrackerCollector struct {
	tracker *tracker.Tracker
}

// RegisterTracker registers a collector over t.
func RegisterTracker(reg prometheus.Registerer, t *tracker.Tracker) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	err := reg.Register(&TrackerCollector{tracker: t})
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return nil
	}
	return err
}

// Describe implements prometheus.Collector.
func (c *TrackerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- sourceRequestsDesc
	ch <- sourceRetriesDesc
	ch <- sourceFailuresDesc
	ch <- sourceSnapshotsDesc
	ch <- sourceEmptyDesc
	ch <- sourceMalformedDesc
}

// Collect implements prometheus.Collector.
func (c *TrackerCollector) Collect(ch chan<- prometheus.Metric) {
	for source, s := range c.tracker.Snapshot() {
		ch <- prometheus.MustNewConstMetric(sourceRequestsDesc, prometheus.CounterValue, float64(s.Requests), source)
		ch <- prometheus.MustNewConstMetric(sourceRetriesDesc, prometheus.CounterValue, float64(s.Retries), source)
		ch <- prometheus.MustNewConstMetric(sourceFailuresDesc, prometheus.CounterValue, float64(s.Failures), source)
		ch <- prometheus.MustNewConstMetric(sourceSnapshotsDesc, prometheus.CounterValue, float64(s.Snapshots), source)
		ch <- prometheus.MustNewConstMetric(sourceEmptyDesc, prometheus.CounterValue, float64(s.EmptyWindows), source)
		ch <- prometheus.MustNewConstMetric(sourceMalformedDesc, prometheus.CounterValue, float64(s.MalformedRows), source)
	}
}

type instrumented struct {
	next    telemetry.Fetcher
	source  string
	metrics *Collector
	tracker *tracker.Tracker
}

// InstrumentFetcher wraps f so every fetch is timed, counted by result and
// logged with its duration. Either c or t may be nil.
func InstrumentFetcher(f telemetry.Fetcher, source string, c *Collector, t *tracker.Tracker) telemetry.Fetcher {
	return &instrumented{next: f, source: source, metrics: c, tracker: t}
}

func (i *instrumented) Fetch(ctx context.Context, start, end time.Time) (telemetry.Snapshot, error) {
	began := time.Now()
	snap, err := i.next.Fetch(ctx, start, end)
	took := time.Since(began)

	result := ResultOK
	switch {
	case err != nil:
		result = ResultError
	case len(snap) == 0:
		result = ResultEmpty
	}
	i.metrics.ObserveFetch(i.source, result, took)

	// Failures are counted by the HTTP client; the tracker only sees deliveries.
	if i.tracker != nil && err == nil {
		i.tracker.TrackSnapshot(i.source, len(snap) == 0)
	}

	slog.Debug("Snapshot fetch finished",
		"source", i.source,
		"window_start", start.UTC().Format(telemetry.TimeLayout),
		"rows", len(snap),
		"result", result,
		"took_ms", float64(took.Microseconds())/1000.0)
	return snap, err
}
