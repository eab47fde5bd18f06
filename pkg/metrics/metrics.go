// Package metrics exposes ingestion and population metrics to Prometheus.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch results used as the "result" label.
const (
	ResultOK    = "ok"
	ResultEmpty = "empty"
	ResultError = "error"
)

// Collector bundles the Prometheus metrics of the ingest pipeline.
type Collector struct {
	gatherer prometheus.Gatherer

	Population    prometheus.Gauge
	Spawned       prometheus.Counter
	Updated       prometheus.Counter
	Evicted       prometheus.Counter
	Dropped       prometheus.Counter
	Fetches       *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	SimTime       prometheus.Gauge
}

// New registers the pipeline metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	population, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "adsb_population",
		Help: "Number of aircraft currently tracked.",
	}), "adsb_population")
	if err != nil {
		return nil, err
	}
	simTime, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "adsb_sim_time_seconds",
		Help: "Simulated ingestion clock as unix seconds.",
	}), "adsb_sim_time_seconds")
	if err != nil {
		return nil, err
	}

	c := &Collector{gatherer: gatherer, Population: population, SimTime: simTime}
	for _, def := range []struct {
		name, help string
		dst        *prometheus.Counter
	}{
		{"adsb_spawned_total", "Aircraft created from snapshot entries.", &c.Spawned},
		{"adsb_updated_total", "Tracked aircraft updated from snapshot entries.", &c.Updated},
		{"adsb_evicted_total", "Aircraft evicted for stale reporting.", &c.Evicted},
		{"adsb_dropped_total", "Snapshot entries dropped because the population was full.", &c.Dropped},
	} {
		counter, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: def.name,
			Help: def.help,
		}), def.name)
		if err != nil {
			return nil, err
		}
		*def.dst = counter
	}

	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adsb_fetch_total",
		Help: "Completed snapshot fetches, labeled by source and result.",
	}, []string{"source", "result"})
	c.Fetches, err = registerCounterVec(reg, fetches, "adsb_fetch_total")
	if err != nil {
		return nil, err
	}

	c.FetchDuration, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "adsb_fetch_duration_seconds",
		Help:    "Duration of snapshot fetches in seconds.",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}), "adsb_fetch_duration_seconds")
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveReconcile records the outcome of one reconciliation pass.
func (c *Collector) ObserveReconcile(updated, spawned, evicted, dropped, population int) {
	if c == nil {
		return
	}
	c.Updated.Add(float64(updated))
	c.Spawned.Add(float64(spawned))
	c.Evicted.Add(float64(evicted))
	c.Dropped.Add(float64(dropped))
	c.Population.Set(float64(population))
}

// ObserveFetch records one completed fetch.
func (c *Collector) ObserveFetch(source, result string, d time.Duration) {
	if c == nil {
		return
	}
	c.Fetches.WithLabelValues(source, result).Inc()
	c.FetchDuration.Observe(d.Seconds())
}

// SetSimTime publishes the ingestion clock.
func (c *Collector) SetSimTime(t time.Time) {
	if c == nil {
		return
	}
	c.SimTime.Set(float64(t.Unix()))
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
