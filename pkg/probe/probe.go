// Package probe runs startup reachability checks against the configured
// telemetry source and local storage.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout bounds a probe that does not set its own.
const DefaultTimeout = 5 * time.Second

// CheckFunc performs one check. It returns nil if the check passes.
type CheckFunc func(ctx context.Context) error

// Pinger is implemented by telemetry sources that can test connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Probe represents a single startup check.
type Probe struct {
	Name     string
	Check    CheckFunc
	Critical bool // a failure prevents startup
	Timeout  time.Duration
}

// ForPinger wraps a Pinger as a probe.
func ForPinger(name string, p Pinger, critical bool) Probe {
	return Probe{Name: name, Check: p.Ping, Critical: critical}
}

// Result holds the outcome of a single probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// Run executes the probes concurrently and returns their results in input
// order.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, len(probes))

	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = runOne(ctx, p)
		}()
	}
	wg.Wait()

	return results
}

func runOne(ctx context.Context, p Probe) Result {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	var err error
	if p.Check == nil {
		err = errors.New("no check configured")
	} else {
		err = p.Check(checkCtx)
	}
	return Result{Probe: p, Error: err, Duration: time.Since(start)}
}

// AnalyzeResults logs each result and joins the errors of failed critical
// probes.
func AnalyzeResults(results []Result) error {
	var criticalErrors []error

	slog.Info("Startup checks")

	for _, r := range results {
		status := "PASS"
		if r.Error != nil {
			status = "FAIL"
		}

		msg := fmt.Sprintf("[%s] %-20s (%v)", status, r.Probe.Name, r.Duration.Round(time.Millisecond))

		switch {
		case r.Error == nil:
			slog.Info(msg)
		case r.Probe.Critical:
			slog.Error(msg, "error", r.Error)
			criticalErrors = append(criticalErrors, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
		default:
			slog.Warn(msg, "error", r.Error)
		}
	}

	return errors.Join(criticalErrors...)
}
