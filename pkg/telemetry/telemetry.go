// Package telemetry defines the snapshot records fetched from an ADS-B
// source and the Fetcher contract implemented by every source.
package telemetry

import (
	"context"
	"time"

	"adsbglobe/pkg/geo"
)

// DefaultRowLimit caps the rows requested per window.
const DefaultRowLimit = 10000

// FieldCount is the number of fields in one telemetry row:
// icao, lat, lon, aircraft type, registration, track.
const FieldCount = 6

// Record is one row of fetched telemetry.
type Record struct {
	ID           string         `json:"icao"`
	Coordinate   geo.Coordinate `json:"coordinate"`
	Heading      float32        `json:"track"`
	AircraftType string         `json:"type"`
	Registration string         `json:"registration"`
}

// Snapshot maps transponder code to the latest record of a window.
type Snapshot map[string]Record

// Add inserts r, replacing any earlier record with the same id.
func (s Snapshot) Add(r Record) {
	s[r.ID] = r
}

// Clone returns a shallow copy that can be consumed without touching s.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Fetcher retrieves the telemetry reported in the window (start, end).
// Implementations bound the number of rows they return and report transport
// problems as *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, start, end time.Time) (Snapshot, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, start, end time.Time) (Snapshot, error)

func (f FetcherFunc) Fetch(ctx context.Context, start, end time.Time) (Snapshot, error) {
	return f(ctx, start, end)
}

// TimeLayout is the timestamp format used in window queries.
const TimeLayout = "2006-01-02T15:04:05"
