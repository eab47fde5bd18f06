// Package mock generates synthetic telemetry for demos and tests without a
// database. Every aircraft flies a great circle, lands for a while and takes
// off again; a share of the fleet stays parked.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"adsbglobe/pkg/geo"
	"adsbglobe/pkg/telemetry"
)

// SourceName is the FetchError source of this package.
const SourceName = "mock"

const (
	// Flight stages
	StageParked   = "PARKED"
	StageAirborne = "AIRBORNE"
	StageLanded   = "LANDED" // not reporting

	ktsToMps = 0.514444
)

var aircraftTypes = []string{"A320", "A21N", "B738", "B38M", "B789", "E190", "CRJ9", "A359", "C172", "PC12"}

// Config holds settings for the synthetic fleet.
type Config struct {
	Aircraft int
	Seed     int64
	Center   geo.Coordinate
	Radius   float64 // meters
	SpeedKts float64
	Epoch    time.Time // flight schedules are relative to this instant
}

type flight struct {
	id           string
	registration string
	typ          string
	origin       geo.Coordinate
	course       float64
	speedMps     float64
	airborne     time.Duration // time reporting per cycle
	grounded     time.Duration // time silent per cycle
	offset       time.Duration
	parked       bool
}

// Source implements telemetry.Fetcher with a deterministic fleet.
type Source struct {
	mu      sync.Mutex
	cfg     Config
	flights []flight
	limit   int
}

// New builds the fleet from cfg.Seed. limit bounds the rows per window like
// a real source.
func New(cfg Config, limit int) *Source {
	if limit <= 0 {
		limit = telemetry.DefaultRowLimit
	}
	if cfg.SpeedKts <= 0 {
		cfg.SpeedKts = 450
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	seen := make(map[string]bool, cfg.Aircraft)
	flights := make([]flight, 0, cfg.Aircraft)
	for len(flights) < cfg.Aircraft {
		id := fmt.Sprintf("%06X", rng.Intn(1<<24))
		if seen[id] {
			continue
		}
		seen[id] = true

		f := flight{
			id:           id,
			registration: fmt.Sprintf("N%d%c%c", 100+rng.Intn(900), 'A'+rng.Intn(26), 'A'+rng.Intn(26)),
			typ:          aircraftTypes[rng.Intn(len(aircraftTypes))],
			origin:       geo.DestinationPoint(cfg.Center, rng.Float64()*cfg.Radius, rng.Float64()*360),
			course:       rng.Float64() * 360,
			speedMps:     cfg.SpeedKts * ktsToMps * (0.6 + 0.8*rng.Float64()),
			airborne:     time.Duration(30+rng.Intn(150)) * time.Minute,
			grounded:     time.Duration(15+rng.Intn(45)) * time.Minute,
			parked:       rng.Float64() < 0.1,
		}
		f.offset = time.Duration(rng.Int63n(int64(f.airborne + f.grounded)))
		flights = append(flights, f)
	}

	return &Source{cfg: cfg, flights: flights, limit: limit}
}

// Fetch implements telemetry.Fetcher. Positions are evaluated at the window
// midpoint.
func (s *Source) Fetch(ctx context.Context, start, end time.Time) (telemetry.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, &telemetry.FetchError{Source: SourceName, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	at := start.Add(end.Sub(start) / 2)
	snap := make(telemetry.Snapshot)
	for i := range s.flights {
		if len(snap) >= s.limit {
			break
		}
		rec, stage := s.flights[i].report(at.Sub(s.cfg.Epoch))
		if stage == StageLanded {
			continue
		}
		snap.Add(rec)
	}

	slog.Debug("Mock window generated",
		"rows", len(snap),
		"farthest_km", farthest(s.cfg.Center, snap)/1000)
	return snap, nil
}

// farthest returns the great circle distance in meters from center to the
// most distant record in snap.
func farthest(center geo.Coordinate, snap telemetry.Snapshot) float64 {
	var far float64
	for _, rec := range snap {
		if d := geo.Distance(center, rec.Coordinate); d > far {
			far = d
		}
	}
	return far
}

// Stage returns the stage of the aircraft with the given id at t, or "" if
// the id is not part of the fleet.
func (s *Source) Stage(id string, t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.flights {
		if s.flights[i].id == id {
			_, stage := s.flights[i].report(t.Sub(s.cfg.Epoch))
			return stage
		}
	}
	return ""
}

// IDs lists the fleet in generation order.
func (s *Source) IDs() []string {
	ids := make([]string, len(s.flights))
	for i := range s.flights {
		ids[i] = s.flights[i].id
	}
	return ids
}

func (f *flight) report(elapsed time.Duration) (telemetry.Record, string) {
	rec := telemetry.Record{
		ID:           f.id,
		AircraftType: f.typ,
		Registration: f.registration,
	}
	if f.parked {
		rec.Coordinate = f.origin
		rec.Heading = float32(f.course)
		return rec, StageParked
	}

	cycle := f.airborne + f.grounded
	phase := (elapsed + f.offset) % cycle
	if phase < 0 {
		phase += cycle
	}
	if phase >= f.airborne {
		return rec, StageLanded
	}

	dist := f.speedMps * phase.Seconds()
	pos := geo.DestinationPoint(f.origin, dist, f.course)
	ahead := geo.DestinationPoint(f.origin, dist+1000, f.course)
	rec.Coordinate = pos
	rec.Heading = float32(geo.Bearing(pos, ahead))
	return rec, StageAirborne
}
