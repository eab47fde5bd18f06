package traffic

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"adsbglobe/pkg/geo"
	"adsbglobe/pkg/render"
	"adsbglobe/pkg/telemetry"
)

// Config is the reconciliation policy.
type Config struct {
	MaxAircraft        int
	Staleness          time.Duration
	HistorySize        int
	EarthRadius        float64 // render units
	SpawnAltitude      float64 // above EarthRadius
	InitialGroundSpeed float64
}

// DefaultConfig returns the standard policy.
func DefaultConfig() Config {
	return Config{
		MaxAircraft:        5000,
		Staleness:          10 * time.Minute,
		HistorySize:        10,
		EarthRadius:        1.0,
		SpawnAltitude:      0.01,
		InitialGroundSpeed: 0.1,
	}
}

// Result summarizes one reconciliation pass.
type Result struct {
	Updated    int `json:"updated"`
	Spawned    int `json:"spawned"`
	Evicted    int `json:"evicted"`
	Dropped    int `json:"dropped"` // new arrivals refused because the population was full
	Population int `json:"population"`
}

// Engine is the sole mutator of the population. Reconcile must be called from
// one goroutine; Views and Lookup may be called from any.
type Engine struct {
	mu       sync.RWMutex
	cfg      Config
	pop      *Population
	renderer Renderer
	logger   *slog.Logger
}

// NewEngine creates an engine with an empty population. A nil renderer
// discards all render calls.
func NewEngine(cfg Config, r Renderer) *Engine {
	if r == nil {
		r = render.Nop{}
	}
	return &Engine{
		cfg:      cfg,
		pop:      NewPopulation(cfg.MaxAircraft),
		renderer: r,
		logger:   slog.With("component", "traffic"),
	}
}

// Reconcile merges snap into the population at simTime. snap is not
// modified.
//
// Every tracked aircraft present in snap is updated and its entry consumed.
// Every tracked aircraft whose last relevant change is older than the
// staleness threshold is evicted, whether or not it was just updated. The
// remaining entries spawn new aircraft until the cap is reached; the rest are
// dropped for this cycle.
func (e *Engine) Reconcile(snap telemetry.Snapshot, simTime time.Time) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	pending := snap.Clone()
	var res Result

	for id, a := range e.pop.aircraft {
		if rec, ok := pending[id]; ok {
			e.update(a, rec, simTime)
			delete(pending, id)
			res.Updated++
		}
		if simTime.Sub(a.State.LastRelevant) > e.cfg.Staleness {
			e.pop.remove(id)
			e.renderer.Despawn(a.Handle)
			res.Evicted++
		}
	}

	// Spawn in id order so that a full population drops the same arrivals
	// on every run.
	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if e.pop.Full() {
			res.Dropped++
			continue
		}
		e.spawn(pending[id], simTime)
		res.Spawned++
	}

	res.Population = e.pop.Len()
	if res.Dropped > 0 {
		e.logger.Debug("Population full, dropped new arrivals", "dropped", res.Dropped, "cap", e.pop.Cap())
	}
	return res
}

func (e *Engine) update(a *Aircraft, rec telemetry.Record, simTime time.Time) {
	radius := e.cfg.EarthRadius + a.State.Altitude
	prev := a.State

	coord := geo.Reproject(rec.Coordinate, radius)
	position := geo.CoordinateToPoint(coord, radius)

	a.State.Coordinate = coord
	a.State.Heading = float64(rec.Heading)
	a.Type = rec.AircraftType
	a.Registration = rec.Registration
	a.History.Push(prev)

	if a.State.Altitude > 0 && !position.Equal(a.Transform.Position) {
		a.State.LastRelevant = simTime
	}

	a.Transform = geo.Transform{
		Position: position,
		Rotation: geo.OrientationForHeading(position, a.State.Heading),
	}
	e.renderer.SetTransform(a.Handle, a.Transform)
}

func (e *Engine) spawn(rec telemetry.Record, simTime time.Time) {
	state := State{
		Coordinate:   rec.Coordinate,
		Heading:      float64(rec.Heading),
		GroundSpeed:  e.cfg.InitialGroundSpeed,
		Altitude:     e.cfg.SpawnAltitude,
		LastRelevant: simTime,
	}
	a := &Aircraft{
		ID:           rec.ID,
		Type:         rec.AircraftType,
		Registration: rec.Registration,
		State:        state,
		History:      NewHistory(e.cfg.HistorySize),
		Transform:    geo.TransformAt(state.Coordinate, e.cfg.EarthRadius+state.Altitude, state.Heading),
	}
	a.Handle = e.renderer.Spawn(a.ID, a.Transform)
	e.pop.add(a)
}

// Len returns the live count.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pop.Len()
}

// Cap returns the population cap.
func (e *Engine) Cap() int {
	return e.cfg.MaxAircraft
}

// Views returns a copy of every tracked aircraft without history, ordered by id.
func (e *Engine) Views() []View {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]View, 0, e.pop.Len())
	for _, id := range e.pop.IDs() {
		a, _ := e.pop.Get(id)
		out = append(out, a.view(false))
	}
	return out
}

// Lookup returns a copy of one aircraft including its history.
func (e *Engine) Lookup(id string) (View, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.pop.Get(id)
	if !ok {
		return View{}, false
	}
	return a.view(true), true
}
