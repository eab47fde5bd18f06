// Package traffic owns the live aircraft population and reconciles it
// against each fetched telemetry snapshot.
package traffic

import (
	"time"

	"adsbglobe/pkg/geo"
	"adsbglobe/pkg/render"
)

// State is the mutable per-aircraft state. It is copied by value into
// History.
type State struct {
	Coordinate   geo.Coordinate `json:"coordinate"`
	Heading      float64        `json:"heading"`
	GroundSpeed  float64        `json:"ground_speed"`
	Altitude     float64        `json:"altitude"`
	LastRelevant time.Time      `json:"last_relevant"`
}

// Aircraft is one tracked object.
type Aircraft struct {
	ID           string
	Type         string
	Registration string
	State        State
	History      *History
	Transform    geo.Transform
	Handle       render.Handle
}

// View is a read-only copy of an Aircraft for diagnostics.
type View struct {
	ID           string        `json:"icao"`
	Type         string        `json:"type,omitempty"`
	Registration string        `json:"registration,omitempty"`
	State        State         `json:"state"`
	History      []State       `json:"history,omitempty"`
	Transform    geo.Transform `json:"transform"`
}

func (a *Aircraft) view(withHistory bool) View {
	v := View{
		ID:           a.ID,
		Type:         a.Type,
		Registration: a.Registration,
		State:        a.State,
		Transform:    a.Transform,
	}
	if withHistory {
		v.History = a.History.States()
	}
	return v
}

// Renderer is the external collaborator that draws aircraft. Handles it
// returns are stored but never inspected.
type Renderer interface {
	Spawn(id string, t geo.Transform) render.Handle
	Despawn(h render.Handle)
	SetTransform(h render.Handle, t geo.Transform)
}
