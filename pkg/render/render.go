// Package render carries tracked aircraft to whatever draws them. The core
// only ever sees opaque handles.
package render

import "adsbglobe/pkg/geo"

// Handle identifies a renderable entity. It is bookkeeping only.
type Handle string

// Event types.
const (
	EventSpawn     = "spawn"
	EventDespawn   = "despawn"
	EventTransform = "transform"
	EventSnapshot  = "snapshot"
	EventBatch     = "batch"
)

// Event is one renderer instruction as streamed to subscribers.
type Event struct {
	Type     string      `json:"type"`
	Handle   Handle      `json:"handle"`
	ID       string      `json:"id,omitempty"`
	Position *[3]float64 `json:"position,omitempty"`
	Rotation *[4]float64 `json:"rotation,omitempty"`
}

func newEvent(typ string, h Handle, id string, t *geo.Transform) Event {
	e := Event{Type: typ, Handle: h, ID: id}
	if t != nil {
		p := t.Position.Array()
		r := t.Rotation.Array()
		e.Position = &p
		e.Rotation = &r
	}
	return e
}

// Nop discards everything. Handles are the aircraft ids.
type Nop struct{}

func (Nop) Spawn(id string, _ geo.Transform) Handle { return Handle(id) }
func (Nop) Despawn(Handle) {}
func (Nop) SetTransform(Handle, geo.Transform) {}
