package render

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"adsbglobe/pkg/geo"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	subscriberQueue = 64
)

type entity struct {
	id        string
	transform geo.Transform
}

type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.send)
	})
}

// Hub implements the renderer contract by streaming events as JSON to
// websocket subscribers. Calls are buffered until Flush so a whole
// reconciliation pass goes out as one message. A subscriber that cannot keep
// up is disconnected; on reconnect it receives a full snapshot.
type Hub struct {
	mu          sync.Mutex
	entities    map[Handle]entity
	pending     []Event
	subscribers map[string]*subscriber
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		entities:    make(map[Handle]entity),
		subscribers: make(map[string]*subscriber),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: slog.With("component", "render"),
	}
}

// Spawn registers a new entity and returns its handle.
func (h *Hub) Spawn(id string, t geo.Transform) Handle {
	handle := Handle(uuid.NewString())
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entities[handle] = entity{id: id, transform: t}
	h.pending = append(h.pending, newEvent(EventSpawn, handle, id, &t))
	return handle
}

// Despawn removes an entity. Unknown handles are ignored.
func (h *Hub) Despawn(handle Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entities[handle]
	if !ok {
		return
	}
	delete(h.entities, handle)
	h.pending = append(h.pending, newEvent(EventDespawn, handle, e.id, nil))
}

// SetTransform moves an entity. Unknown handles are ignored.
func (h *Hub) SetTransform(handle Handle, t geo.Transform) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entities[handle]
	if !ok {
		return
	}
	e.transform = t
	h.entities[handle] = e
	h.pending = append(h.pending, newEvent(EventTransform, handle, e.id, &t))
}

// Len returns the number of live entities.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entities)
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

type batch struct {
	Type   string  `json:"type"`
	Events []Event `json:"events"`
}

// Flush sends buffered events to every subscriber as one batch.
func (h *Hub) Flush() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flushLocked()
}

func (h *Hub) flushLocked() {
	if len(h.pending) == 0 {
		return
	}
	events := h.pending
	h.pending = nil
	if len(h.subscribers) == 0 {
		return
	}

	data, err := json.Marshal(batch{Type: EventBatch, Events: events})
	if err != nil {
		h.logger.Error("Failed to encode render batch", "error", err)
		return
	}
	for id, s := range h.subscribers {
		select {
		case s.send <- data:
		default:
			h.logger.Warn("Dropping slow render subscriber", "subscriber", id)
			delete(h.subscribers, id)
			s.close()
		}
	}
}

// snapshotLocked renders all live entities as spawn events, ordered by id.
func (h *Hub) snapshotLocked() []byte {
	events := make([]Event, 0, len(h.entities))
	for handle, e := range h.entities {
		t := e.transform
		events = append(events, newEvent(EventSpawn, handle, e.id, &t))
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	data, _ := json.Marshal(batch{Type: EventSnapshot, Events: events})
	return data
}

// ServeHTTP upgrades the request to a websocket subscription.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}

	s := &subscriber{id: uuid.NewString(), conn: conn, send: make(chan []byte, subscriberQueue)}

	// Buffered events go to the existing subscribers first; the snapshot
	// already reflects them.
	h.mu.Lock()
	h.flushLocked()
	s.send <- h.snapshotLocked()
	h.subscribers[s.id] = s
	h.mu.Unlock()

	h.logger.Info("Render subscriber connected", "subscriber", s.id, "remote", r.RemoteAddr)

	go h.writePump(s)
	h.readPump(s)
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	if cur, ok := h.subscribers[s.id]; ok && cur == s {
		delete(h.subscribers, s.id)
	}
	h.mu.Unlock()
	s.close()
}

// readPump discards client messages and detects disconnects.
func (h *Hub) readPump(s *subscriber) {
	defer func() {
		h.remove(s)
		h.logger.Info("Render subscriber disconnected", "subscriber", s.id)
	}()
	s.conn.SetReadLimit(4096)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, s := range h.subscribers {
		delete(h.subscribers, id)
		s.close()
	}
}
