package traffic

// History is a bounded, newest-first sequence of past states.
type History struct {
	states []State // ring buffer
	head   int     // index of the newest entry
	size   int
}

// NewHistory creates a history keeping at most capacity states.
func NewHistory(capacity int) *History {
	if capacity < 0 {
		capacity = 0
	}
	return &History{states: make([]State, capacity), head: -1}
}

// Push records s as the newest entry, dropping the oldest past capacity.
func (h *History) Push(s State) {
	if len(h.states) == 0 {
		return
	}
	h.head = (h.head + 1) % len(h.states)
	h.states[h.head] = s
	if h.size < len(h.states) {
		h.size++
	}
}

// Len returns the number of stored states.
func (h *History) Len() int { return h.size }

// Cap returns the capacity.
func (h *History) Cap() int { return len(h.states) }

// At returns the i-th newest state; At(0) is the most recent.
func (h *History) At(i int) (State, bool) {
	if i < 0 || i >= h.size {
		return State{}, false
	}
	idx := (h.head - i + len(h.states)) % len(h.states)
	return h.states[idx], true
}

// States returns a newest-first copy.
func (h *History) States() []State {
	out := make([]State, 0, h.size)
	for i := 0; i < h.size; i++ {
		s, _ := h.At(i)
		out = append(out, s)
	}
	return out
}
