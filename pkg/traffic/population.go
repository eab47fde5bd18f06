package traffic

import "sort"

// Population maps aircraft id to tracked aircraft under a hard cap. The
// live count is kept explicitly and always equals the number of entries.
type Population struct {
	aircraft map[string]*Aircraft
	count    int
	cap      int
}

// NewPopulation creates an empty population holding at most capacity aircraft.
func NewPopulation(capacity int) *Population {
	return &Population{aircraft: make(map[string]*Aircraft), cap: capacity}
}

// Len returns the live count.
func (p *Population) Len() int { return p.count }

// Cap returns the population cap.
func (p *Population) Cap() int { return p.cap }

// Full reports whether no more aircraft can be added.
func (p *Population) Full() bool { return p.count >= p.cap }

// Get returns the aircraft with the given id.
func (p *Population) Get(id string) (*Aircraft, bool) {
	a, ok := p.aircraft[id]
	return a, ok
}

// add inserts a new aircraft. It returns false when the population is full or
// the id is already tracked.
func (p *Population) add(a *Aircraft) bool {
	if p.Full() {
		return false
	}
	if _, exists := p.aircraft[a.ID]; exists {
		return false
	}
	p.aircraft[a.ID] = a
	p.count++
	return true
}

// remove deletes the aircraft with the given id.
func (p *Population) remove(id string) (*Aircraft, bool) {
	a, ok := p.aircraft[id]
	if !ok {
		return nil, false
	}
	delete(p.aircraft, id)
	p.count--
	return a, true
}

// IDs returns the tracked ids in sorted order.
func (p *Population) IDs() []string {
	ids := make([]string, 0, len(p.aircraft))
	for id := range p.aircraft {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
