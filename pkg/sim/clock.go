// Package sim provides the simulated ingestion clock.
package sim

import (
	"sync"
	"time"
)

// Clock is the simulated wall clock driven by completed fetch cycles.
// It advances by exactly one step per cycle, independent of frame rate.
type Clock struct {
	mu      sync.RWMutex
	start   time.Time
	current time.Time
	step    time.Duration
	ticks   uint64

	// wall-clock bookkeeping for Rate
	wallStart time.Time
	now       func() time.Time
}

// NewClock creates a clock starting at start that advances by step.
func NewClock(start time.Time, step time.Duration) *Clock {
	c := &Clock{
		start:   start,
		current: start,
		step:    step,
		now:     time.Now,
	}
	c.wallStart = c.now()
	return c
}

// Now returns the current simulated time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Step returns the duration of one ingestion cycle.
func (c *Clock) Step() time.Duration {
	return c.step
}

// Ticks returns the number of completed cycles.
func (c *Clock) Ticks() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ticks
}

// Window returns the fetch window [now, now+step] for the next cycle.
func (c *Clock) Window() (start, end time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.current.Add(c.step)
}

// Advance moves the clock forward one step and returns the new time.
func (c *Clock) Advance() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(c.step)
	c.ticks++
	return c.current
}

// Rate returns how many simulated seconds pass per wall-clock second since
// the clock was created.
func (c *Clock) Rate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	wall := c.now().Sub(c.wallStart).Seconds()
	if wall <= 0 {
		return 0
	}
	return c.current.Sub(c.start).Seconds() / wall
}

// Status is a point-in-time view of the clock for diagnostics.
type Status struct {
	Time  time.Time     `json:"time"`
	Ticks uint64        `json:"ticks"`
	Step  time.Duration `json:"step_ns"`
	Rate  float64       `json:"rate"`
}

// Status returns the clock's current diagnostics view.
func (c *Clock) Status() Status {
	rate := c.Rate()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{Time: c.current, Ticks: c.ticks, Step: c.step, Rate: rate}
}
