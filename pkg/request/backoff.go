package request

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// HostBackoff manages exponential backoff per upstream host. Failures of one
// cycle push back the next cycle's first attempt, so a dead database is not
// hammered once per window.
type HostBackoff struct {
	mu        sync.RWMutex
	hosts     map[string]*backoffState
	baseDelay time.Duration
	maxDelay  time.Duration
}

type backoffState struct {
	failureCount int
	nextAllowed  time.Time
}

// NewHostBackoff creates a new backoff manager.
func NewHostBackoff(baseDelay, maxDelay time.Duration) *HostBackoff {
	return &HostBackoff{
		hosts:     make(map[string]*backoffState),
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
	}
}

// Wait blocks until the host is allowed to receive a request or ctx ends.
func (b *HostBackoff) Wait(ctx context.Context, host string) error {
	b.mu.RLock()
	state, exists := b.hosts[host]
	var next time.Time
	if exists {
		next = state.nextAllowed
	}
	b.mu.RUnlock()

	wait := time.Until(next)
	if !exists || wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordFailure increases the backoff delay for a host.
func (b *HostBackoff) RecordFailure(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, exists := b.hosts[host]
	if !exists {
		state = &backoffState{}
		b.hosts[host] = state
	}

	state.failureCount++
	state.nextAllowed = time.Now().Add(b.calculateDelay(state.failureCount))
}

// RecordSuccess clears the backoff for a host.
func (b *HostBackoff) RecordSuccess(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.hosts, host)
}

// calculateDelay returns exponential delay with 10% jitter, capped at maxDelay.
func (b *HostBackoff) calculateDelay(failures int) time.Duration {
	multiplier := math.Pow(2, float64(failures-1))
	delay := time.Duration(float64(b.baseDelay) * multiplier)
	if delay > b.maxDelay || delay <= 0 {
		delay = b.maxDelay
	}

	jitter := time.Duration(rand.Float64() * 0.1 * float64(delay))
	return delay + jitter
}

// State returns current backoff state for a host.
func (b *HostBackoff) State(host string) (failureCount int, nextAllowed time.Time) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if state, exists := b.hosts[host]; exists {
		return state.failureCount, state.nextAllowed
	}
	return 0, time.Time{}
}
