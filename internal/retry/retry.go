// Package retry implements the dispatch engine's process-local retry
// registry: a cooldown-gated map from request id to last-attempt time. It is
// not authoritative state — request status in the store is — it exists only
// to avoid log and notification storms across consecutive ticks (spec
// §4.H).
package retry

import (
	"sync"
	"time"

	"ride-dispatch-engine/internal/models"
)

// Clock is the injectable time source, matching the one the scheduler uses.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClock is the production Clock.
var RealClock Clock = realClock{}

// Registry is a mutex-protected cooldown map. The zero value is not usable;
// construct with NewRegistry.
type Registry struct {
	mu       sync.Mutex
	entries  map[string]models.RetryEntry
	cooldown time.Duration
	clock    Clock
}

// NewRegistry builds a registry with the given cooldown and clock. A nil
// clock defaults to RealClock.
func NewRegistry(cooldown time.Duration, clock Clock) *Registry {
	if clock == nil {
		clock = RealClock
	}
	return &Registry{
		entries:  make(map[string]models.RetryEntry),
		cooldown: cooldown,
		clock:    clock,
	}
}

// Enqueue records requestID's retry attempt unless the previous entry is
// still within its cooldown, in which case it is a no-op. Returns true if
// the attempt was recorded (i.e. this is a "fresh" retry worth notifying
// about), false if it was suppressed by the cooldown.
func (r *Registry) Enqueue(requestID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()

	if existing, ok := r.entries[requestID]; ok && !existing.EligibleAt(now, r.cooldown) {
		return false
	}

	r.entries[requestID] = models.RetryEntry{RequestID: requestID, LastAttempt: now}
	return true
}

// Purge drops entries whose cooldown has elapsed, bounding the map's growth
// across long-running processes. It does not affect correctness: the next
// scheduler tick re-reads pending requests from the store regardless.
func (r *Registry) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	for id, entry := range r.entries {
		if entry.EligibleAt(now, r.cooldown) {
			delete(r.entries, id)
		}
	}
}

// Len reports the number of tracked entries, used for the retry-queue-depth
// gauge.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
