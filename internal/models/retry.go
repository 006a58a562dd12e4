package models

import "time"

// RetryEntry is one row of the process-local retry registry: the last time
// a given request id was enqueued for retry. It exists only to throttle
// notification/log storms; request status in the store remains the
// authoritative source of truth (see internal/retry).
type RetryEntry struct {
	RequestID   string
	LastAttempt time.Time
}

// EligibleAt reports whether the entry may be re-enqueued given a cooldown.
func (r RetryEntry) EligibleAt(now time.Time, cooldown time.Duration) bool {
	return now.Sub(r.LastAttempt) >= cooldown
}
