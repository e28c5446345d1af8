package nlp

import (
	"sync"
	"time"
)

const (
	// DefaultRateLimit is the number of instructions one requester may send
	// per window.
	DefaultRateLimit = 20

	defaultRateLimitWindow = time.Minute
)

// RateLimiter is a per-requester sliding window limiter. It protects the
// model quota from a single member spamming instructions.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	seen   map[string][]time.Time
}

// NewRateLimiter allows limit calls per window for each requester. Values
// of zero or less select the defaults.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	return &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		seen:   make(map[string][]time.Time),
	}
}

// prune drops timestamps outside the window and returns the rest.
func (r *RateLimiter) prune(id string, now time.Time) []time.Time {
	cutoff := now.Add(-r.window)
	kept := r.seen[id][:0]
	for _, t := range r.seen[id] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(r.seen, id)
		return nil
	}
	r.seen[id] = kept
	return kept
}

// Allow records a call for id and reports whether it is within the limit.
// Rejected calls are not recorded.
func (r *RateLimiter) Allow(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	kept := r.prune(id, now)
	if len(kept) >= r.limit {
		return false
	}
	r.seen[id] = append(kept, now)
	return true
}

// Remaining returns how many more calls id may make in the current window.
func (r *RateLimiter) Remaining(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	rem := r.limit - len(r.prune(id, r.now()))
	if rem < 0 {
		return 0
	}
	return rem
}
