package server

import (
	"sync"
	"time"
)

// RateLimiter allows one attempt per key every minInterval.
type RateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastSeen    map[string]time.Time
	now         func() time.Time
}

// NewRateLimiter allows one attempt per key every minInterval.
func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		minInterval: minInterval,
		lastSeen:    make(map[string]time.Time),
		now:         time.Now,
	}
}

// Allow records an attempt for key. When it is too soon it returns false
// and how long to wait.
func (r *RateLimiter) Allow(key string) (bool, time.Duration) {
	if r.minInterval <= 0 {
		return true, 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	last, ok := r.lastSeen[key]
	if !ok {
		r.lastSeen[key] = now
		return true, 0
	}
	elapsed := now.Sub(last)
	if elapsed < r.minInterval {
		return false, r.minInterval - elapsed
	}
	r.lastSeen[key] = now
	return true, 0
}

// Prune forgets keys whose last attempt is older than the interval.
func (r *RateLimiter) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for key, last := range r.lastSeen {
		if now.Sub(last) >= r.minInterval {
			delete(r.lastSeen, key)
			removed++
		}
	}
	return removed
}
