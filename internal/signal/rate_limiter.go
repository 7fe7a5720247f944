package signal

import (
	"sync"
	"time"
)

// RateLimiter is a sliding-window admission counter keyed by an
// arbitrary string, one consume per inbound message. Keys are fully
// independent; stale timestamps are evicted lazily on each check so a
// key's history never outgrows the burst.
type RateLimiter struct {
	mu      sync.Mutex
	history map[string][]time.Time
	burst   int
	window  time.Duration
	now     func() time.Time
}

func NewRateLimiter(burst int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		history: make(map[string][]time.Time),
		burst:   burst,
		window:  window,
		now:     time.Now,
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.window)

	attempts := rl.history[key]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.burst {
		rl.history[key] = fresh
		return false
	}

	rl.history[key] = append(fresh, now)
	return true
}

// Clear drops all history for a key; called on disconnect to bound memory.
func (rl *RateLimiter) Clear(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, key)
}
