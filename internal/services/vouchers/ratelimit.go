package vouchers

import (
	"sync"
	"time"
)

const (
	maxAttempts = 3
	windowSize  = time.Hour
)

// RateLimiter caps voucher uploads per identifier inside a fixed window.
// In-memory: limits reset on process restart.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*window
	now      func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		attempts: make(map[string]*window),
		now:      time.Now,
	}
}

// Allow records an attempt and reports whether it is within the quota.
// When denied it also returns the minutes until the window resets.
func (r *RateLimiter) Allow(identifier string) (bool, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w, ok := r.attempts[identifier]
	if !ok || now.After(w.resetAt) {
		r.attempts[identifier] = &window{count: 1, resetAt: now.Add(windowSize)}
		return true, 0
	}

	if w.count >= maxAttempts {
		resetIn := int(w.resetAt.Sub(now).Minutes()) + 1
		return false, resetIn
	}

	w.count++
	return true, 0
}
