// Package ratelimit provides per-client token-bucket rate limiting for the
// HTTP API (spec.md §6's "API callers are rate-limited"). Grounded on the
// teacher's internal/net/ratelimit/limiter.go, adapted from per-host
// outbound-provider limiting to per-client-IP inbound limiting.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter hands out one token-bucket limiter per client key (typically a
// remote IP), lazily created on first use.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewLimiter creates a Limiter allowing rps requests per second per client,
// with burst capacity.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

func (l *Limiter) getLimiter(client string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[client]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, exists := l.limiters[client]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(l.rps), l.burst)
	l.limiters[client] = limiter
	return limiter
}

// Allow reports whether a request from client is currently permitted,
// consuming a token if so.
func (l *Limiter) Allow(client string) bool {
	return l.getLimiter(client).Allow()
}

// Reset clears every client's bucket, restarting all clients at full burst.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters = make(map[string]*rate.Limiter)
}

// Stats reports the current token count and limit for a known client, or
// (0, 0, false) if the client has never made a request.
func (l *Limiter) Stats(client string) (tokens float64, burst int, known bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	limiter, exists := l.limiters[client]
	if !exists {
		return 0, 0, false
	}
	return limiter.Tokens(), limiter.Burst(), true
}

// clientCount reports how many distinct clients currently hold a bucket;
// used by tests that assert on Limiter's internal bookkeeping.
func (l *Limiter) clientCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}
