package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter throttles verification requests per client IP. A fixed
// one-minute window keeps the bookkeeping to one counter per client.
type RateLimiter struct {
	mu sync.RWMutex

	requestsPerMinute int

	clients map[string]*clientUsage
}

// clientUsage tracks requests for a specific client within the current
// window.
type clientUsage struct {
	requests    int
	windowStart time.Time
}

// NewRateLimiter creates a rate limiter allowing requestsPerMinute requests
// per client. A non-positive limit disables throttling.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		clients:           make(map[string]*clientUsage),
	}
}

// CheckRateLimit reports whether a request from the given client is allowed
// and counts it against the current window.
func (rl *RateLimiter) CheckRateLimit(clientID string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	usage, exists := rl.clients[clientID]
	if !exists {
		usage = &clientUsage{windowStart: now}
		rl.clients[clientID] = usage
	}

	if now.Sub(usage.windowStart) >= time.Minute {
		usage.requests = 0
		usage.windowStart = now
	}

	if rl.requestsPerMinute > 0 && usage.requests >= rl.requestsPerMinute {
		return &RateLimitError{
			Type:       "minute",
			Limit:      rl.requestsPerMinute,
			RetryAfter: time.Minute - now.Sub(usage.windowStart),
		}
	}

	usage.requests++
	return nil
}

// Usage returns the request count in the client's current window.
func (rl *RateLimiter) Usage(clientID string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	if usage, exists := rl.clients[clientID]; exists {
		return usage.requests
	}
	return 0
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string        // limit window that was exceeded
	Limit      int           // the limit that was exceeded
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}
