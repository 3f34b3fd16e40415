package server

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	limiter := NewRateLimiter(5)

	for i := 0; i < 5; i++ {
		assert.NoError(t, limiter.CheckRateLimit("client-a"))
	}
	assert.Equal(t, 5, limiter.Usage("client-a"))
}

func TestRateLimiter_BlocksAtLimit(t *testing.T) {
	limiter := NewRateLimiter(3)

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.CheckRateLimit("client-a"))
	}

	err := limiter.CheckRateLimit("client-a")
	require.Error(t, err)

	var limitErr *RateLimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, "minute", limitErr.Type)
	assert.Equal(t, 3, limitErr.Limit)
	assert.Greater(t, limitErr.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, limitErr.RetryAfter, time.Minute)
	assert.Contains(t, limitErr.Error(), "rate limit exceeded")

	// A rejected request does not consume budget
	assert.Equal(t, 3, limiter.Usage("client-a"))
}

func TestRateLimiter_WindowReset(t *testing.T) {
	limiter := NewRateLimiter(1)

	require.NoError(t, limiter.CheckRateLimit("client-a"))
	require.Error(t, limiter.CheckRateLimit("client-a"))

	// Age the window past a minute
	limiter.mu.Lock()
	limiter.clients["client-a"].windowStart = time.Now().Add(-2 * time.Minute)
	limiter.mu.Unlock()

	assert.NoError(t, limiter.CheckRateLimit("client-a"))
	assert.Equal(t, 1, limiter.Usage("client-a"))
}

func TestRateLimiter_PerClientIsolation(t *testing.T) {
	limiter := NewRateLimiter(1)

	require.NoError(t, limiter.CheckRateLimit("client-a"))
	require.Error(t, limiter.CheckRateLimit("client-a"))

	assert.NoError(t, limiter.CheckRateLimit("client-b"))
	assert.Equal(t, 1, limiter.Usage("client-a"))
	assert.Equal(t, 1, limiter.Usage("client-b"))
}

func TestRateLimiter_NonPositiveLimitAllowsEverything(t *testing.T) {
	limiter := NewRateLimiter(0)

	for i := 0; i < 100; i++ {
		require.NoError(t, limiter.CheckRateLimit("client-a"))
	}
}

func TestRateLimiter_UsageUnknownClient(t *testing.T) {
	limiter := NewRateLimiter(5)
	assert.Equal(t, 0, limiter.Usage("never-seen"))
}
