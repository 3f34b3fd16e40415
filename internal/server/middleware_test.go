package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCORSMiddleware(t *testing.T) {
	server := newTestServer(&stubVerifier{})

	t.Run("adds CORS headers", func(t *testing.T) {
		called := false
		handler := server.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		assert.True(t, called)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("short-circuits preflight requests", func(t *testing.T) {
		called := false
		handler := server.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		req := httptest.NewRequest(http.MethodOptions, "/verify", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("uses the configured origin", func(t *testing.T) {
		restricted := New(Config{CORSOrigin: "https://portal.example.edu", MaxUploadMB: 20}, &stubVerifier{}, nil, nil)
		handler := restricted.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		assert.Equal(t, "https://portal.example.edu", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("blocks after the per-minute limit", func(t *testing.T) {
		server := New(Config{CORSOrigin: "*", MaxUploadMB: 20, RateLimitPerMin: 2}, &stubVerifier{}, nil, nil)
		require.NotNil(t, server.rateLimiter)

		handler := server.rateLimitMiddleware(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodPost, "/verify", nil)
			req.RemoteAddr = "203.0.113.7:51000"
			rec := httptest.NewRecorder()
			handler(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
		}

		req := httptest.NewRequest(http.MethodPost, "/verify", nil)
		req.RemoteAddr = "203.0.113.7:51000"
		rec := httptest.NewRecorder()
		handler(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "minute", rec.Header().Get("X-RateLimit-Type"))
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("tracks clients independently", func(t *testing.T) {
		server := New(Config{CORSOrigin: "*", MaxUploadMB: 20, RateLimitPerMin: 1}, &stubVerifier{}, nil, nil)

		handler := server.rateLimitMiddleware(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		first := httptest.NewRequest(http.MethodPost, "/verify", nil)
		first.RemoteAddr = "203.0.113.7:51000"
		rec := httptest.NewRecorder()
		handler(rec, first)
		require.Equal(t, http.StatusOK, rec.Code)

		second := httptest.NewRequest(http.MethodPost, "/verify", nil)
		second.RemoteAddr = "203.0.113.99:51000"
		rec = httptest.NewRecorder()
		handler(rec, second)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("passes through when disabled", func(t *testing.T) {
		server := newTestServer(&stubVerifier{})
		require.Nil(t, server.rateLimiter)

		handler := server.rateLimitMiddleware(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		for i := 0; i < 50; i++ {
			req := httptest.NewRequest(http.MethodPost, "/verify", nil)
			req.RemoteAddr = "203.0.113.7:51000"
			rec := httptest.NewRecorder()
			handler(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{
			name:       "remote address with port",
			remoteAddr: "192.0.2.10:52412",
			expected:   "192.0.2.10",
		},
		{
			name:       "remote address without port",
			remoteAddr: "192.0.2.10",
			expected:   "192.0.2.10",
		},
		{
			name:       "single forwarded address",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			expected:   "203.0.113.7",
		},
		{
			name:       "multiple forwarded addresses take the first",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2, 10.0.0.3"},
			expected:   "203.0.113.7",
		},
		{
			name:       "real IP header",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "203.0.113.42"},
			expected:   "203.0.113.42",
		},
		{
			name:       "forwarded beats real IP",
			remoteAddr: "10.0.0.1:1234",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.7",
				"X-Real-IP":       "203.0.113.42",
			},
			expected: "203.0.113.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.RemoteAddr = tt.remoteAddr
			for key, value := range tt.headers {
				req.Header.Set(key, value)
			}

			assert.Equal(t, tt.expected, getClientIP(req))
		})
	}
}

func TestResponseWriterCapturesStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)

	assert.Equal(t, http.StatusNotFound, rw.statusCode)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
