package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veridoc-io/veridoc/internal/cache"
	"github.com/veridoc-io/veridoc/internal/pipeline"
	"github.com/veridoc-io/veridoc/internal/store"
)

// verifier defines what the server needs from the verification pipeline.
type verifier interface {
	Verify(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error)
}

// Server holds the HTTP server state and dependencies. The store and cache
// are optional: a nil store disables the submission and report endpoints, a
// nil cache disables outcome reuse.
type Server struct {
	verifier    verifier
	store       *store.Store
	cache       *cache.Cache
	config      Config
	rateLimiter *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host            string
	Port            int
	CORSOrigin      string
	MaxUploadMB     int
	Timeout         time.Duration
	ShutdownTimeout time.Duration
	RateLimitPerMin int
	CaptionURL      string
	OCRURL          string
}

// HealthResponse reports service liveness and the configured capability
// backends.
type HealthResponse struct {
	Status       string         `json:"status"`
	Version      string         `json:"version,omitempty"`
	Time         string         `json:"time"`
	Capabilities CapabilityInfo `json:"capabilities"`
}

// CapabilityInfo names the model endpoints the pipeline talks to.
type CapabilityInfo struct {
	CaptionURL string `json:"caption_url"`
	OCRURL     string `json:"ocr_url"`
}

// ErrorResponse is the JSON envelope for failed requests.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// SubmissionsResponse lists submissions for the review queue.
type SubmissionsResponse struct {
	Submissions []store.Submission `json:"submissions"`
	Count       int                `json:"count"`
}

// ReviewRequest resolves a pending submission.
type ReviewRequest struct {
	Approve  bool   `json:"approve"`
	Reviewer string `json:"reviewer"`
	Note     string `json:"note,omitempty"`
}

// New creates a verification server instance.
func New(cfg Config, v verifier, st *store.Store, ca *cache.Cache) *Server {
	var limiter *RateLimiter
	if cfg.RateLimitPerMin > 0 {
		limiter = NewRateLimiter(cfg.RateLimitPerMin)
	}

	return &Server{
		verifier:    v,
		store:       st,
		cache:       ca,
		config:      cfg,
		rateLimiter: limiter,
	}
}

// Addr returns the listen address built from host and port.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/verify", s.corsMiddleware(s.rateLimitMiddleware(s.verifyHandler)))
	mux.HandleFunc("/verify/submit", s.corsMiddleware(s.rateLimitMiddleware(s.submitHandler)))
	mux.HandleFunc("/submissions", s.corsMiddleware(s.submissionsHandler))
	mux.HandleFunc("/submissions/", s.corsMiddleware(s.submissionHandler))
	mux.HandleFunc("/reports/", s.corsMiddleware(s.reportHandler))
	mux.HandleFunc("/ws/verify", s.verifyWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}
