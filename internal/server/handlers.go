package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/veridoc-io/veridoc/internal/capability"
	"github.com/veridoc-io/veridoc/internal/classify"
	"github.com/veridoc-io/veridoc/internal/pipeline"
	"github.com/veridoc-io/veridoc/internal/report"
	"github.com/veridoc-io/veridoc/internal/store"
	"github.com/veridoc-io/veridoc/internal/version"
)

// defaultListLimit caps submission listings when no limit is given.
const defaultListLimit = 50

// healthHandler returns server health status and the configured capability
// endpoints.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Capabilities: CapabilityInfo{
			CaptionURL: s.config.CaptionURL,
			OCRURL:     s.config.OCRURL,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode health response", "error", err)
	}
}

// verifyHandler runs one verification and returns the outcome without
// persisting anything.
func (s *Server) verifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, ok := s.readVerifyRequest(w, r)
	if !ok {
		return
	}

	outcome, ok := s.runVerification(w, r, req)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(outcome); err != nil {
		slog.Error("Failed to encode verification response", "error", err)
	}
}

// submitHandler runs one verification and records it as a submission in the
// review workflow.
func (s *Server) submitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.store == nil {
		s.writeErrorResponse(w, "Submission persistence is not configured", http.StatusServiceUnavailable)
		return
	}

	req, ok := s.readVerifyRequest(w, r)
	if !ok {
		return
	}

	outcome, ok := s.runVerification(w, r, req)
	if !ok {
		return
	}

	sub, err := store.NewSubmission(req, outcome)
	if err != nil {
		s.writeErrorResponse(w, "Failed to record submission", http.StatusInternalServerError)
		return
	}
	if err := s.store.CreateSubmission(r.Context(), sub); err != nil {
		slog.Error("Failed to store submission", "error", err)
		s.writeErrorResponse(w, "Failed to record submission", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(sub); err != nil {
		slog.Error("Failed to encode submission response", "error", err)
	}
}

// submissionsHandler lists submissions, optionally filtered by workflow
// status.
func (s *Server) submissionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.store == nil {
		s.writeErrorResponse(w, "Submission persistence is not configured", http.StatusServiceUnavailable)
		return
	}

	status := store.Status(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		s.writeErrorResponse(w, "Unknown status filter: "+string(status), http.StatusBadRequest)
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeErrorResponse(w, "Invalid limit: "+raw, http.StatusBadRequest)
			return
		}
		limit = n
	}

	subs, err := s.store.Submissions(r.Context(), status, limit)
	if err != nil {
		slog.Error("Failed to list submissions", "error", err)
		s.writeErrorResponse(w, "Failed to list submissions", http.StatusInternalServerError)
		return
	}
	if subs == nil {
		subs = []store.Submission{}
	}

	response := SubmissionsResponse{Submissions: subs, Count: len(subs)}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode submissions response", "error", err)
	}
}

// submissionHandler dispatches /submissions/{id} and
// /submissions/{id}/review.
func (s *Server) submissionHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeErrorResponse(w, "Submission persistence is not configured", http.StatusServiceUnavailable)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/submissions/")
	if strings.HasSuffix(rest, "/review") {
		s.reviewSubmission(w, r, strings.TrimSuffix(rest, "/review"))
		return
	}
	s.getSubmission(w, r, rest)
}

// getSubmission returns one submission by ID.
func (s *Server) getSubmission(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if id == "" || strings.Contains(id, "/") {
		s.writeErrorResponse(w, "Invalid submission ID", http.StatusBadRequest)
		return
	}

	sub, err := s.store.Submission(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeErrorResponse(w, "Submission not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to load submission", "id", id, "error", err)
		s.writeErrorResponse(w, "Failed to load submission", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sub); err != nil {
		slog.Error("Failed to encode submission response", "error", err)
	}
}

// reviewSubmission resolves a pending submission from a reviewer decision.
func (s *Server) reviewSubmission(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if id == "" || strings.Contains(id, "/") {
		s.writeErrorResponse(w, "Invalid submission ID", http.StatusBadRequest)
		return
	}

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, "Failed to parse review request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Reviewer) == "" {
		s.writeErrorResponse(w, "Reviewer is required", http.StatusBadRequest)
		return
	}

	sub, err := s.store.Review(r.Context(), id, req.Approve, req.Reviewer, req.Note)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeErrorResponse(w, "Submission not found", http.StatusNotFound)
		return
	case errors.Is(err, store.ErrNotReviewable):
		s.writeErrorResponse(w, "Submission is not pending review", http.StatusConflict)
		return
	case err != nil:
		slog.Error("Failed to review submission", "id", id, "error", err)
		s.writeErrorResponse(w, "Failed to review submission", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sub); err != nil {
		slog.Error("Failed to encode review response", "error", err)
	}
}

// reportHandler renders a student's verified achievements as a PDF.
func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.store == nil {
		s.writeErrorResponse(w, "Submission persistence is not configured", http.StatusServiceUnavailable)
		return
	}

	rollNumber := strings.TrimPrefix(r.URL.Path, "/reports/")
	if rollNumber == "" || strings.Contains(rollNumber, "/") {
		s.writeErrorResponse(w, "Invalid roll number", http.StatusBadRequest)
		return
	}

	subs, err := s.store.VerifiedByRoll(r.Context(), rollNumber)
	if err != nil {
		slog.Error("Failed to list verified submissions", "roll_number", rollNumber, "error", err)
		s.writeErrorResponse(w, "Failed to load verified submissions", http.StatusInternalServerError)
		return
	}
	if len(subs) == 0 {
		s.writeErrorResponse(w, "No verified achievements for roll number "+rollNumber, http.StatusNotFound)
		return
	}

	// The profile fills the student name from the submissions themselves.
	profile := report.ProfileFromSubmissions("", rollNumber, subs)
	pdf, err := report.Render(profile)
	if err != nil {
		slog.Error("Failed to render report", "roll_number", rollNumber, "error", err)
		s.writeErrorResponse(w, "Failed to render report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "achievements-"+rollNumber+".pdf"))
	if _, err := w.Write(pdf); err != nil {
		slog.Error("Failed to write report response", "error", err)
	}
}

// readVerifyRequest parses the multipart verification form. On failure it
// writes the error response and reports false.
func (s *Server) readVerifyRequest(w http.ResponseWriter, r *http.Request) (pipeline.Request, bool) {
	maxBytes := int64(s.config.MaxUploadMB) * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		// Distinguish body-too-large from generic parse errors
		if strings.Contains(strings.ToLower(err.Error()), "body too large") {
			s.writeErrorResponse(w, "Document too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return pipeline.Request{}, false
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		s.writeErrorResponse(w, "No document file provided", http.StatusBadRequest)
		return pipeline.Request{}, false
	}
	defer func() { _ = file.Close() }()

	if header.Size > maxBytes {
		s.writeErrorResponse(w, "Document too large", http.StatusRequestEntityTooLarge)
		return pipeline.Request{}, false
	}

	document, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read document data", http.StatusInternalServerError)
		return pipeline.Request{}, false
	}
	uploadSizeBytes.Observe(float64(len(document)))

	req, err := requestFromForm(r, document)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return pipeline.Request{}, false
	}
	return req, true
}

// requestFromForm builds a verification request from the parsed form fields.
func requestFromForm(r *http.Request, document []byte) (pipeline.Request, error) {
	kind, err := classify.ParseKind(r.FormValue("kind"))
	if err != nil {
		return pipeline.Request{}, err
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		return pipeline.Request{}, errors.New("student name is required")
	}

	return pipeline.Request{
		RawDocument: document,
		Kind:        kind,
		Name:        name,
		RollNumber:  strings.TrimSpace(r.FormValue("roll_no")),
		Skill:       strings.TrimSpace(r.FormValue("skill")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}, nil
}

// runVerification resolves the outcome for a request and maps pipeline
// errors onto HTTP status codes. On failure it writes the error response and
// reports false.
func (s *Server) runVerification(w http.ResponseWriter, r *http.Request, req pipeline.Request) (*pipeline.Outcome, bool) {
	outcome, err := s.resolveOutcome(r.Context(), "http", req)
	if err != nil {
		var unavailable *capability.ModelUnavailableError
		if errors.As(err, &unavailable) {
			s.writeErrorResponse(w, fmt.Sprintf("Verification capability unavailable: %v", err), http.StatusServiceUnavailable)
			return nil, false
		}
		s.writeErrorResponse(w, fmt.Sprintf("Verification failed: %v", err), http.StatusInternalServerError)
		return nil, false
	}
	return outcome, true
}

// resolveOutcome consults the outcome cache before running the verification
// pipeline and stores fresh outcomes afterwards.
func (s *Server) resolveOutcome(ctx context.Context, source string, req pipeline.Request) (*pipeline.Outcome, error) {
	if s.cache != nil {
		if outcome, ok := s.cache.Get(ctx, req); ok {
			cacheEventsTotal.WithLabelValues("hit").Inc()
			return outcome, nil
		}
		cacheEventsTotal.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	outcome, err := s.verifier.Verify(ctx, req)
	if err != nil {
		verificationsTotal.WithLabelValues(source, "error").Inc()
		return nil, err
	}

	verificationsTotal.WithLabelValues(source, "success").Inc()
	verificationDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	verificationDecisions.WithLabelValues(string(req.Kind), string(outcome.Decision)).Inc()
	verificationConfidence.WithLabelValues(string(req.Kind)).Observe(outcome.Scores.Overall)

	if s.cache != nil {
		s.cache.Put(ctx, req, outcome)
	}
	return outcome, nil
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Success: false, Error: message}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}
