package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridoc-io/veridoc/internal/classify"
	"github.com/veridoc-io/veridoc/internal/pipeline"
	"github.com/veridoc-io/veridoc/internal/scoring"
)

// stubVerifier returns canned outcomes. Workers call Verify concurrently,
// so the call counter is guarded.
type stubVerifier struct {
	mu     sync.Mutex
	calls  int
	verify func(req pipeline.Request) (*pipeline.Outcome, error)
}

func (s *stubVerifier) Verify(_ context.Context, req pipeline.Request) (*pipeline.Outcome, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.verify != nil {
		return s.verify(req)
	}
	return &pipeline.Outcome{
		IsValid:  true,
		Decision: scoring.DecisionAutoApprove,
		Scores:   scoring.Scores{Overall: 0.9},
		Message:  "verified " + req.Name,
	}, nil
}

func (s *stubVerifier) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// writeTestDocuments creates one document file per student and returns the
// matching manifest entries.
func writeTestDocuments(t *testing.T, names ...string) []Entry {
	t.Helper()
	dir := t.TempDir()

	entries := make([]Entry, len(names))
	for i, name := range names {
		path := filepath.Join(dir, fmt.Sprintf("doc%d.png", i))
		require.NoError(t, os.WriteFile(path, []byte("document for "+name), 0o600))
		entries[i] = Entry{
			File:       path,
			Kind:       classify.KindCollegeID,
			Name:       name,
			RollNumber: fmt.Sprintf("21CS%03d", i+1),
		}
	}
	return entries
}

func TestRun_VerifiesAllEntries(t *testing.T) {
	entries := writeTestDocuments(t, "Asha Patel", "Rahul Verma", "Priya Sharma", "Aman Gupta", "Neha Singh")
	stub := &stubVerifier{}

	result, err := Run(context.Background(), stub, entries, Config{Workers: 2})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 5, stub.callCount())
	assert.Equal(t, 2, result.WorkerCount)
	assert.Greater(t, result.Duration, time.Duration(0))

	// Outcomes keep manifest order even though workers finish out of order.
	require.Len(t, result.Outcomes, 5)
	for i, entry := range entries {
		require.NotNil(t, result.Outcomes[i], "outcome for %s", entry.File)
		assert.Equal(t, "verified "+entry.Name, result.Outcomes[i].Message)
		assert.NoError(t, result.Errors[i])
	}
}

func TestRun_WorkerCountCappedAtEntries(t *testing.T) {
	entries := writeTestDocuments(t, "Asha Patel", "Rahul Verma")
	stub := &stubVerifier{}

	result, err := Run(context.Background(), stub, entries, Config{Workers: 8, ContinueOnError: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.WorkerCount)
}

func TestRun_ContinueOnErrorReportsPerEntry(t *testing.T) {
	entries := writeTestDocuments(t, "Asha Patel", "Rahul Verma", "Priya Sharma")
	entries[1].File = filepath.Join(t.TempDir(), "absent.png")
	stub := &stubVerifier{}

	result, err := Run(context.Background(), stub, entries, Config{Workers: 2, ContinueOnError: true})
	require.NoError(t, err)

	assert.NotNil(t, result.Outcomes[0])
	assert.Nil(t, result.Outcomes[1])
	require.Error(t, result.Errors[1])
	assert.Contains(t, result.Errors[1].Error(), "read document")
	assert.NotNil(t, result.Outcomes[2])
}

func TestRun_VerifierFailureNamesFile(t *testing.T) {
	entries := writeTestDocuments(t, "Asha Patel", "Rahul Verma")
	stub := &stubVerifier{verify: func(req pipeline.Request) (*pipeline.Outcome, error) {
		if req.Name == "Rahul Verma" {
			return nil, errors.New("caption model offline")
		}
		return &pipeline.Outcome{IsValid: true, Decision: scoring.DecisionAutoApprove, Message: "ok"}, nil
	}}

	result, err := Run(context.Background(), stub, entries, Config{Workers: 1, ContinueOnError: true})
	require.NoError(t, err)

	require.Error(t, result.Errors[1])
	assert.Contains(t, result.Errors[1].Error(), entries[1].File)
	assert.Contains(t, result.Errors[1].Error(), "caption model offline")
}

func TestRun_FailFastStopsOnFirstError(t *testing.T) {
	entries := writeTestDocuments(t, "Asha Patel", "Rahul Verma", "Priya Sharma", "Aman Gupta")
	stub := &stubVerifier{verify: func(pipeline.Request) (*pipeline.Outcome, error) {
		return nil, errors.New("extractor offline")
	}}

	result, err := Run(context.Background(), stub, entries, Config{Workers: 2})
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Contains(t, err.Error(), "manifest entry")
	assert.Contains(t, err.Error(), "extractor offline")
}

func TestRun_CanceledContext(t *testing.T) {
	entries := writeTestDocuments(t, "Asha Patel", "Rahul Verma")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, &stubVerifier{}, entries, Config{Workers: 2, ContinueOnError: true})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_NoEntries(t *testing.T) {
	_, err := Run(context.Background(), &stubVerifier{}, nil, DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no manifest entries")
}

func TestRun_InvalidWorkerCount(t *testing.T) {
	entries := []Entry{{File: "docs/id.png", Kind: classify.KindCollegeID, Name: "Asha Patel"}}

	_, err := Run(context.Background(), &stubVerifier{}, entries, Config{Workers: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid worker count")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 4, cfg.Workers)
	assert.False(t, cfg.ContinueOnError)
	require.NoError(t, cfg.Validate())
}
