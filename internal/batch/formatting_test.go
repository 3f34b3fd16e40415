package batch

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridoc-io/veridoc/internal/classify"
	"github.com/veridoc-io/veridoc/internal/pipeline"
	"github.com/veridoc-io/veridoc/internal/scoring"
)

func sampleResult() *Result {
	return &Result{
		Entries: []Entry{
			{File: "docs/id1.png", Kind: classify.KindCollegeID, Name: "Priya Sharma", RollNumber: "21CS045"},
			{File: "docs/cert1.png", Kind: classify.KindCertificate, Name: "Rahul Verma", Skill: "Python"},
		},
		Outcomes: []*pipeline.Outcome{
			{
				IsValid:  true,
				Decision: scoring.DecisionAutoApprove,
				Scores:   scoring.Scores{Overall: 0.92},
				Message:  "document verified automatically",
			},
			nil,
		},
		Errors: []error{
			nil,
			errors.New("read document docs/cert1.png: no such file"),
		},
		Duration:    2 * time.Second,
		WorkerCount: 2,
	}
}

func TestFormatResults_JSON(t *testing.T) {
	output, err := sampleResult().FormatResults("json")
	require.NoError(t, err)

	var decoded struct {
		Documents []struct {
			File    string          `json:"file"`
			Outcome json.RawMessage `json:"outcome"`
			Error   string          `json:"error"`
		} `json:"documents"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &decoded))
	require.Len(t, decoded.Documents, 2)

	assert.Equal(t, "docs/id1.png", decoded.Documents[0].File)
	assert.Contains(t, string(decoded.Documents[0].Outcome), "AUTO_APPROVE")
	assert.Empty(t, decoded.Documents[0].Error)

	assert.Equal(t, "docs/cert1.png", decoded.Documents[1].File)
	assert.Equal(t, "null", string(decoded.Documents[1].Outcome))
	assert.Contains(t, decoded.Documents[1].Error, "no such file")
}

func TestFormatResults_CSV(t *testing.T) {
	output, err := sampleResult().FormatResults("csv")
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(output)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{
		"file", "kind", "name", "decision", "overall_confidence", "is_valid", "message", "error",
	}, records[0])
	assert.Equal(t, []string{
		"docs/id1.png", "COLLEGE_ID", "Priya Sharma", "AUTO_APPROVE", "0.920", "true",
		"document verified automatically", "",
	}, records[1])
	assert.Equal(t, "docs/cert1.png", records[2][0])
	assert.Empty(t, records[2][3])
	assert.Contains(t, records[2][7], "no such file")
}

func TestFormatResults_Text(t *testing.T) {
	output, err := sampleResult().FormatResults("text")
	require.NoError(t, err)

	assert.Contains(t, output, "# docs/id1.png\n")
	assert.Contains(t, output, "decision: AUTO_APPROVE (confidence 0.920)")
	assert.Contains(t, output, "message: document verified automatically")
	assert.Contains(t, output, "# docs/cert1.png\n")
	assert.Contains(t, output, "error: read document")
}

func TestFormatResults_DefaultsToText(t *testing.T) {
	asDefault, err := sampleResult().FormatResults("")
	require.NoError(t, err)
	asText, err := sampleResult().FormatResults("text")
	require.NoError(t, err)
	assert.Equal(t, asText, asDefault)
}

func TestSaveResults_WritesFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "results.json")

	require.NoError(t, sampleResult().SaveResults("json", outputFile, true))

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"file": "docs/id1.png"`)
}

func TestResultStats(t *testing.T) {
	result := &Result{
		Entries: make([]Entry, 3),
		Outcomes: []*pipeline.Outcome{
			{Decision: scoring.DecisionAutoApprove},
			{Decision: scoring.DecisionNeedsReview},
			nil,
		},
		Errors:      []error{nil, nil, errors.New("boom")},
		Duration:    2 * time.Second,
		WorkerCount: 2,
	}

	stats := result.Stats()
	assert.Equal(t, 3, stats.TotalDocuments)
	assert.Equal(t, 2, stats.Verified)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Decisions["AUTO_APPROVE"])
	assert.Equal(t, 1, stats.Decisions["NEEDS_REVIEW"])
	assert.Equal(t, 2, stats.WorkerCount)
	assert.Equal(t, time.Second, stats.AveragePerDoc)
	assert.InDelta(t, 1.0, stats.ThroughputPerSec, 0.001)
}

func TestResultStats_EmptyRun(t *testing.T) {
	result := &Result{Duration: time.Second, WorkerCount: 1}

	stats := result.Stats()
	assert.Zero(t, stats.TotalDocuments)
	assert.Zero(t, stats.Verified)
	assert.Zero(t, stats.AveragePerDoc)
	assert.Zero(t, stats.ThroughputPerSec)
}
