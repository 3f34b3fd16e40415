package batch

import (
	"fmt"
	"os"
	"time"

	"github.com/veridoc-io/veridoc/internal/pipeline"
	"github.com/veridoc-io/veridoc/internal/scoring"
)

// Config holds batch verification settings.
type Config struct {
	// Workers is the number of documents verified concurrently.
	Workers int

	// ContinueOnError keeps the run going after individual documents fail;
	// failures are reported per entry instead of aborting the batch.
	ContinueOnError bool
}

// DefaultConfig returns sensible defaults for batch verification.
func DefaultConfig() Config {
	return Config{
		Workers:         4,
		ContinueOnError: false,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("invalid worker count %d (must be positive)", c.Workers)
	}
	return nil
}

// Result holds the outcome of a batch run. Outcomes and Errors are indexed
// by manifest order; an entry has either an outcome or an error, never both.
type Result struct {
	Entries  []Entry
	Outcomes []*pipeline.Outcome
	Errors   []error

	Duration    time.Duration
	WorkerCount int
}

// Stats summarizes a batch run.
type Stats struct {
	TotalDocuments   int            `json:"total_documents"`
	Verified         int            `json:"verified"`
	Failed           int            `json:"failed"`
	Decisions        map[string]int `json:"decisions"`
	WorkerCount      int            `json:"worker_count"`
	TotalDuration    time.Duration  `json:"total_duration_ns"`
	AveragePerDoc    time.Duration  `json:"average_per_document_ns"`
	ThroughputPerSec float64        `json:"throughput_per_sec"`
}

// Stats calculates summary statistics for the run.
func (r *Result) Stats() Stats {
	stats := Stats{
		TotalDocuments: len(r.Entries),
		Decisions:      make(map[string]int),
		WorkerCount:    r.WorkerCount,
		TotalDuration:  r.Duration,
	}

	for i := range r.Entries {
		if r.Outcomes[i] != nil {
			stats.Verified++
			stats.Decisions[string(r.Outcomes[i].Decision)]++
		} else {
			stats.Failed++
		}
	}

	if stats.Verified > 0 {
		stats.AveragePerDoc = r.Duration / time.Duration(stats.Verified)
		stats.ThroughputPerSec = float64(stats.Verified) / r.Duration.Seconds()
	}

	return stats
}

// FormatResults formats the batch verification results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r, format)
}

// SaveResults saves the formatted results to a file or stdout.
func (r *Result) SaveResults(format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(os.Stdout, "Results written to %s\n", outputFile)
		}
	} else {
		_, _ = fmt.Fprint(os.Stdout, output)
	}

	return nil
}

// PrintStats prints verification statistics.
func (r *Result) PrintStats(quiet bool) {
	if quiet {
		return
	}
	stats := r.Stats()
	_, _ = fmt.Fprintf(os.Stdout, "\nVerification Statistics:\n")
	_, _ = fmt.Fprintf(os.Stdout, "  Total documents: %d\n", stats.TotalDocuments)
	_, _ = fmt.Fprintf(os.Stdout, "  Verified: %d\n", stats.Verified)
	_, _ = fmt.Fprintf(os.Stdout, "  Failed: %d\n", stats.Failed)
	for _, decision := range []scoring.Decision{
		scoring.DecisionAutoApprove,
		scoring.DecisionNeedsReview,
		scoring.DecisionAutoReject,
	} {
		if n := stats.Decisions[string(decision)]; n > 0 {
			_, _ = fmt.Fprintf(os.Stdout, "  %s: %d\n", decision, n)
		}
	}
	_, _ = fmt.Fprintf(os.Stdout, "  Workers: %d\n", stats.WorkerCount)
	_, _ = fmt.Fprintf(os.Stdout, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(os.Stdout, "  Avg per document: %v\n", stats.AveragePerDoc.Round(time.Millisecond))
	_, _ = fmt.Fprintf(os.Stdout, "  Throughput: %.1f documents/sec\n", stats.ThroughputPerSec)
}
