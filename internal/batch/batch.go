// Package batch verifies sets of documents described by a CSV manifest,
// fanning the work out across a pool of workers.
package batch

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/veridoc-io/veridoc/internal/pipeline"
)

// verifier is the part of the verification pipeline batch runs need.
type verifier interface {
	Verify(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error)
}

type entryJob struct {
	index int
	entry Entry
}

type entryResult struct {
	index   int
	outcome *pipeline.Outcome
	err     error
}

// Run verifies every manifest entry using cfg.Workers concurrent workers.
// Results keep manifest order regardless of completion order. With
// ContinueOnError unset the first failure cancels the remaining work and is
// returned alongside the partial result; entries never reached have neither
// an outcome nor an error.
func Run(ctx context.Context, v verifier, entries []Entry, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no manifest entries to verify")
	}

	workers := cfg.Workers
	if workers > len(entries) {
		workers = len(entries)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()

	jobs := make(chan entryJob, len(entries))
	results := make(chan entryResult, len(entries))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				outcome, err := processEntry(runCtx, v, job.entry)
				select {
				case results <- entryResult{index: job.index, outcome: outcome, err: err}:
				case <-runCtx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, entry := range entries {
			select {
			case jobs <- entryJob{index: i, entry: entry}:
			case <-runCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	result := &Result{
		Entries:     entries,
		Outcomes:    make([]*pipeline.Outcome, len(entries)),
		Errors:      make([]error, len(entries)),
		WorkerCount: workers,
	}

	// The first failure in completion order drives fail-fast cancellation;
	// already-running workers still report their results afterwards.
	var firstErr error
	firstIndex := -1
	for res := range results {
		result.Outcomes[res.index] = res.outcome
		result.Errors[res.index] = res.err
		if res.err != nil && !cfg.ContinueOnError && firstErr == nil {
			firstErr = res.err
			firstIndex = res.index
			cancel()
		}
	}

	result.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if firstErr != nil {
		return result, fmt.Errorf("manifest entry %d: %w", firstIndex+1, firstErr)
	}
	return result, nil
}

func processEntry(ctx context.Context, v verifier, entry Entry) (*pipeline.Outcome, error) {
	document, err := os.ReadFile(entry.File) //nolint:gosec // G304: document paths come from the manifest
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", entry.File, err)
	}

	outcome, err := v.Verify(ctx, pipeline.Request{
		RawDocument: document,
		Kind:        entry.Kind,
		Name:        entry.Name,
		RollNumber:  entry.RollNumber,
		Skill:       entry.Skill,
		Description: entry.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", entry.File, err)
	}
	return outcome, nil
}
