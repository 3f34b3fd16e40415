package capability

import (
	"context"
	"errors"
	"time"

	"github.com/veridoc-io/veridoc/internal/normalize"
)

// GateCaptioner wraps a Captioner so every call holds a gate slot and runs
// under the per-call timeout. A deadline hit while queued or in flight is
// reported as *ModelUnavailableError; caller cancellation passes through.
func GateCaptioner(inner Captioner, gate *Gate, timeout time.Duration) Captioner {
	return &gatedCaptioner{inner: inner, gate: gate, timeout: timeout}
}

// GateExtractor wraps a TextExtractor the same way.
func GateExtractor(inner TextExtractor, gate *Gate, timeout time.Duration) TextExtractor {
	return &gatedExtractor{inner: inner, gate: gate, timeout: timeout}
}

type gatedCaptioner struct {
	inner   Captioner
	gate    *Gate
	timeout time.Duration
}

func (g *gatedCaptioner) Caption(ctx context.Context, img *normalize.Image, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.gate.Acquire(ctx); err != nil {
		return "", classifyCallError(StageClassification, err)
	}
	defer g.gate.Release()

	caption, err := g.inner.Caption(ctx, img, prompt)
	if err != nil {
		return "", classifyCallError(StageClassification, err)
	}
	return caption, nil
}

type gatedExtractor struct {
	inner   TextExtractor
	gate    *Gate
	timeout time.Duration
}

func (g *gatedExtractor) ExtractRegions(ctx context.Context, img *normalize.Image) ([]Region, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.gate.Acquire(ctx); err != nil {
		return nil, classifyCallError(StageExtraction, err)
	}
	defer g.gate.Release()

	regions, err := g.inner.ExtractRegions(ctx, img)
	if err != nil {
		return nil, classifyCallError(StageExtraction, err)
	}
	return regions, nil
}

// classifyCallError maps call failures onto the error taxonomy. Timeouts and
// backend failures become *ModelUnavailableError for the stage; caller
// cancellation stays a plain context error.
func classifyCallError(stage string, err error) error {
	var unavailable *ModelUnavailableError
	if errors.As(err, &unavailable) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &ModelUnavailableError{Stage: stage, Err: err}
}
