package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/veridoc-io/veridoc/internal/capability"
	"github.com/veridoc-io/veridoc/internal/classify"
	"github.com/veridoc-io/veridoc/internal/docfile"
	"github.com/veridoc-io/veridoc/internal/extract"
	"github.com/veridoc-io/veridoc/internal/match"
	"github.com/veridoc-io/veridoc/internal/normalize"
	"github.com/veridoc-io/veridoc/internal/scoring"
)

// Verify runs the full pipeline for one request. Undecodable document bytes
// resolve to a successful AUTO_REJECT outcome; only infrastructure failure
// surfaces as an error, wrapped in *StageError naming the failed stage.
func (p *Pipeline) Verify(ctx context.Context, req Request) (*Outcome, error) {
	if p == nil || p.normalizer == nil {
		return nil, errors.New("pipeline not initialized")
	}

	totalStart := time.Now()
	slog.Debug("Starting verification",
		"kind", req.Kind,
		"document_bytes", len(req.RawDocument),
		"pdf", docfile.IsPDF(req.RawDocument))

	raw, err := docfile.Prepare(req.RawDocument)
	if err != nil {
		var decodeErr *normalize.DecodeError
		if errors.As(err, &decodeErr) {
			slog.Debug("Document not readable, rejecting", "error", err)
			return rejectOutcome("uploaded document could not be read as an image"), nil
		}
		return nil, &StageError{Stage: StageIntake, Err: err}
	}

	img, err := p.normalizer.Normalize(raw)
	if err != nil {
		var decodeErr *normalize.DecodeError
		if errors.As(err, &decodeErr) {
			slog.Debug("Document not decodable, rejecting", "error", err)
			return rejectOutcome("uploaded document could not be read as an image"), nil
		}
		return nil, &StageError{Stage: StageNormalize, Err: err}
	}
	slog.Debug("Document normalized", "width", img.Width, "height", img.Height)

	verdict, text, err := p.analyze(ctx, img, req.Kind)
	if err != nil {
		return nil, err
	}
	slog.Debug("Document analyzed",
		"caption_ratio", verdict.Ratio,
		"plausible", verdict.Plausible,
		"ocr_regions", text.Regions,
		"ocr_confidence", text.Confidence)

	matches := match.Match(text.Full, req.fields())
	scores := p.engine.Aggregate(verdict, matches, text)
	decision, isValid, message := p.engine.Decide(scores)

	slog.Debug("Verification completed",
		"decision", decision,
		"overall", scores.Overall,
		"duration_ms", time.Since(totalStart).Milliseconds())

	return &Outcome{
		IsValid:  isValid,
		Decision: decision,
		Scores:   scores,
		Message:  message,
	}, nil
}

// analyze runs classification and extraction concurrently and joins before
// returning. Classification failure is reported first when both stages fail.
func (p *Pipeline) analyze(ctx context.Context, img *normalize.Image, kind classify.Kind) (classify.Verdict, extract.Text, error) {
	var (
		verdict     classify.Verdict
		classifyErr error
		text        extract.Text
		extractErr  error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		verdict, classifyErr = p.classifier.Classify(ctx, img, kind)
	}()
	go func() {
		defer wg.Done()
		text, extractErr = p.extractor.Extract(ctx, img)
	}()
	wg.Wait()

	if classifyErr != nil {
		return verdict, text, &StageError{Stage: capability.StageClassification, Err: classifyErr}
	}
	if extractErr != nil {
		return verdict, text, &StageError{Stage: capability.StageExtraction, Err: extractErr}
	}
	return verdict, text, nil
}

func rejectOutcome(message string) *Outcome {
	return &Outcome{
		IsValid:  false,
		Decision: scoring.DecisionAutoReject,
		Message:  message,
	}
}
