package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridoc-io/veridoc/internal/capability"
	"github.com/veridoc-io/veridoc/internal/classify"
	"github.com/veridoc-io/veridoc/internal/normalize"
	"github.com/veridoc-io/veridoc/internal/scoring"
)

func documentPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// rowRegions lays words out left to right on a single text row.
func rowRegions(conf float64, words ...string) []capability.Region {
	regions := make([]capability.Region, len(words))
	for i, w := range words {
		regions[i] = capability.Region{
			Text:       w,
			Confidence: conf,
			Box:        capability.Box{X: i * 100, Y: 10, W: 90, H: 20},
		}
	}
	return regions
}

type fakeCaptioner struct {
	caption string
	err     error
	calls   atomic.Int32
}

func (f *fakeCaptioner) Caption(_ context.Context, _ *normalize.Image, _ string) (string, error) {
	f.calls.Add(1)
	return f.caption, f.err
}

type fakeOCR struct {
	regions []capability.Region
	err     error
	calls   atomic.Int32
}

func (f *fakeOCR) ExtractRegions(_ context.Context, _ *normalize.Image) ([]capability.Region, error) {
	f.calls.Add(1)
	return f.regions, f.err
}

func newTestPipeline(t *testing.T, captioner capability.Captioner, ocr capability.TextExtractor) *Pipeline {
	t.Helper()
	p, err := NewBuilder().WithCaptioner(captioner).WithTextExtractor(ocr).Build()
	require.NoError(t, err)
	return p
}

func TestVerify_ApprovesMatchingCertificate(t *testing.T) {
	captioner := &fakeCaptioner{caption: "yes, this certificate is an award"}
	ocr := &fakeOCR{regions: rowRegions(0.98,
		"certificate", "of", "completion", "awarded", "to",
		"john", "michael", "doe", "python", "programming", "tech", "institute")}
	p := newTestPipeline(t, captioner, ocr)

	outcome, err := p.Verify(context.Background(), Request{
		RawDocument: documentPNG(t),
		Kind:        classify.KindCertificate,
		Name:        "John Michael Doe",
		Skill:       "Python",
		Description: "Tech Institute - Python Programming",
	})
	require.NoError(t, err)

	assert.True(t, outcome.IsValid)
	assert.Equal(t, scoring.DecisionAutoApprove, outcome.Decision)
	assert.InDelta(t, 0.996, outcome.Scores.Overall, 1e-9)

	for _, component := range []scoring.Component{
		scoring.ComponentImageType,
		scoring.ComponentNameMatch,
		scoring.ComponentInstitution,
		scoring.ComponentSkill,
	} {
		got, ok := outcome.Scores.Component(component)
		require.True(t, ok, "component %s missing", component)
		assert.InDelta(t, 1.0, got, 1e-9)
	}
	_, ok := outcome.Scores.Component(scoring.ComponentRollMatch)
	assert.False(t, ok, "certificates must not score a roll number")
}

func TestVerify_ApprovesMatchingCollegeID(t *testing.T) {
	captioner := &fakeCaptioner{caption: "yes this is a student id card"}
	ocr := &fakeOCR{regions: rowRegions(0.9,
		"student", "id", "card", "john", "doe", "roll", "no", "cs101")}
	p := newTestPipeline(t, captioner, ocr)

	outcome, err := p.Verify(context.Background(), Request{
		RawDocument: documentPNG(t),
		Kind:        classify.KindCollegeID,
		Name:        "John Doe",
		RollNumber:  "CS-101",
	})
	require.NoError(t, err)

	assert.True(t, outcome.IsValid)
	assert.Equal(t, scoring.DecisionAutoApprove, outcome.Decision)
	assert.InDelta(t, 0.975, outcome.Scores.Overall, 1e-9)

	roll, ok := outcome.Scores.Component(scoring.ComponentRollMatch)
	require.True(t, ok)
	assert.InDelta(t, 1.0, roll, 1e-9)

	_, ok = outcome.Scores.Component(scoring.ComponentInstitution)
	assert.False(t, ok, "id cards must not score an institution")
	_, ok = outcome.Scores.Component(scoring.ComponentSkill)
	assert.False(t, ok, "id cards must not score a skill")
}

func TestVerify_MismatchedDocumentAutoRejects(t *testing.T) {
	captioner := &fakeCaptioner{caption: "this shows a cat"}
	ocr := &fakeOCR{regions: rowRegions(0.9, "fluffy", "cat", "on", "mat")}
	p := newTestPipeline(t, captioner, ocr)

	outcome, err := p.Verify(context.Background(), Request{
		RawDocument: documentPNG(t),
		Kind:        classify.KindCertificate,
		Name:        "John Doe",
		Description: "Tech Institute - Python",
	})
	require.NoError(t, err)

	assert.False(t, outcome.IsValid)
	assert.Equal(t, scoring.DecisionAutoReject, outcome.Decision)
	assert.InDelta(t, 0.18, outcome.Scores.Overall, 1e-9)
}

func TestVerify_BlankDocumentAutoRejects(t *testing.T) {
	captioner := &fakeCaptioner{caption: "a blank white surface"}
	ocr := &fakeOCR{}
	p := newTestPipeline(t, captioner, ocr)

	outcome, err := p.Verify(context.Background(), Request{
		RawDocument: documentPNG(t),
		Kind:        classify.KindCertificate,
		Name:        "John Doe",
	})
	require.NoError(t, err)

	assert.False(t, outcome.IsValid)
	assert.Equal(t, scoring.DecisionAutoReject, outcome.Decision)
	assert.Zero(t, outcome.Scores.Overall)

	clarity, ok := outcome.Scores.Component(scoring.ComponentOCR)
	require.True(t, ok, "extraction ran, so its zero confidence stays present")
	assert.Zero(t, clarity)
}

func TestVerify_MidConfidenceNeedsReview(t *testing.T) {
	captioner := &fakeCaptioner{caption: "certificate"}
	ocr := &fakeOCR{regions: rowRegions(0.95, "john", "doe", "enrolled")}
	p := newTestPipeline(t, captioner, ocr)

	outcome, err := p.Verify(context.Background(), Request{
		RawDocument: documentPNG(t),
		Kind:        classify.KindCertificate,
		Name:        "John Doe",
	})
	require.NoError(t, err)

	assert.False(t, outcome.IsValid)
	assert.Equal(t, scoring.DecisionNeedsReview, outcome.Decision)
	want := (1.0/3.0 + 1.0 + 0.95) / 3.0
	assert.InDelta(t, want, outcome.Scores.Overall, 1e-9)
}

func TestVerify_UnreadableDocumentRejectsWithoutError(t *testing.T) {
	captioner := &fakeCaptioner{caption: "yes certificate award"}
	ocr := &fakeOCR{}
	p := newTestPipeline(t, captioner, ocr)

	outcome, err := p.Verify(context.Background(), Request{
		RawDocument: []byte("definitely not an image"),
		Kind:        classify.KindCertificate,
		Name:        "John Doe",
	})
	require.NoError(t, err, "bad uploads reject, they do not fail")

	assert.False(t, outcome.IsValid)
	assert.Equal(t, scoring.DecisionAutoReject, outcome.Decision)
	assert.Contains(t, outcome.Message, "could not be read")
	assert.Zero(t, outcome.Scores.Overall)
	assert.Empty(t, outcome.Scores.Components)

	assert.Zero(t, captioner.calls.Load(), "capabilities must not run for unreadable documents")
	assert.Zero(t, ocr.calls.Load())
}

func TestVerify_CorruptPDFRejectsWithoutError(t *testing.T) {
	p := newTestPipeline(t, &fakeCaptioner{caption: "yes"}, &fakeOCR{})

	outcome, err := p.Verify(context.Background(), Request{
		RawDocument: []byte("%PDF-1.4 but nothing else of substance"),
		Kind:        classify.KindCertificate,
		Name:        "John Doe",
	})
	require.NoError(t, err)

	assert.False(t, outcome.IsValid)
	assert.Equal(t, scoring.DecisionAutoReject, outcome.Decision)
}

func TestVerify_CaptionFailurePropagatesStage(t *testing.T) {
	captioner := &fakeCaptioner{err: &capability.ModelUnavailableError{
		Stage: capability.StageClassification,
		Err:   errors.New("backend down"),
	}}
	ocr := &fakeOCR{regions: rowRegions(0.9, "john")}
	p := newTestPipeline(t, captioner, ocr)

	outcome, err := p.Verify(context.Background(), Request{
		RawDocument: documentPNG(t),
		Kind:        classify.KindCertificate,
		Name:        "John Doe",
	})
	require.Error(t, err)
	assert.Nil(t, outcome)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, capability.StageClassification, stageErr.Stage)

	var unavailable *capability.ModelUnavailableError
	assert.True(t, errors.As(err, &unavailable), "cause must stay reachable")
}

func TestVerify_OCRFailurePropagatesStage(t *testing.T) {
	captioner := &fakeCaptioner{caption: "yes certificate award"}
	ocr := &fakeOCR{err: &capability.ModelUnavailableError{
		Stage: capability.StageExtraction,
		Err:   errors.New("backend down"),
	}}
	p := newTestPipeline(t, captioner, ocr)

	_, err := p.Verify(context.Background(), Request{
		RawDocument: documentPNG(t),
		Kind:        classify.KindCertificate,
		Name:        "John Doe",
	})
	require.Error(t, err)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, capability.StageExtraction, stageErr.Stage)
}

// handshakeCaptioner and handshakeOCR each signal their own start and wait for
// the peer. Verification only completes when the two stages run concurrently.
type handshakeCaptioner struct {
	started chan struct{}
	peer    chan struct{}
}

func (h *handshakeCaptioner) Caption(ctx context.Context, _ *normalize.Image, _ string) (string, error) {
	close(h.started)
	select {
	case <-h.peer:
		return "yes certificate award", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type handshakeOCR struct {
	started chan struct{}
	peer    chan struct{}
}

func (h *handshakeOCR) ExtractRegions(ctx context.Context, _ *normalize.Image) ([]capability.Region, error) {
	close(h.started)
	select {
	case <-h.peer:
		return rowRegions(0.9, "john", "doe"), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestVerify_ClassificationAndExtractionRunConcurrently(t *testing.T) {
	captionStarted := make(chan struct{})
	ocrStarted := make(chan struct{})
	captioner := &handshakeCaptioner{started: captionStarted, peer: ocrStarted}
	ocr := &handshakeOCR{started: ocrStarted, peer: captionStarted}
	p := newTestPipeline(t, captioner, ocr)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	outcome, err := p.Verify(ctx, Request{
		RawDocument: documentPNG(t),
		Kind:        classify.KindCertificate,
		Name:        "John Doe",
	})
	require.NoError(t, err, "stages deadlock unless dispatched concurrently")
	assert.True(t, outcome.Decision.IsValid())
}

func TestVerify_IdenticalInputsYieldIdenticalScores(t *testing.T) {
	captioner := &fakeCaptioner{caption: "yes certificate award"}
	ocr := &fakeOCR{regions: rowRegions(0.9, "john", "doe", "tech", "institute")}
	p := newTestPipeline(t, captioner, ocr)

	req := Request{
		RawDocument: documentPNG(t),
		Kind:        classify.KindCertificate,
		Name:        "John Doe",
		Description: "Tech Institute - Python",
	}

	first, err := p.Verify(context.Background(), req)
	require.NoError(t, err)
	second, err := p.Verify(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestVerify_UnknownKindFails(t *testing.T) {
	captioner := &fakeCaptioner{caption: "yes"}
	ocr := &fakeOCR{regions: rowRegions(0.9, "john")}
	p := newTestPipeline(t, captioner, ocr)

	_, err := p.Verify(context.Background(), Request{
		RawDocument: documentPNG(t),
		Kind:        classify.Kind("PASSPORT"),
		Name:        "John Doe",
	})
	require.Error(t, err)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, capability.StageClassification, stageErr.Stage)
}

func TestBuilder_RequiresBothCapabilities(t *testing.T) {
	_, err := NewBuilder().Build()
	require.Error(t, err)

	_, err = NewBuilder().WithCaptioner(&fakeCaptioner{}).Build()
	require.Error(t, err)

	_, err = NewBuilder().WithTextExtractor(&fakeOCR{}).Build()
	require.Error(t, err)
}

func TestBuilder_InvalidThresholdsSurfaceAtBuild(t *testing.T) {
	_, err := NewBuilder().
		WithCaptioner(&fakeCaptioner{}).
		WithTextExtractor(&fakeOCR{}).
		WithDecisionThresholds(0.5, 0.9).
		Build()
	require.Error(t, err)

	var configErr *scoring.ConfigurationError
	assert.True(t, errors.As(err, &configErr))
}

func TestBuilder_Overrides(t *testing.T) {
	b := NewBuilder().
		WithMaxDimension(640).
		WithPlausibilityThreshold(0.5).
		WithDecisionThresholds(0.9, 0.7).
		WithModelTimeout(5 * time.Second).
		WithMaxInFlight(2)

	cfg := b.Config()
	assert.Equal(t, 640, cfg.Normalize.MaxDimension)
	assert.InDelta(t, 0.5, cfg.Classify.PlausibilityThreshold, 1e-9)
	assert.InDelta(t, 0.9, cfg.Scoring.ApproveThreshold, 1e-9)
	assert.InDelta(t, 0.7, cfg.Scoring.ReviewThreshold, 1e-9)
	assert.Equal(t, 5*time.Second, cfg.ModelTimeout)
	assert.Equal(t, 2, cfg.MaxInFlight)

	// Zero and negative values never override defaults.
	cfg = NewBuilder().WithMaxDimension(0).WithMaxInFlight(-1).Config()
	assert.Equal(t, normalize.DefaultMaxDimension, cfg.Normalize.MaxDimension)
	assert.Equal(t, capability.DefaultConfig().MaxInFlight, cfg.MaxInFlight)
}

func TestStageError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &StageError{Stage: StageNormalize, Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), StageNormalize)
}
