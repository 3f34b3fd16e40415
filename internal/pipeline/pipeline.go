// Package pipeline orchestrates document verification: normalize the upload,
// classify and extract concurrently, match the claimed fields, aggregate into
// an overall confidence, and decide.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/veridoc-io/veridoc/internal/capability"
	"github.com/veridoc-io/veridoc/internal/classify"
	"github.com/veridoc-io/veridoc/internal/extract"
	"github.com/veridoc-io/veridoc/internal/normalize"
	"github.com/veridoc-io/veridoc/internal/scoring"
)

// Config holds configuration for the verification pipeline and its stages.
type Config struct {
	Normalize normalize.Config
	Classify  classify.Config
	Scoring   scoring.Config

	// ModelTimeout bounds each capability call.
	ModelTimeout time.Duration
	// MaxInFlight bounds concurrent capability calls across both models.
	MaxInFlight int
}

// DefaultConfig returns a default pipeline config with stage defaults.
func DefaultConfig() Config {
	capDefaults := capability.DefaultConfig()
	return Config{
		Normalize:    normalize.DefaultConfig(),
		Classify:     classify.DefaultConfig(),
		Scoring:      scoring.DefaultConfig(),
		ModelTimeout: capDefaults.Timeout,
		MaxInFlight:  capDefaults.MaxInFlight,
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg       Config
	captioner capability.Captioner
	ocr       capability.TextExtractor
}

// NewBuilder creates a new pipeline builder with defaults. Capabilities have
// no defaults and must be supplied before Build.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole pipeline configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithCaptioner sets the captioning capability used for classification.
func (b *Builder) WithCaptioner(c capability.Captioner) *Builder {
	b.captioner = c
	return b
}

// WithTextExtractor sets the OCR capability used for text extraction.
func (b *Builder) WithTextExtractor(x capability.TextExtractor) *Builder {
	b.ocr = x
	return b
}

// WithMaxDimension caps the longer edge of normalized images (if >0).
func (b *Builder) WithMaxDimension(px int) *Builder {
	if px > 0 {
		b.cfg.Normalize.MaxDimension = px
	}
	return b
}

// WithPlausibilityThreshold sets the classification keyword-ratio threshold.
func (b *Builder) WithPlausibilityThreshold(th float64) *Builder {
	if th > 0 {
		b.cfg.Classify.PlausibilityThreshold = th
	}
	return b
}

// WithDecisionThresholds sets the approve and review boundaries.
func (b *Builder) WithDecisionThresholds(approve, review float64) *Builder {
	if approve > 0 {
		b.cfg.Scoring.ApproveThreshold = approve
	}
	if review > 0 {
		b.cfg.Scoring.ReviewThreshold = review
	}
	return b
}

// WithWeights sets per-component scoring weights.
func (b *Builder) WithWeights(w scoring.Weights) *Builder {
	if len(w) > 0 {
		b.cfg.Scoring.Weights = w
	}
	return b
}

// WithModelTimeout sets the per-call capability timeout (if >0).
func (b *Builder) WithModelTimeout(d time.Duration) *Builder {
	if d > 0 {
		b.cfg.ModelTimeout = d
	}
	return b
}

// WithMaxInFlight bounds concurrent capability calls (if >0).
func (b *Builder) WithMaxInFlight(n int) *Builder {
	if n > 0 {
		b.cfg.MaxInFlight = n
	}
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Pipeline wires the verification stages together. It holds no mutable state
// between invocations; a single instance serves concurrent callers.
type Pipeline struct {
	cfg        Config
	normalizer *normalize.Normalizer
	classifier *classify.Classifier
	extractor  *extract.Extractor
	engine     *scoring.Engine
	gate       *capability.Gate
}

// Build validates the configuration and initializes the pipeline stages.
// Both capability calls share one concurrency gate.
func (b *Builder) Build() (*Pipeline, error) {
	if b.captioner == nil {
		return nil, errors.New("captioning capability is required")
	}
	if b.ocr == nil {
		return nil, errors.New("text extraction capability is required")
	}
	if b.cfg.ModelTimeout <= 0 {
		return nil, errors.New("model timeout must be positive")
	}

	normalizer, err := normalize.New(b.cfg.Normalize)
	if err != nil {
		return nil, fmt.Errorf("init normalizer: %w", err)
	}

	gate := capability.NewGate(b.cfg.MaxInFlight)
	classifier, err := classify.New(
		capability.GateCaptioner(b.captioner, gate, b.cfg.ModelTimeout),
		b.cfg.Classify,
	)
	if err != nil {
		return nil, fmt.Errorf("init classifier: %w", err)
	}
	extractor, err := extract.New(capability.GateExtractor(b.ocr, gate, b.cfg.ModelTimeout))
	if err != nil {
		return nil, fmt.Errorf("init extractor: %w", err)
	}
	engine, err := scoring.NewEngine(b.cfg.Scoring)
	if err != nil {
		return nil, fmt.Errorf("init scoring engine: %w", err)
	}

	return &Pipeline{
		cfg:        b.cfg,
		normalizer: normalizer,
		classifier: classifier,
		extractor:  extractor,
		engine:     engine,
		gate:       gate,
	}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// InFlight reports how many capability calls are currently executing.
func (p *Pipeline) InFlight() int { return p.gate.InFlight() }
