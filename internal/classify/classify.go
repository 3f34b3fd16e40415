// Package classify decides whether an uploaded image plausibly is the kind
// of document the submitter claims. It asks the captioning capability a
// kind-specific question and scores the free-text answer by keyword overlap.
// Substring matching cannot see negation ("no, not a certificate" still
// contains "certificate"), a known precision limit of this approach; the
// Verdict boundary keeps it replaceable by a real classifier later.
package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/veridoc-io/veridoc/internal/capability"
	"github.com/veridoc-io/veridoc/internal/normalize"
)

// Kind is the claimed document type.
type Kind string

const (
	KindCollegeID   Kind = "COLLEGE_ID"
	KindCertificate Kind = "CERTIFICATE"
)

// ParseKind converts user input into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToUpper(strings.TrimSpace(s))) {
	case KindCollegeID:
		return KindCollegeID, nil
	case KindCertificate:
		return KindCertificate, nil
	default:
		return "", fmt.Errorf("unknown document kind %q (want COLLEGE_ID or CERTIFICATE)", s)
	}
}

// One fixed question and keyword set per document kind.
var (
	prompts = map[Kind]string{
		KindCollegeID:   "Question: Is this a college ID card or student identification card? Answer:",
		KindCertificate: "Question: Is this a certificate, award, or achievement document? Answer:",
	}
	keywords = map[Kind][]string{
		KindCollegeID:   {"yes", "id", "student"},
		KindCertificate: {"yes", "certificate", "award"},
	}
)

// Verdict is the scored result of one classification.
type Verdict struct {
	Caption         string  // raw capability answer, kept for audit
	MatchedKeywords int     // keywords found in the answer
	TotalKeywords   int     // keywords checked for the kind
	Ratio           float64 // matched / total
	Plausible       bool    // ratio >= configured threshold
}

// Config holds configuration for the classifier.
type Config struct {
	PlausibilityThreshold float64 // keyword ratio needed to accept the kind (default: 0.6)
}

// DefaultConfig returns the default classifier configuration.
func DefaultConfig() Config {
	return Config{PlausibilityThreshold: 0.6}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.PlausibilityThreshold < 0 || c.PlausibilityThreshold > 1 {
		return fmt.Errorf("plausibility threshold must be in [0,1], got %v", c.PlausibilityThreshold)
	}
	return nil
}

// Classifier wraps the captioning capability behind keyword scoring.
type Classifier struct {
	captioner capability.Captioner
	config    Config
}

// New creates a Classifier using the given captioning capability.
func New(captioner capability.Captioner, config Config) (*Classifier, error) {
	if captioner == nil {
		return nil, fmt.Errorf("captioner cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid classifier config: %w", err)
	}
	return &Classifier{captioner: captioner, config: config}, nil
}

// Classify asks the capability the kind-specific question and scores the
// answer. An empty or off-topic answer degrades to ratio 0.0; only a
// capability failure returns an error.
func (c *Classifier) Classify(ctx context.Context, img *normalize.Image, kind Kind) (Verdict, error) {
	prompt, ok := prompts[kind]
	if !ok {
		return Verdict{}, fmt.Errorf("unsupported document kind %q", kind)
	}

	caption, err := c.captioner.Caption(ctx, img, prompt)
	if err != nil {
		return Verdict{}, fmt.Errorf("caption document: %w", err)
	}

	return c.score(caption, keywords[kind]), nil
}

func (c *Classifier) score(caption string, kws []string) Verdict {
	lower := strings.ToLower(caption)
	matched := 0
	for _, kw := range kws {
		if strings.Contains(lower, kw) {
			matched++
		}
	}

	ratio := 0.0
	if len(kws) > 0 {
		ratio = float64(matched) / float64(len(kws))
	}

	return Verdict{
		Caption:         caption,
		MatchedKeywords: matched,
		TotalKeywords:   len(kws),
		Ratio:           ratio,
		Plausible:       ratio >= c.config.PlausibilityThreshold,
	}
}
