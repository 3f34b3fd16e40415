// Package capability defines the two external model capabilities the
// verification pipeline consumes: vision captioning and OCR text extraction.
// Both are remote, resource-heavy singletons reached over HTTP and shared by
// all pipeline invocations through a bounded-concurrency gate.
package capability

import (
	"context"

	"github.com/veridoc-io/veridoc/internal/normalize"
)

// Stage identifies which capability a failure originated from.
const (
	StageClassification = "classification"
	StageExtraction     = "extraction"
)

// Box is the axis-aligned bounding rectangle of a detected text region.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Region is one detected text region with its recognition confidence.
// Spatial information must be preserved so reading order can be
// reconstructed downstream.
type Region struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Captioner answers a free-text question about an image.
type Captioner interface {
	Caption(ctx context.Context, img *normalize.Image, prompt string) (string, error)
}

// TextExtractor returns the text regions detected in an image.
type TextExtractor interface {
	ExtractRegions(ctx context.Context, img *normalize.Image) ([]Region, error)
}
