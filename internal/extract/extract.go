// Package extract wraps the OCR capability and rebuilds a linear text
// representation from its spatial output. Reading order is a correctness
// requirement for the field matcher, which relies on adjacency between
// neighboring regions (institution names sit near certificate titles).
package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/veridoc-io/veridoc/internal/capability"
	"github.com/veridoc-io/veridoc/internal/normalize"
)

// Text is the reading-order reconstruction of a document's OCR output.
type Text struct {
	Full       string  // region texts joined with single spaces in reading order
	Confidence float64 // mean over every region the engine returned, 0.0 when none
	Regions    int     // number of regions returned by the engine
}

// Empty reports whether no usable text was extracted.
func (t Text) Empty() bool { return t.Full == "" }

// Extractor adapts the OCR capability.
type Extractor struct {
	ocr capability.TextExtractor
}

// New creates an Extractor using the given OCR capability.
func New(ocr capability.TextExtractor) (*Extractor, error) {
	if ocr == nil {
		return nil, fmt.Errorf("text extractor capability cannot be nil")
	}
	return &Extractor{ocr: ocr}, nil
}

// Extract runs OCR and assembles the regions in reading order. A document
// with no recognizable text yields empty text with confidence 0.0, not an
// error; only a capability failure returns one.
func (e *Extractor) Extract(ctx context.Context, img *normalize.Image) (Text, error) {
	regions, err := e.ocr.ExtractRegions(ctx, img)
	if err != nil {
		return Text{}, fmt.Errorf("extract text: %w", err)
	}
	return Assemble(regions), nil
}

// Assemble orders regions top-to-bottom, left-to-right within a row band,
// and joins their texts with single spaces.
func Assemble(regions []capability.Region) Text {
	if len(regions) == 0 {
		return Text{}
	}

	ordered := orderReading(regions)

	parts := make([]string, 0, len(ordered))
	var confSum float64
	for _, r := range ordered {
		confSum += r.Confidence
		if t := strings.TrimSpace(r.Text); t != "" {
			parts = append(parts, t)
		}
	}

	return Text{
		Full:       strings.Join(parts, " "),
		Confidence: confSum / float64(len(ordered)),
		Regions:    len(ordered),
	}
}

// orderReading groups regions into rows and sorts them for reading. Two
// regions share a row when their vertical centers are within half the
// median region height of the row anchor.
func orderReading(regions []capability.Region) []capability.Region {
	sorted := make([]capability.Region, len(regions))
	copy(sorted, regions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return centerY(sorted[i]) < centerY(sorted[j])
	})

	tolerance := medianHeight(sorted) / 2
	if tolerance < 1 {
		tolerance = 1
	}

	var rows [][]capability.Region
	var anchor int
	for _, r := range sorted {
		if len(rows) == 0 || centerY(r)-anchor > tolerance {
			rows = append(rows, []capability.Region{r})
			anchor = centerY(r)
			continue
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], r)
	}

	out := make([]capability.Region, 0, len(sorted))
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool {
			return row[i].Box.X < row[j].Box.X
		})
		out = append(out, row...)
	}
	return out
}

func centerY(r capability.Region) int {
	return r.Box.Y + r.Box.H/2
}

func medianHeight(regions []capability.Region) int {
	heights := make([]int, 0, len(regions))
	for _, r := range regions {
		if r.Box.H > 0 {
			heights = append(heights, r.Box.H)
		}
	}
	if len(heights) == 0 {
		return 0
	}
	sort.Ints(heights)
	return heights[len(heights)/2]
}
