// Package scoring folds stage outputs into a weighted overall confidence and
// maps it onto a verification decision. Components that did not run are
// excluded from the average rather than counted as zero, so a certificate
// without a roll number is not penalized for the missing field.
package scoring

import (
	"encoding/json"

	"github.com/veridoc-io/veridoc/internal/classify"
	"github.com/veridoc-io/veridoc/internal/extract"
	"github.com/veridoc-io/veridoc/internal/match"
)

// Component identifies one contribution to the overall confidence.
type Component string

const (
	ComponentImageType   Component = "image_type_match"
	ComponentNameMatch   Component = "student_name_match"
	ComponentRollMatch   Component = "student_roll_match"
	ComponentInstitution Component = "institution_match"
	ComponentSkill       Component = "skill_match"
	ComponentOCR         Component = "ocr_confidence"
)

// overallKey is the wire name for the aggregated confidence.
const overallKey = "overall_confidence"

var allComponents = []Component{
	ComponentImageType,
	ComponentNameMatch,
	ComponentRollMatch,
	ComponentInstitution,
	ComponentSkill,
	ComponentOCR,
}

func knownComponent(c Component) bool {
	for _, known := range allComponents {
		if c == known {
			return true
		}
	}
	return false
}

// Decision is the automated routing for a submission.
type Decision string

const (
	DecisionAutoApprove Decision = "AUTO_APPROVE"
	DecisionNeedsReview Decision = "NEEDS_REVIEW"
	DecisionAutoReject  Decision = "AUTO_REJECT"
)

// IsValid reports whether d is one of the defined decisions.
func (d Decision) IsValid() bool {
	switch d {
	case DecisionAutoApprove, DecisionNeedsReview, DecisionAutoReject:
		return true
	}
	return false
}

// Scores holds the overall confidence and the components that produced it.
// A component absent from Components did not run for this submission; a
// present component with value 0.0 ran and scored zero. The two serialize
// differently and must not be conflated.
type Scores struct {
	Overall    float64
	Components map[Component]float64
}

// Component returns the value for c and whether it was present.
func (s Scores) Component(c Component) (float64, bool) {
	v, ok := s.Components[c]
	return v, ok
}

// MarshalJSON flattens the scores into a single object keyed by component
// name, with the overall under "overall_confidence". Absent components are
// omitted; present zero scores are kept.
func (s Scores) MarshalJSON() ([]byte, error) {
	flat := make(map[string]float64, len(s.Components)+1)
	flat[overallKey] = s.Overall
	for component, v := range s.Components {
		flat[string(component)] = v
	}
	return json.Marshal(flat)
}

// UnmarshalJSON rebuilds Scores from the flat wire form. Unknown keys are
// ignored so older records survive component additions.
func (s *Scores) UnmarshalJSON(data []byte) error {
	var flat map[string]float64
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	s.Overall = flat[overallKey]
	s.Components = make(map[Component]float64)
	for key, v := range flat {
		if key == overallKey {
			continue
		}
		if component := Component(key); knownComponent(component) {
			s.Components[component] = v
		}
	}
	return nil
}

// Engine aggregates stage outputs and applies the decision thresholds.
type Engine struct {
	config Config
}

// NewEngine creates a scoring engine with the given configuration.
func NewEngine(config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{config: config}, nil
}

// Aggregate folds the classification verdict, field matches, and extraction
// result into component scores and their weighted mean. The verdict ratio and
// extraction confidence are always present; field components appear only for
// fields the caller supplied.
func (e *Engine) Aggregate(verdict classify.Verdict, matches []match.Result, text extract.Text) Scores {
	components := map[Component]float64{
		ComponentImageType: verdict.Ratio,
		ComponentOCR:       text.Confidence,
	}
	for _, m := range matches {
		if component, ok := componentForField(m.Field); ok {
			components[component] = m.Score
		}
	}

	var weighted, total float64
	for component, v := range components {
		w := e.weightFor(component)
		weighted += v * w
		total += w
	}
	overall := 0.0
	if total > 0 {
		overall = weighted / total
	}
	return Scores{Overall: overall, Components: components}
}

// Decide maps an overall confidence onto a decision. The approve threshold is
// exclusive and the review threshold inclusive, so a score sitting exactly on
// either boundary routes to manual review.
func (e *Engine) Decide(scores Scores) (Decision, bool, string) {
	switch {
	case scores.Overall > e.config.ApproveThreshold:
		return DecisionAutoApprove, true, "document verified automatically"
	case scores.Overall >= e.config.ReviewThreshold:
		return DecisionNeedsReview, false, "confidence too low for automatic approval, queued for manual review"
	default:
		return DecisionAutoReject, false, "document could not be verified"
	}
}

func (e *Engine) weightFor(c Component) float64 {
	if w, ok := e.config.Weights[c]; ok {
		return w
	}
	return 1.0
}

func componentForField(kind match.FieldKind) (Component, bool) {
	switch kind {
	case match.FieldName:
		return ComponentNameMatch, true
	case match.FieldRollNumber:
		return ComponentRollMatch, true
	case match.FieldInstitution:
		return ComponentInstitution, true
	case match.FieldSkill:
		return ComponentSkill, true
	}
	return "", false
}
