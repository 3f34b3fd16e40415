package pipeline

import (
	"fmt"

	"github.com/veridoc-io/veridoc/internal/classify"
	"github.com/veridoc-io/veridoc/internal/match"
	"github.com/veridoc-io/veridoc/internal/scoring"
)

// Stage names for failure attribution. Classification and extraction
// failures reuse the capability stage names.
const (
	StageIntake    = "intake"
	StageNormalize = "normalize"
)

// StageError attributes a verification failure to the stage that produced it.
// The cause stays reachable through Unwrap, so callers can test for
// *capability.ModelUnavailableError or context cancellation with errors.As
// and errors.Is.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("verification stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Request carries one document and the claims to verify it against.
type Request struct {
	RawDocument []byte
	Kind        classify.Kind
	Name        string
	RollNumber  string
	Skill       string
	Description string
}

// fields selects the claims relevant to the requested document kind. ID cards
// carry a roll number; certificates carry an institution/skill description.
func (r Request) fields() match.Fields {
	if r.Kind == classify.KindCollegeID {
		return match.Fields{Name: r.Name, RollNumber: r.RollNumber}
	}
	return match.Fields{Name: r.Name, Skill: r.Skill, Description: r.Description}
}

// Outcome is the terminal result of a verification. It is never mutated after
// construction.
type Outcome struct {
	IsValid  bool             `json:"is_valid"`
	Decision scoring.Decision `json:"decision"`
	Scores   scoring.Scores   `json:"confidence_scores"`
	Message  string           `json:"message"`
}
