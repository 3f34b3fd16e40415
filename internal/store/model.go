package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veridoc-io/veridoc/internal/pipeline"
	"github.com/veridoc-io/veridoc/internal/scoring"
)

// Status tracks a submission through the review workflow. Automated outcomes
// map onto the first three; manual review resolves pending_review into
// approved or rejected.
type Status string

const (
	StatusAutoApproved  Status = "auto_approved"
	StatusPendingReview Status = "pending_review"
	StatusAutoRejected  Status = "auto_rejected"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
)

// IsValid reports whether s is one of the defined workflow statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusAutoApproved, StatusPendingReview, StatusAutoRejected, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// StatusForDecision maps a pipeline decision onto the initial workflow status.
func StatusForDecision(d scoring.Decision) Status {
	switch d {
	case scoring.DecisionAutoApprove:
		return StatusAutoApproved
	case scoring.DecisionNeedsReview:
		return StatusPendingReview
	default:
		return StatusAutoRejected
	}
}

// Submission is one verification attempt and its outcome.
type Submission struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	StudentName string     `gorm:"size:128;not null" json:"student_name"`
	RollNumber  string     `gorm:"size:64;index" json:"roll_number"`
	Kind        string     `gorm:"size:32;not null" json:"kind"`
	Skill       string     `gorm:"size:128" json:"skill,omitempty"`
	Description string     `gorm:"size:512" json:"description,omitempty"`
	DocumentSHA string     `gorm:"size:64;index" json:"document_sha256"`
	Decision    string     `gorm:"size:16;not null" json:"decision"`
	IsValid     bool       `json:"is_valid"`
	Overall     float64    `json:"overall_confidence"`
	Components  string     `gorm:"type:text" json:"-"`
	Message     string     `gorm:"size:512" json:"message"`
	Status      Status     `gorm:"size:24;index;not null" json:"status"`
	ReviewedBy  string     `gorm:"size:128" json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	ReviewNote  string     `gorm:"size:512" json:"review_note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewSubmission builds a persistable record from a verification request and
// its outcome. The raw document is hashed, never stored.
func NewSubmission(req pipeline.Request, outcome *pipeline.Outcome) (*Submission, error) {
	components, err := json.Marshal(outcome.Scores)
	if err != nil {
		return nil, fmt.Errorf("serialize scores: %w", err)
	}
	digest := sha256.Sum256(req.RawDocument)
	return &Submission{
		ID:          uuid.NewString(),
		StudentName: req.Name,
		RollNumber:  req.RollNumber,
		Kind:        string(req.Kind),
		Skill:       req.Skill,
		Description: req.Description,
		DocumentSHA: hex.EncodeToString(digest[:]),
		Decision:    string(outcome.Decision),
		IsValid:     outcome.IsValid,
		Overall:     outcome.Scores.Overall,
		Components:  string(components),
		Message:     outcome.Message,
		Status:      StatusForDecision(outcome.Decision),
	}, nil
}

// Scores decodes the stored component scores.
func (s *Submission) Scores() (scoring.Scores, error) {
	var scores scoring.Scores
	if s.Components == "" {
		return scores, nil
	}
	if err := json.Unmarshal([]byte(s.Components), &scores); err != nil {
		return scores, fmt.Errorf("decode stored scores: %w", err)
	}
	return scores, nil
}

// Reviewable reports whether the submission still awaits manual review.
func (s *Submission) Reviewable() bool { return s.Status == StatusPendingReview }
