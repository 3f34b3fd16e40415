// Package store persists verification submissions and drives the manual
// review workflow.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var (
	// ErrNotFound reports an unknown submission ID.
	ErrNotFound = errors.New("submission not found")
	// ErrNotReviewable reports a review attempt on a submission that is not
	// pending review.
	ErrNotReviewable = errors.New("submission is not pending review")
)

// Store wraps the submissions database.
type Store struct {
	db *gorm.DB
}

// Open connects to MySQL and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return New(db)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("store requires a database connection")
	}
	if err := db.AutoMigrate(&Submission{}); err != nil {
		return nil, fmt.Errorf("migrate submissions: %w", err)
	}
	return &Store{db: db}, nil
}

// CreateSubmission inserts a new submission record.
func (s *Store) CreateSubmission(ctx context.Context, sub *Submission) error {
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// Submission loads one submission by ID.
func (s *Store) Submission(ctx context.Context, id string) (*Submission, error) {
	var sub Submission
	err := s.db.WithContext(ctx).First(&sub, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}
	return &sub, nil
}

// Submissions lists submissions, newest first, optionally filtered by status.
func (s *Store) Submissions(ctx context.Context, status Status, limit int) ([]Submission, error) {
	q := s.db.WithContext(ctx).Order("created_at desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var subs []Submission
	if err := q.Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// VerifiedByRoll lists a student's verified submissions, oldest first. Both
// automatic and manual approvals count as verified.
func (s *Store) VerifiedByRoll(ctx context.Context, rollNumber string) ([]Submission, error) {
	var subs []Submission
	err := s.db.WithContext(ctx).
		Where("roll_number = ? AND status IN ?", rollNumber, []Status{StatusAutoApproved, StatusApproved}).
		Order("created_at asc").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("list verified submissions: %w", err)
	}
	return subs, nil
}

// Review resolves a pending submission. The status guard runs inside the
// update so concurrent reviewers cannot both win.
func (s *Store) Review(ctx context.Context, id string, approve bool, reviewer, note string) (*Submission, error) {
	target := StatusRejected
	if approve {
		target = StatusApproved
	}
	now := time.Now().UTC()

	res := s.db.WithContext(ctx).Model(&Submission{}).
		Where("id = ? AND status = ?", id, StatusPendingReview).
		Updates(map[string]interface{}{
			"status":      target,
			"is_valid":    approve,
			"reviewed_by": reviewer,
			"reviewed_at": &now,
			"review_note": note,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("update submission: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		sub, err := s.Submission(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: status %s", ErrNotReviewable, sub.Status)
	}
	return s.Submission(ctx, id)
}
