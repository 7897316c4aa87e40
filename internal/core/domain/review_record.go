package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuality    = errors.New("response quality must be an integer between 0 and 5")
	ErrInvalidTimeSpent  = errors.New("time spent cannot be negative")
	ErrInvalidEntryState = errors.New("invalid scheduling state")
)

// ReviewRecord is the immutable audit trail of one completed review:
// the response quality plus the scheduling state before and after.
// Records are never updated or deleted.
type ReviewRecord struct {
	ID          string `json:"id" db:"id"`
	FlashcardID string `json:"flashcard_id" db:"flashcard_id"`
	OwnerID     string `json:"owner_id" db:"owner_id"`

	ResponseQuality int `json:"response_quality" db:"response_quality"`
	TimeSpentMs     int `json:"time_spent_ms" db:"time_spent_ms"`

	PreviousInterval int     `json:"previous_interval" db:"previous_interval"`
	NewInterval      int     `json:"new_interval" db:"new_interval"`
	EaseFactorAfter  float64 `json:"ease_factor_after" db:"ease_factor_after"`

	// AppliedActionID links the record to the offline action that
	// produced it, if any. A unique index on it makes replay
	// idempotent at the storage level.
	AppliedActionID *string `json:"applied_action_id,omitempty" db:"applied_action_id"`

	ReviewedAt time.Time `json:"reviewed_at" db:"reviewed_at"`
}

func NewReviewRecord(flashcardID, ownerID string, quality, timeSpentMs int) (*ReviewRecord, error) {
	if strings.TrimSpace(flashcardID) == "" || strings.TrimSpace(ownerID) == "" {
		return nil, ErrInvalidEntryState
	}
	if quality < 0 || quality > 5 {
		return nil, ErrInvalidQuality
	}
	if timeSpentMs < 0 {
		return nil, ErrInvalidTimeSpent
	}

	return &ReviewRecord{
		ID:              uuid.NewString(),
		FlashcardID:     flashcardID,
		OwnerID:         ownerID,
		ResponseQuality: quality,
		TimeSpentMs:     timeSpentMs,
		ReviewedAt:      time.Now().UTC(),
	}, nil
}
