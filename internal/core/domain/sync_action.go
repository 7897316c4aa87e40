package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrActionNotFound       = errors.New("sync action not found")
	ErrInvalidPayload       = errors.New("invalid sync action payload")
	ErrInvalidActionKind    = errors.New("invalid sync action kind")
	ErrInvalidActionState   = errors.New("invalid sync action state transition")
	ErrRetryExhausted       = errors.New("sync action exceeded its retry budget")
	ErrActionAlreadyApplied = errors.New("sync action was already applied")
)

type SyncActionKind string

const (
	SyncActionReviewSubmit  SyncActionKind = "review_submit"
	SyncActionFlashcardEdit SyncActionKind = "flashcard_edit"
	SyncActionStudyEvent    SyncActionKind = "study_event"
)

type SyncActionState string

const (
	SyncStatePending    SyncActionState = "pending"
	SyncStateProcessing SyncActionState = "processing"
	SyncStateCompleted  SyncActionState = "completed"
	SyncStateFailed     SyncActionState = "failed"
)

// DefaultMaxAttempts bounds transient retries per queued action.
const DefaultMaxAttempts = 3

// ReviewSubmitPayload replays a review that was completed offline.
type ReviewSubmitPayload struct {
	FlashcardID     string `json:"flashcard_id"`
	ResponseQuality int    `json:"response_quality"`
	TimeSpentMs     int    `json:"time_spent_ms"`
}

func (p ReviewSubmitPayload) Validate() error {
	if strings.TrimSpace(p.FlashcardID) == "" {
		return fmt.Errorf("%w: flashcard_id is required", ErrInvalidPayload)
	}
	if p.ResponseQuality < 0 || p.ResponseQuality > 5 {
		return fmt.Errorf("%w: response_quality must be 0-5", ErrInvalidPayload)
	}
	if p.TimeSpentMs < 0 {
		return fmt.Errorf("%w: time_spent_ms cannot be negative", ErrInvalidPayload)
	}
	return nil
}

// FlashcardEditPayload replays an offline content edit.
type FlashcardEditPayload struct {
	FlashcardID string `json:"flashcard_id"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Subject     string `json:"subject"`
	Difficulty  int    `json:"difficulty"`
}

// Validate mirrors the card content rules, so a payload accepted here
// cannot fail validation at replay.
func (p FlashcardEditPayload) Validate() error {
	if strings.TrimSpace(p.FlashcardID) == "" {
		return fmt.Errorf("%w: flashcard_id is required", ErrInvalidPayload)
	}
	if strings.TrimSpace(p.Question) == "" {
		return fmt.Errorf("%w: question is required", ErrInvalidPayload)
	}
	if len(p.Question) > MaxQuestionLen {
		return fmt.Errorf("%w: question is too long", ErrInvalidPayload)
	}
	if strings.TrimSpace(p.Answer) == "" {
		return fmt.Errorf("%w: answer is required", ErrInvalidPayload)
	}
	if len(p.Answer) > MaxAnswerLen {
		return fmt.Errorf("%w: answer is too long", ErrInvalidPayload)
	}
	if len(p.Subject) > MaxSubjectLen {
		return fmt.Errorf("%w: subject is too long", ErrInvalidPayload)
	}
	if p.Difficulty != 0 && (p.Difficulty < 1 || p.Difficulty > 5) {
		return fmt.Errorf("%w: difficulty must be 1-5", ErrInvalidPayload)
	}
	return nil
}

// StudyEventPayload replays a bare study event, e.g. a session that
// finished offline without individual card reviews.
type StudyEventPayload struct {
	OccurredAt time.Time `json:"occurred_at"`
}

func (p StudyEventPayload) Validate() error {
	if p.OccurredAt.IsZero() {
		return fmt.Errorf("%w: occurred_at is required", ErrInvalidPayload)
	}
	return nil
}

// SyncAction is one offline-originated mutation waiting to be replayed
// against server state. The payload is a tagged variant: Kind selects
// which typed payload the raw JSON decodes into.
type SyncAction struct {
	ID      string          `json:"id" db:"id"`
	OwnerID string          `json:"owner_id" db:"owner_id"`
	Kind    SyncActionKind  `json:"kind" db:"kind"`
	Payload json.RawMessage `json:"payload" db:"payload"`

	State        SyncActionState `json:"state" db:"state"`
	AttemptCount int             `json:"attempt_count" db:"attempt_count"`
	MaxAttempts  int             `json:"max_attempts" db:"max_attempts"`
	LastError    string          `json:"last_error,omitempty" db:"last_error"`

	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

func NewSyncAction(ownerID string, kind SyncActionKind, payload json.RawMessage, recordedAt time.Time) (*SyncAction, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrCardInvalidOwnerID
	}

	a := &SyncAction{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Kind:        kind,
		Payload:     payload,
		State:       SyncStatePending,
		MaxAttempts: DefaultMaxAttempts,
		RecordedAt:  recordedAt.UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	// Reject malformed payloads at enqueue time, not at replay.
	if _, err := a.DecodePayload(); err != nil {
		return nil, err
	}

	return a, nil
}

// DecodePayload parses and validates the raw payload according to the
// action kind, returning the typed variant.
func (a *SyncAction) DecodePayload() (interface{}, error) {
	switch a.Kind {
	case SyncActionReviewSubmit:
		var p ReviewSubmitPayload
		if err := json.Unmarshal(a.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return p, p.Validate()
	case SyncActionFlashcardEdit:
		var p FlashcardEditPayload
		if err := json.Unmarshal(a.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return p, p.Validate()
	case SyncActionStudyEvent:
		var p StudyEventPayload
		if err := json.Unmarshal(a.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return p, p.Validate()
	default:
		return nil, ErrInvalidActionKind
	}
}

// MarkProcessing takes the action out of the pending queue for one
// application attempt.
func (a *SyncAction) MarkProcessing() error {
	if a.State != SyncStatePending {
		return ErrInvalidActionState
	}
	a.State = SyncStateProcessing
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (a *SyncAction) MarkCompleted() error {
	if a.State != SyncStateProcessing {
		return ErrInvalidActionState
	}
	a.State = SyncStateCompleted
	a.LastError = ""
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkTransientFailure consumes one retry attempt. The action returns
// to Pending until the budget runs out, then lands in Failed.
func (a *SyncAction) MarkTransientFailure(cause error) error {
	if a.State != SyncStateProcessing {
		return ErrInvalidActionState
	}

	a.AttemptCount++
	if cause != nil {
		a.LastError = cause.Error()
	}
	a.UpdatedAt = time.Now().UTC()

	if a.AttemptCount >= a.MaxAttempts {
		a.State = SyncStateFailed
		return ErrRetryExhausted
	}

	a.State = SyncStatePending
	return nil
}

// MarkPermanentFailure fails the action immediately without consuming
// a retry attempt. Validation and conflict errors can never succeed on
// a later try.
func (a *SyncAction) MarkPermanentFailure(cause error) error {
	if a.State != SyncStateProcessing {
		return ErrInvalidActionState
	}
	a.State = SyncStateFailed
	if cause != nil {
		a.LastError = cause.Error()
	}
	a.UpdatedAt = time.Now().UTC()
	return nil
}
