package domain

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrCardQuestionEmpty  = errors.New("flashcard question cannot be empty")
	ErrCardQuestionLong   = errors.New("flashcard question is too long (max 500 chars)")
	ErrCardAnswerEmpty    = errors.New("flashcard answer cannot be empty")
	ErrCardAnswerLong     = errors.New("flashcard answer is too long (max 2000 chars)")
	ErrCardSubjectLong    = errors.New("flashcard subject is too long (max 100 chars)")
	ErrCardInvalidOwnerID = errors.New("invalid owner id")
	ErrInvalidDifficulty  = errors.New("invalid difficulty (must be 1-5)")
	ErrInvalidEase        = errors.New("ease factor cannot drop below 1.3")
)

const (
	MaxQuestionLen = 500
	MaxAnswerLen   = 2000
	MaxSubjectLen  = 100

	// MinEaseFactor is the SM-2 floor: below it intervals stop shrinking.
	MinEaseFactor = 1.3

	// DefaultEaseFactor is the starting multiplier for a fresh card.
	DefaultEaseFactor = 2.5

	DefaultDifficulty = 3
)

// Flashcard is a single reviewable fact together with its scheduling
// state. Scheduling fields (CurrentInterval, EaseFactor,
// RepetitionCount, NextReviewAt) are mutated only through the review
// pipeline; everything else is editable content.
type Flashcard struct {
	ID      string `json:"id" db:"id"`
	OwnerID string `json:"owner_id" db:"owner_id"`

	Question   string `json:"question" db:"question"`
	Answer     string `json:"answer" db:"answer"`
	Subject    string `json:"subject,omitempty" db:"subject"`
	Difficulty int    `json:"difficulty" db:"difficulty"`

	CurrentInterval int        `json:"current_interval" db:"current_interval"`
	EaseFactor      float64    `json:"ease_factor" db:"ease_factor"`
	RepetitionCount int        `json:"repetition_count" db:"repetition_count"`
	NextReviewAt    *time.Time `json:"next_review_at,omitempty" db:"next_review_at"`

	Version   int       `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func validateCardContent(question, answer, subject string, difficulty int) error {
	if strings.TrimSpace(question) == "" {
		return ErrCardQuestionEmpty
	}
	if len(question) > MaxQuestionLen {
		return ErrCardQuestionLong
	}
	if strings.TrimSpace(answer) == "" {
		return ErrCardAnswerEmpty
	}
	if len(answer) > MaxAnswerLen {
		return ErrCardAnswerLong
	}
	if len(subject) > MaxSubjectLen {
		return ErrCardSubjectLong
	}
	if difficulty < 1 || difficulty > 5 {
		return ErrInvalidDifficulty
	}
	return nil
}

func NewFlashcard(ownerID, question, answer, subject string, difficulty int) (*Flashcard, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrCardInvalidOwnerID
	}

	if difficulty == 0 {
		difficulty = DefaultDifficulty
	}

	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	subject = strings.TrimSpace(subject)

	if err := validateCardContent(question, answer, subject, difficulty); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &Flashcard{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Question:   question,
		Answer:     answer,
		Subject:    subject,
		Difficulty: difficulty,

		CurrentInterval: 0,
		EaseFactor:      DefaultEaseFactor,
		RepetitionCount: 0,
		NextReviewAt:    nil,

		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateContent edits the card's content fields without touching the
// scheduling state.
func (f *Flashcard) UpdateContent(question, answer, subject string, difficulty int) error {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	subject = strings.TrimSpace(subject)

	if difficulty == 0 {
		difficulty = f.Difficulty
	}

	if err := validateCardContent(question, answer, subject, difficulty); err != nil {
		return err
	}

	f.Question = question
	f.Answer = answer
	f.Subject = subject
	f.Difficulty = difficulty
	f.UpdatedAt = time.Now().UTC()

	return nil
}

// ApplySchedule moves the card to its next scheduling state. Interval
// must be at least one day once the card has been reviewed; the ease
// factor must respect the SM-2 floor.
func (f *Flashcard) ApplySchedule(interval, repetitions int, ease float64, nextReviewAt time.Time) error {
	if interval < 1 || repetitions < 0 {
		return ErrInvalidEntryState
	}
	if ease < MinEaseFactor-1e-9 {
		return ErrInvalidEase
	}

	f.CurrentInterval = interval
	f.RepetitionCount = repetitions
	f.EaseFactor = math.Round(ease*100) / 100
	f.NextReviewAt = &nextReviewAt
	f.UpdatedAt = time.Now().UTC()

	return nil
}

// IsDue reports whether the card is eligible for review at asOf. A
// card that has never been reviewed is always due.
func (f *Flashcard) IsDue(asOf time.Time) bool {
	if f.RepetitionCount == 0 && f.NextReviewAt == nil {
		return true
	}
	if f.NextReviewAt == nil {
		return true
	}
	return !f.NextReviewAt.After(asOf)
}
