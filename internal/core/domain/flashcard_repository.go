package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCardNotFound = errors.New("flashcard not found")
	// ErrCardConflict signals an optimistic-lock version mismatch:
	// another writer updated the card first.
	ErrCardConflict = errors.New("flashcard version conflict")
	ErrUnauthorized = errors.New("owner does not match resource")
	// ErrStorageUnavailable classifies timeouts and connectivity
	// failures as transient; the sync queue retries them.
	ErrStorageUnavailable = errors.New("storage temporarily unavailable")
)

// DueFilter narrows a due-queue query before ordering and pagination.
type DueFilter struct {
	Subject string
}

func (f DueFilter) IsZero() bool {
	return f.Subject == ""
}

type FlashcardRepository interface {
	// Create persists a new flashcard.
	Create(ctx context.Context, card *Flashcard) error

	// GetByID retrieves a flashcard by its unique identifier.
	GetByID(ctx context.Context, id string) (*Flashcard, error)

	// ListByOwner retrieves all flashcards belonging to one learner.
	ListByOwner(ctx context.Context, ownerID string) ([]*Flashcard, error)

	// Update modifies a card's content with an optimistic version
	// check; returns ErrCardConflict when the stored version moved.
	Update(ctx context.Context, card *Flashcard) error

	// Delete permanently removes a flashcard.
	Delete(ctx context.Context, id, ownerID string) error

	// ListDue returns the cards eligible for review at asOf, ordered
	// never-reviewed first (oldest created first), then by ascending
	// next_review_at. The filter applies before ordering/pagination.
	ListDue(ctx context.Context, ownerID string, asOf time.Time, filter DueFilter, limit, offset int) ([]*Flashcard, error)

	// ApplyReview persists the card's new scheduling state and the
	// review record as a single transaction, with the same version
	// check as Update. Returns ErrActionAlreadyApplied when the
	// record's action id was already recorded.
	ApplyReview(ctx context.Context, card *Flashcard, record *ReviewRecord) error
}
