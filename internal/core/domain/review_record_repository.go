package domain

import "context"

type ReviewRecordRepository interface {
	// ListByFlashcard retrieves a card's review history, newest first.
	ListByFlashcard(ctx context.Context, flashcardID string, limit int) ([]*ReviewRecord, error)

	// ActionApplied reports whether a sync action id already produced
	// a review record. Used to make offline replay idempotent.
	ActionApplied(ctx context.Context, actionID string) (bool, error)
}
