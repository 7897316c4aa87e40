package domain

import "context"

type SyncActionRepository interface {
	// Create persists a newly enqueued action.
	Create(ctx context.Context, action *SyncAction) error

	// GetByID retrieves an action by its unique identifier.
	GetByID(ctx context.Context, id string) (*SyncAction, error)

	// Update persists a state transition.
	Update(ctx context.Context, action *SyncAction) error

	// NextPending returns the owner's oldest pending action by
	// recorded_at, or (nil, nil) when the queue is drained. FIFO per
	// owner is the replay-ordering guarantee.
	NextPending(ctx context.Context, ownerID string) (*SyncAction, error)

	// ListByOwner lists a learner's actions, oldest first, optionally
	// filtered by state (empty state means all).
	ListByOwner(ctx context.Context, ownerID string, state SyncActionState, limit int) ([]*SyncAction, error)

	// OwnersWithPending lists owners that still have pending actions,
	// for the background replay driver.
	OwnersWithPending(ctx context.Context, limit int) ([]string, error)
}
