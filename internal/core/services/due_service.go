package services

import (
	"context"
	"time"

	"github.com/Pedrolamon/study-sub001/internal/core/domain"
)

const (
	defaultDueLimit = 20
	maxDueLimit     = 100
)

// DueService answers "which cards must be reviewed now". The ordered
// due set is maintained by the storage layer inside the same
// transaction that changes a schedule, so reads here are never stale.
type DueService struct {
	cards domain.FlashcardRepository
}

func NewDueService(cards domain.FlashcardRepository) *DueService {
	return &DueService{cards: cards}
}

type DueQueryInput struct {
	OwnerID string
	AsOf    time.Time
	Filter  domain.DueFilter
	Limit   int
	Offset  int
}

// GetDueQueue returns the learner's due cards at AsOf: never-reviewed
// cards first (oldest created first), then overdue cards by ascending
// next_review_at.
func (s *DueService) GetDueQueue(ctx context.Context, input DueQueryInput) ([]*domain.Flashcard, error) {
	asOf := input.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultDueLimit
	}
	if limit > maxDueLimit {
		limit = maxDueLimit
	}

	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	return s.cards.ListDue(ctx, input.OwnerID, asOf, input.Filter, limit, offset)
}
