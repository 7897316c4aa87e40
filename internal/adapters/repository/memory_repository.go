package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Pedrolamon/study-sub001/internal/core/domain"
)

// In-memory repositories backing service tests and local development.
// They honor the same contracts as the Postgres implementations,
// including the optimistic version check and the FIFO pending order.

type InMemoryFlashcardRepository struct {
	cards   map[string]*domain.Flashcard
	records []*domain.ReviewRecord

	mu sync.RWMutex
}

func NewInMemoryFlashcardRepository() *InMemoryFlashcardRepository {
	return &InMemoryFlashcardRepository{
		cards: make(map[string]*domain.Flashcard),
	}
}

func cloneCard(c *domain.Flashcard) *domain.Flashcard {
	copied := *c
	if c.NextReviewAt != nil {
		t := *c.NextReviewAt
		copied.NextReviewAt = &t
	}
	return &copied
}

func (r *InMemoryFlashcardRepository) Create(ctx context.Context, card *domain.Flashcard) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cards[card.ID] = cloneCard(card)
	return nil
}

func (r *InMemoryFlashcardRepository) GetByID(ctx context.Context, id string) (*domain.Flashcard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	card, ok := r.cards[id]
	if !ok {
		return nil, domain.ErrCardNotFound
	}
	return cloneCard(card), nil
}

func (r *InMemoryFlashcardRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Flashcard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var cards []*domain.Flashcard
	for _, c := range r.cards {
		if c.OwnerID == ownerID {
			cards = append(cards, cloneCard(c))
		}
	}

	sort.Slice(cards, func(i, j int) bool {
		return cards[i].CreatedAt.Before(cards[j].CreatedAt)
	})

	return cards, nil
}

func (r *InMemoryFlashcardRepository) Update(ctx context.Context, card *domain.Flashcard) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.cards[card.ID]
	if !ok {
		return domain.ErrCardNotFound
	}
	if stored.Version != card.Version {
		return domain.ErrCardConflict
	}

	card.Version++
	card.UpdatedAt = time.Now().UTC()
	r.cards[card.ID] = cloneCard(card)
	return nil
}

func (r *InMemoryFlashcardRepository) Delete(ctx context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	card, ok := r.cards[id]
	if !ok || card.OwnerID != ownerID {
		return domain.ErrCardNotFound
	}

	delete(r.cards, id)
	return nil
}

func (r *InMemoryFlashcardRepository) ListDue(ctx context.Context, ownerID string, asOf time.Time, filter domain.DueFilter, limit, offset int) ([]*domain.Flashcard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []*domain.Flashcard
	for _, c := range r.cards {
		if c.OwnerID != ownerID || !c.IsDue(asOf) {
			continue
		}
		if filter.Subject != "" && c.Subject != filter.Subject {
			continue
		}
		due = append(due, cloneCard(c))
	}

	// Never-reviewed cards first (oldest created first), then
	// ascending next_review_at. Mirrors the Postgres NULLS FIRST sort.
	sort.Slice(due, func(i, j int) bool {
		a, b := due[i], due[j]
		switch {
		case a.NextReviewAt == nil && b.NextReviewAt == nil:
			return a.CreatedAt.Before(b.CreatedAt)
		case a.NextReviewAt == nil:
			return true
		case b.NextReviewAt == nil:
			return false
		case a.NextReviewAt.Equal(*b.NextReviewAt):
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.NextReviewAt.Before(*b.NextReviewAt)
		}
	})

	if offset >= len(due) {
		return []*domain.Flashcard{}, nil
	}
	due = due[offset:]
	if limit < len(due) {
		due = due[:limit]
	}

	return due, nil
}

func (r *InMemoryFlashcardRepository) ApplyReview(ctx context.Context, card *domain.Flashcard, record *domain.ReviewRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.cards[card.ID]
	if !ok {
		return domain.ErrCardNotFound
	}
	if stored.Version != card.Version {
		return domain.ErrCardConflict
	}

	if record.AppliedActionID != nil {
		for _, existing := range r.records {
			if existing.AppliedActionID != nil && *existing.AppliedActionID == *record.AppliedActionID {
				return domain.ErrActionAlreadyApplied
			}
		}
	}

	card.Version++
	card.UpdatedAt = time.Now().UTC()
	r.cards[card.ID] = cloneCard(card)

	copied := *record
	r.records = append(r.records, &copied)
	return nil
}

// Records exposes the stored review trail for assertions in tests.
func (r *InMemoryFlashcardRepository) Records() []*domain.ReviewRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.ReviewRecord, len(r.records))
	copy(out, r.records)
	return out
}

func (r *InMemoryFlashcardRepository) ListByFlashcard(ctx context.Context, flashcardID string, limit int) ([]*domain.ReviewRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []*domain.ReviewRecord
	for _, rec := range r.records {
		if rec.FlashcardID == flashcardID {
			copied := *rec
			records = append(records, &copied)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ReviewedAt.After(records[j].ReviewedAt)
	})

	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}

	return records, nil
}

func (r *InMemoryFlashcardRepository) ActionApplied(ctx context.Context, actionID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.AppliedActionID != nil && *rec.AppliedActionID == actionID {
			return true, nil
		}
	}
	return false, nil
}

type InMemoryStreakRepository struct {
	streaks map[string]*domain.StudyStreak

	mu sync.RWMutex
}

func NewInMemoryStreakRepository() *InMemoryStreakRepository {
	return &InMemoryStreakRepository{
		streaks: make(map[string]*domain.StudyStreak),
	}
}

func (r *InMemoryStreakRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.StudyStreak, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	streak, ok := r.streaks[ownerID]
	if !ok {
		return nil, domain.ErrStreakNotFound
	}

	copied := *streak
	if streak.LastStudyDate != nil {
		t := *streak.LastStudyDate
		copied.LastStudyDate = &t
	}
	return &copied, nil
}

func (r *InMemoryStreakRepository) Save(ctx context.Context, streak *domain.StudyStreak) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *streak
	if streak.LastStudyDate != nil {
		t := *streak.LastStudyDate
		copied.LastStudyDate = &t
	}
	r.streaks[streak.OwnerID] = &copied
	return nil
}

type InMemorySyncActionRepository struct {
	actions map[string]*domain.SyncAction

	mu sync.RWMutex
}

func NewInMemorySyncActionRepository() *InMemorySyncActionRepository {
	return &InMemorySyncActionRepository{
		actions: make(map[string]*domain.SyncAction),
	}
}

func cloneAction(a *domain.SyncAction) *domain.SyncAction {
	copied := *a
	copied.Payload = append([]byte(nil), a.Payload...)
	return &copied
}

func (r *InMemorySyncActionRepository) Create(ctx context.Context, action *domain.SyncAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.actions[action.ID] = cloneAction(action)
	return nil
}

func (r *InMemorySyncActionRepository) GetByID(ctx context.Context, id string) (*domain.SyncAction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	action, ok := r.actions[id]
	if !ok {
		return nil, domain.ErrActionNotFound
	}
	return cloneAction(action), nil
}

func (r *InMemorySyncActionRepository) Update(ctx context.Context, action *domain.SyncAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.actions[action.ID]; !ok {
		return domain.ErrActionNotFound
	}

	r.actions[action.ID] = cloneAction(action)
	return nil
}

func (r *InMemorySyncActionRepository) NextPending(ctx context.Context, ownerID string) (*domain.SyncAction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var next *domain.SyncAction
	for _, a := range r.actions {
		if a.OwnerID != ownerID || a.State != domain.SyncStatePending {
			continue
		}
		if next == nil || a.RecordedAt.Before(next.RecordedAt) {
			next = a
		}
	}

	if next == nil {
		return nil, nil
	}
	return cloneAction(next), nil
}

func (r *InMemorySyncActionRepository) ListByOwner(ctx context.Context, ownerID string, state domain.SyncActionState, limit int) ([]*domain.SyncAction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var actions []*domain.SyncAction
	for _, a := range r.actions {
		if a.OwnerID != ownerID {
			continue
		}
		if state != "" && a.State != state {
			continue
		}
		actions = append(actions, cloneAction(a))
	}

	sort.Slice(actions, func(i, j int) bool {
		return actions[i].RecordedAt.Before(actions[j].RecordedAt)
	})

	if limit > 0 && limit < len(actions) {
		actions = actions[:limit]
	}

	return actions, nil
}

func (r *InMemorySyncActionRepository) OwnersWithPending(ctx context.Context, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var owners []string
	for _, a := range r.actions {
		if a.State != domain.SyncStatePending || seen[a.OwnerID] {
			continue
		}
		seen[a.OwnerID] = true
		owners = append(owners, a.OwnerID)
		if limit > 0 && len(owners) >= limit {
			break
		}
	}

	return owners, nil
}
