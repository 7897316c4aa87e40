package services

import (
	"context"
	"log"

	"github.com/Pedrolamon/study-sub001/internal/core/domain"
)

// FlashcardService is the card-management boundary. It creates and
// edits card content; scheduling fields are only ever touched by the
// review pipeline.
type FlashcardService struct {
	repo      domain.FlashcardRepository
	snapshots SnapshotInvalidator
	locks     *OwnerLocks
}

func NewFlashcardService(repo domain.FlashcardRepository, snapshots SnapshotInvalidator, locks *OwnerLocks) *FlashcardService {
	return &FlashcardService{
		repo:      repo,
		snapshots: snapshots,
		locks:     locks,
	}
}

type CreateFlashcardInput struct {
	OwnerID    string
	Question   string
	Answer     string
	Subject    string
	Difficulty int
}

type UpdateFlashcardInput struct {
	ID         string
	OwnerID    string
	Question   string
	Answer     string
	Subject    string
	Difficulty int

	// Version enables the optimistic-concurrency check; zero skips it
	// (offline replays are last-write-wins).
	Version int
}

func (s *FlashcardService) Create(ctx context.Context, input CreateFlashcardInput) (*domain.Flashcard, error) {
	card, err := domain.NewFlashcard(input.OwnerID, input.Question, input.Answer, input.Subject, input.Difficulty)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, card); err != nil {
		return nil, err
	}

	s.invalidate(ctx, input.OwnerID)

	return card, nil
}

func (s *FlashcardService) GetByID(ctx context.Context, id, ownerID string) (*domain.Flashcard, error) {
	card, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if card.OwnerID != ownerID {
		return nil, domain.ErrUnauthorized
	}
	return card, nil
}

func (s *FlashcardService) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Flashcard, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *FlashcardService) Update(ctx context.Context, input UpdateFlashcardInput) (*domain.Flashcard, error) {
	unlock := s.locks.Lock(input.OwnerID)
	defer unlock()

	return s.updateLocked(ctx, input)
}

func (s *FlashcardService) updateLocked(ctx context.Context, input UpdateFlashcardInput) (*domain.Flashcard, error) {
	card, err := s.GetByID(ctx, input.ID, input.OwnerID)
	if err != nil {
		return nil, err
	}

	if input.Version > 0 && card.Version != input.Version {
		return nil, domain.ErrCardConflict
	}

	if err := card.UpdateContent(input.Question, input.Answer, input.Subject, input.Difficulty); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, card); err != nil {
		return nil, err
	}

	s.invalidate(ctx, input.OwnerID)

	return card, nil
}

func (s *FlashcardService) Delete(ctx context.Context, id, ownerID string) error {
	unlock := s.locks.Lock(ownerID)
	defer unlock()

	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return err
	}

	s.invalidate(ctx, ownerID)

	return nil
}

func (s *FlashcardService) invalidate(ctx context.Context, ownerID string) {
	for _, kind := range []string{SnapshotKindFlashcards, SnapshotKindDueQueue} {
		if err := s.snapshots.Invalidate(ctx, ownerID, kind); err != nil {
			log.Printf("[CACHE] Failed to invalidate %s snapshot for %s: %v", kind, ownerID, err)
		}
	}
}
