package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Pedrolamon/study-sub001/internal/core/domain"
	"github.com/Pedrolamon/study-sub001/internal/core/scheduler"
)

// ReviewService is the write path for review outcomes: it runs the
// scheduler, persists card update and review record atomically,
// advances the streak and invalidates affected snapshots.
type ReviewService struct {
	cards     domain.FlashcardRepository
	records   domain.ReviewRecordRepository
	streaks   *StreakService
	snapshots SnapshotInvalidator
	locks     *OwnerLocks

	now func() time.Time
}

func NewReviewService(
	cards domain.FlashcardRepository,
	records domain.ReviewRecordRepository,
	streaks *StreakService,
	snapshots SnapshotInvalidator,
	locks *OwnerLocks,
) *ReviewService {
	return &ReviewService{
		cards:     cards,
		records:   records,
		streaks:   streaks,
		snapshots: snapshots,
		locks:     locks,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type SubmitReviewInput struct {
	OwnerID         string
	FlashcardID     string
	ResponseQuality int
	TimeSpentMs     int

	// ActionID is set when the review is an offline-action replay.
	// A non-empty ActionID makes the submission idempotent.
	ActionID string

	// ReviewedAt overrides the review instant for replays; zero means
	// now.
	ReviewedAt time.Time

	// Location is the learner's time zone for streak day counting.
	// Nil means UTC.
	Location *time.Location
}

// SubmitReview applies one review outcome under the owner's lock.
func (s *ReviewService) SubmitReview(ctx context.Context, input SubmitReviewInput) (*scheduler.Result, error) {
	unlock := s.locks.Lock(input.OwnerID)
	defer unlock()

	return s.submitLocked(ctx, input)
}

func (s *ReviewService) submitLocked(ctx context.Context, input SubmitReviewInput) (*scheduler.Result, error) {
	if input.ActionID != "" {
		applied, err := s.records.ActionApplied(ctx, input.ActionID)
		if err != nil {
			return nil, err
		}
		if applied {
			return nil, domain.ErrActionAlreadyApplied
		}
	}

	card, err := s.cards.GetByID(ctx, input.FlashcardID)
	if err != nil {
		return nil, err
	}
	if card.OwnerID != input.OwnerID {
		return nil, domain.ErrUnauthorized
	}

	reviewedAt := input.ReviewedAt
	if reviewedAt.IsZero() {
		reviewedAt = s.now()
	}

	// Day ordering is checked before anything commits: a live
	// submission dated before the last counted study day is rejected
	// whole, never with the review already persisted.
	if input.ActionID == "" {
		if err := s.streaks.canRecordLocked(ctx, input.OwnerID, reviewedAt, input.Location); err != nil {
			return nil, err
		}
	}

	result, err := scheduler.Schedule(card, input.ResponseQuality, input.TimeSpentMs, reviewedAt)
	if err != nil {
		return nil, err
	}

	if input.ActionID != "" {
		actionID := input.ActionID
		result.Record.AppliedActionID = &actionID
	}

	if err := card.ApplySchedule(result.Interval, result.RepetitionCount, result.EaseFactor, result.NextReviewAt); err != nil {
		return nil, err
	}

	// Card update and record insert commit as one transaction; the
	// due query reads the same rows, so it can never observe a stale
	// next_review_at.
	if err := s.cards.ApplyReview(ctx, card, result.Record); err != nil {
		return nil, err
	}

	if _, err := s.streaks.recordLocked(ctx, input.OwnerID, reviewedAt, input.Location); err != nil {
		// A replayed review dated before the last counted study day
		// cannot extend the streak; the review itself stands.
		if input.ActionID != "" && errors.Is(err, domain.ErrStreakOutOfOrder) {
			log.Printf("[SYNC] Replayed review %s predates last study day for %s, streak unchanged", input.ActionID, input.OwnerID)
		} else {
			return nil, err
		}
	}

	s.invalidate(ctx, input.OwnerID)

	return result, nil
}

func (s *ReviewService) invalidate(ctx context.Context, ownerID string) {
	for _, kind := range []string{SnapshotKindDueQueue, SnapshotKindFlashcards} {
		if err := s.snapshots.Invalidate(ctx, ownerID, kind); err != nil {
			log.Printf("[CACHE] Failed to invalidate %s snapshot for %s: %v", kind, ownerID, err)
		}
	}
}

// History returns a card's review trail, newest first, after an
// ownership check.
func (s *ReviewService) History(ctx context.Context, ownerID, flashcardID string, limit int) ([]*domain.ReviewRecord, error) {
	card, err := s.cards.GetByID(ctx, flashcardID)
	if err != nil {
		return nil, err
	}
	if card.OwnerID != ownerID {
		return nil, domain.ErrUnauthorized
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	return s.records.ListByFlashcard(ctx, flashcardID, limit)
}
