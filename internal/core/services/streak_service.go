package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Pedrolamon/study-sub001/internal/core/domain"
)

// StreakService derives continuous-study-day counters from review
// event timestamps. It owns all writes to StudyStreak rows.
type StreakService struct {
	repo      domain.StreakRepository
	snapshots SnapshotInvalidator
	locks     *OwnerLocks
}

func NewStreakService(repo domain.StreakRepository, snapshots SnapshotInvalidator, locks *OwnerLocks) *StreakService {
	return &StreakService{
		repo:      repo,
		snapshots: snapshots,
		locks:     locks,
	}
}

// Get returns the learner's streak. Before the first recorded study
// day a zero-valued streak is returned instead of an error, so read
// paths never have to special-case new learners.
func (s *StreakService) Get(ctx context.Context, ownerID string) (*domain.StudyStreak, error) {
	streak, err := s.repo.GetByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrStreakNotFound) {
			return domain.NewStudyStreak(ownerID)
		}
		return nil, err
	}
	return streak, nil
}

// RecordStudyEvent counts one study event towards the learner's
// streak. The event instant is reduced to a calendar date in loc
// before the transition table applies. Events dated before the last
// recorded day are rejected with domain.ErrStreakOutOfOrder.
func (s *StreakService) RecordStudyEvent(ctx context.Context, ownerID string, at time.Time, loc *time.Location) (*domain.StudyStreak, error) {
	unlock := s.locks.Lock(ownerID)
	defer unlock()

	return s.recordLocked(ctx, ownerID, at, loc)
}

// canRecordLocked checks day ordering for a prospective study event
// without writing anything. The review pipeline calls it before the
// card update commits, so an out-of-order rejection never leaves
// partial state behind.
func (s *StreakService) canRecordLocked(ctx context.Context, ownerID string, at time.Time, loc *time.Location) error {
	streak, err := s.repo.GetByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrStreakNotFound) {
			return nil
		}
		return err
	}

	if streak.LastStudyDate != nil && domain.NormalizeStudyDate(at, loc).Before(*streak.LastStudyDate) {
		return domain.ErrStreakOutOfOrder
	}
	return nil
}

// recordLocked is RecordStudyEvent for callers already holding the
// owner lock (the review pipeline and the sync queue).
func (s *StreakService) recordLocked(ctx context.Context, ownerID string, at time.Time, loc *time.Location) (*domain.StudyStreak, error) {
	streak, err := s.repo.GetByOwner(ctx, ownerID)
	if err != nil {
		if !errors.Is(err, domain.ErrStreakNotFound) {
			return nil, err
		}
		streak, err = domain.NewStudyStreak(ownerID)
		if err != nil {
			return nil, err
		}
	}

	changed, err := streak.RecordStudyDay(domain.NormalizeStudyDate(at, loc))
	if err != nil {
		return nil, err
	}
	if !changed {
		return streak, nil
	}

	if err := s.repo.Save(ctx, streak); err != nil {
		return nil, fmt.Errorf("failed to save streak: %w", err)
	}

	if err := s.snapshots.Invalidate(ctx, ownerID, SnapshotKindStreak); err != nil {
		log.Printf("[CACHE] Failed to invalidate streak snapshot for %s: %v", ownerID, err)
	}

	return streak, nil
}
