package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Pedrolamon/study-sub001/internal/core/domain"
)

const defaultAttemptTimeout = 5 * time.Second

// SyncService is the durable queue for actions recorded while a client
// was offline. Each action is replayed through the same engine path a
// live request would take, oldest first per owner, until it is
// confirmed applied or permanently failed.
type SyncService struct {
	actions domain.SyncActionRepository
	review  *ReviewService
	cards   *FlashcardService
	streaks *StreakService
	locks   *OwnerLocks

	attemptTimeout time.Duration
}

func NewSyncService(
	actions domain.SyncActionRepository,
	review *ReviewService,
	cards *FlashcardService,
	streaks *StreakService,
	locks *OwnerLocks,
) *SyncService {
	return &SyncService{
		actions:        actions,
		review:         review,
		cards:          cards,
		streaks:        streaks,
		locks:          locks,
		attemptTimeout: defaultAttemptTimeout,
	}
}

// SyncReport summarizes one replay pass over an owner's queue.
type SyncReport struct {
	Applied int `json:"applied"`
	Failed  int `json:"failed"`
}

// Enqueue records an offline action in Pending state. Malformed
// payloads are rejected here, before anything is persisted.
func (s *SyncService) Enqueue(ctx context.Context, ownerID string, kind domain.SyncActionKind, payload json.RawMessage) (*domain.SyncAction, error) {
	action, err := domain.NewSyncAction(ownerID, kind, payload, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.actions.Create(ctx, action); err != nil {
		return nil, err
	}

	return action, nil
}

// ListActions exposes the queue for audit, oldest first.
func (s *SyncService) ListActions(ctx context.Context, ownerID string, state domain.SyncActionState, limit int) ([]*domain.SyncAction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.actions.ListByOwner(ctx, ownerID, state, limit)
}

// ProcessPending drains the owner's pending actions in recording
// order. A transient failure stops the pass: later actions depend on
// earlier state and must not jump the queue. A permanently failed
// action can never succeed, so processing continues past it.
//
// Returns ErrRetryExhausted alongside the report when an action ran
// out of retry attempts during this pass.
func (s *SyncService) ProcessPending(ctx context.Context, ownerID string) (SyncReport, error) {
	var report SyncReport

	for {
		done, exhausted, err := s.processNext(ctx, ownerID, &report)
		if err != nil {
			return report, err
		}
		if exhausted {
			return report, domain.ErrRetryExhausted
		}
		if done {
			return report, nil
		}
	}
}

// processNext applies at most one action under the owner lock. The
// lock is released between actions so a stuck queue never starves live
// requests, and is never held across a retry backoff.
func (s *SyncService) processNext(ctx context.Context, ownerID string, report *SyncReport) (done, exhausted bool, err error) {
	unlock := s.locks.Lock(ownerID)
	defer unlock()

	action, err := s.actions.NextPending(ctx, ownerID)
	if err != nil {
		return false, false, err
	}
	if action == nil {
		return true, false, nil
	}

	if err := action.MarkProcessing(); err != nil {
		return false, false, err
	}
	if err := s.actions.Update(ctx, action); err != nil {
		return false, false, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
	applyErr := s.apply(attemptCtx, action)
	cancel()

	switch {
	case applyErr == nil, errors.Is(applyErr, domain.ErrActionAlreadyApplied):
		if err := action.MarkCompleted(); err != nil {
			return false, false, err
		}
		report.Applied++

	case isPermanent(applyErr):
		log.Printf("[SYNC] Action %s permanently failed: %v", action.ID, applyErr)
		if err := action.MarkPermanentFailure(applyErr); err != nil {
			return false, false, err
		}
		report.Failed++

	default:
		transitionErr := action.MarkTransientFailure(applyErr)
		if err := s.actions.Update(ctx, action); err != nil {
			return false, false, err
		}
		if errors.Is(transitionErr, domain.ErrRetryExhausted) {
			log.Printf("[SYNC] Action %s failed after %d attempts: %v", action.ID, action.AttemptCount, applyErr)
			report.Failed++
			return false, true, nil
		}
		// Back to Pending; a later pass retries from here.
		return true, false, nil
	}

	if err := s.actions.Update(ctx, action); err != nil {
		return false, false, err
	}

	return false, false, nil
}

// apply dispatches the decoded payload to the engine operation that a
// live request would have hit.
func (s *SyncService) apply(ctx context.Context, action *domain.SyncAction) error {
	payload, err := action.DecodePayload()
	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case domain.ReviewSubmitPayload:
		_, err := s.review.submitLocked(ctx, SubmitReviewInput{
			OwnerID:         action.OwnerID,
			FlashcardID:     p.FlashcardID,
			ResponseQuality: p.ResponseQuality,
			TimeSpentMs:     p.TimeSpentMs,
			ActionID:        action.ID,
			ReviewedAt:      action.RecordedAt,
		})
		return err

	case domain.FlashcardEditPayload:
		_, err := s.cards.updateLocked(ctx, UpdateFlashcardInput{
			ID:         p.FlashcardID,
			OwnerID:    action.OwnerID,
			Question:   p.Question,
			Answer:     p.Answer,
			Subject:    p.Subject,
			Difficulty: p.Difficulty,
		})
		return err

	case domain.StudyEventPayload:
		_, err := s.streaks.recordLocked(ctx, action.OwnerID, p.OccurredAt, nil)
		if errors.Is(err, domain.ErrStreakOutOfOrder) {
			// The day was already superseded by a later event; the
			// replay is a no-op, not a failure.
			return nil
		}
		return err

	default:
		return fmt.Errorf("%w: %T", domain.ErrInvalidActionKind, payload)
	}
}

// isPermanent classifies failures that no retry can fix: validation,
// conflicts, missing or foreign resources. Everything else is treated
// as transient and consumes a retry attempt.
func isPermanent(err error) bool {
	permanent := []error{
		domain.ErrInvalidPayload,
		domain.ErrInvalidActionKind,
		domain.ErrInvalidQuality,
		domain.ErrInvalidTimeSpent,
		domain.ErrCardNotFound,
		domain.ErrCardConflict,
		domain.ErrUnauthorized,
		domain.ErrStreakOutOfOrder,
		domain.ErrCardQuestionEmpty,
		domain.ErrCardQuestionLong,
		domain.ErrCardAnswerEmpty,
		domain.ErrCardAnswerLong,
		domain.ErrCardSubjectLong,
		domain.ErrInvalidDifficulty,
	}

	for _, p := range permanent {
		if errors.Is(err, p) {
			return true
		}
	}
	return false
}
