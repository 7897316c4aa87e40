// Package scheduler implements the SM-2 spaced-repetition variant that
// decides when a flashcard must be reviewed next. It is pure
// arithmetic: no clock reads, no persistence, no side effects.
package scheduler

import (
	"math"
	"time"

	"github.com/Pedrolamon/study-sub001/internal/core/domain"
)

const (
	// PassingQuality separates a correct recall (>= 3) from a lapse.
	PassingQuality = 3

	firstInterval  = 1
	secondInterval = 6
)

// Result is the outcome of scheduling one review: the card's next
// scheduling state plus the audit record capturing before/after.
type Result struct {
	Interval        int
	RepetitionCount int
	EaseFactor      float64
	NextReviewAt    time.Time

	Record *domain.ReviewRecord
}

// Schedule computes the next review schedule for card given a response
// quality in [0,5] and the time spent answering. The card itself is
// not mutated; callers apply the result inside their own transaction.
func Schedule(card *domain.Flashcard, quality, timeSpentMs int, now time.Time) (*Result, error) {
	if quality < 0 || quality > 5 {
		return nil, domain.ErrInvalidQuality
	}
	if timeSpentMs < 0 {
		return nil, domain.ErrInvalidTimeSpent
	}

	interval, repetitions := nextInterval(card, quality)
	ease := nextEaseFactor(card.EaseFactor, quality)

	record, err := domain.NewReviewRecord(card.ID, card.OwnerID, quality, timeSpentMs)
	if err != nil {
		return nil, err
	}
	record.PreviousInterval = card.CurrentInterval
	record.NewInterval = interval
	record.EaseFactorAfter = ease
	record.ReviewedAt = now.UTC()

	return &Result{
		Interval:        interval,
		RepetitionCount: repetitions,
		EaseFactor:      ease,
		NextReviewAt:    now.UTC().AddDate(0, 0, interval),
		Record:          record,
	}, nil
}

// nextInterval applies the SM-2 interval table. A lapse resets the
// repetition count and sends the card back to a one-day interval.
func nextInterval(card *domain.Flashcard, quality int) (int, int) {
	if quality < PassingQuality {
		return 1, 0
	}

	repetitions := card.RepetitionCount + 1
	switch repetitions {
	case 1:
		return firstInterval, repetitions
	case 2:
		return secondInterval, repetitions
	default:
		return int(math.Round(float64(card.CurrentInterval) * card.EaseFactor)), repetitions
	}
}

// nextEaseFactor applies the SM-2 ease adjustment in both the pass and
// the lapse branch, floored at domain.MinEaseFactor.
func nextEaseFactor(ease float64, quality int) float64 {
	q := float64(quality)
	ease += 0.1 - (5-q)*(0.08+(5-q)*0.02)

	if ease < domain.MinEaseFactor {
		return domain.MinEaseFactor
	}
	return ease
}
