package domain

import "context"

type StreakRepository interface {
	// GetByOwner retrieves the learner's streak row, or
	// ErrStreakNotFound before the first recorded study day.
	GetByOwner(ctx context.Context, ownerID string) (*StudyStreak, error)

	// Save upserts the streak row. One row per owner.
	Save(ctx context.Context, streak *StudyStreak) error
}
