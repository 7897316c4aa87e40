package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/Pedrolamon/study-sub001/internal/core/domain"
)

type PostgresStreakRepository struct {
	db *sqlx.DB
}

func NewPostgresStreakRepository(db *sqlx.DB) *PostgresStreakRepository {
	return &PostgresStreakRepository{db: db}
}

func (r *PostgresStreakRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.StudyStreak, error) {
	var streak domain.StudyStreak

	query := `SELECT * FROM study_streaks WHERE owner_id = $1`

	if err := r.db.GetContext(ctx, &streak, query, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrStreakNotFound
		}
		return nil, classify(err)
	}
	return &streak, nil
}

// Save upserts the single streak row per owner.
func (r *PostgresStreakRepository) Save(ctx context.Context, streak *domain.StudyStreak) error {
	query := `
		INSERT INTO study_streaks (
			owner_id, current_streak, longest_streak, last_study_date,
			study_days_this_week, study_days_this_month,
			created_at, updated_at
		) VALUES (
			:owner_id, :current_streak, :longest_streak, :last_study_date,
			:study_days_this_week, :study_days_this_month,
			:created_at, :updated_at
		)
		ON CONFLICT (owner_id) DO UPDATE SET
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			last_study_date = EXCLUDED.last_study_date,
			study_days_this_week = EXCLUDED.study_days_this_week,
			study_days_this_month = EXCLUDED.study_days_this_month,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.NamedExecContext(ctx, query, streak); err != nil {
		return classify(err)
	}
	return nil
}
