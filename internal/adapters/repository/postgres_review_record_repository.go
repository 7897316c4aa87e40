package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/Pedrolamon/study-sub001/internal/core/domain"
)

// PostgresReviewRecordRepository reads the immutable review trail.
// Records are only ever written inside ApplyReview's transaction.
type PostgresReviewRecordRepository struct {
	db *sqlx.DB
}

func NewPostgresReviewRecordRepository(db *sqlx.DB) *PostgresReviewRecordRepository {
	return &PostgresReviewRecordRepository{db: db}
}

func (r *PostgresReviewRecordRepository) ListByFlashcard(ctx context.Context, flashcardID string, limit int) ([]*domain.ReviewRecord, error) {
	records := []*domain.ReviewRecord{}

	query := `
		SELECT * FROM review_records
		WHERE flashcard_id = $1
		ORDER BY reviewed_at DESC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &records, query, flashcardID, limit); err != nil {
		return nil, classify(err)
	}
	return records, nil
}

func (r *PostgresReviewRecordRepository) ActionApplied(ctx context.Context, actionID string) (bool, error) {
	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM review_records WHERE applied_action_id = $1)`

	if err := r.db.GetContext(ctx, &exists, query, actionID); err != nil {
		return false, classify(err)
	}
	return exists, nil
}
