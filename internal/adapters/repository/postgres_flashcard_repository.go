package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Pedrolamon/study-sub001/internal/core/domain"
)

type PostgresFlashcardRepository struct {
	db *sqlx.DB
}

func NewPostgresFlashcardRepository(db *sqlx.DB) *PostgresFlashcardRepository {
	return &PostgresFlashcardRepository{db: db}
}

// classify folds driver timeouts into the transient error class so the
// sync queue can tell a retryable failure from a caller error.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return err
}

// isUniqueViolation matches Postgres unique_violation (23505) from
// both wire drivers: pgx/stdlib (the one main connects with) and
// lib/pq.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func (r *PostgresFlashcardRepository) Create(ctx context.Context, card *domain.Flashcard) error {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}

	query := `
		INSERT INTO flashcards (
			id, owner_id, question, answer, subject, difficulty,
			current_interval, ease_factor, repetition_count, next_review_at,
			version, created_at, updated_at
		) VALUES (
			:id, :owner_id, :question, :answer, :subject, :difficulty,
			:current_interval, :ease_factor, :repetition_count, :next_review_at,
			:version, :created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, card)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrCardConflict
		}
		return classify(err)
	}
	return nil
}

func (r *PostgresFlashcardRepository) GetByID(ctx context.Context, id string) (*domain.Flashcard, error) {
	var card domain.Flashcard
	query := `SELECT * FROM flashcards WHERE id = $1`

	if err := r.db.GetContext(ctx, &card, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCardNotFound
		}
		return nil, classify(err)
	}
	return &card, nil
}

func (r *PostgresFlashcardRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Flashcard, error) {
	cards := []*domain.Flashcard{}

	query := `
		SELECT * FROM flashcards
		WHERE owner_id = $1
		ORDER BY created_at ASC`

	if err := r.db.SelectContext(ctx, &cards, query, ownerID); err != nil {
		return nil, classify(err)
	}
	return cards, nil
}

func (r *PostgresFlashcardRepository) Update(ctx context.Context, card *domain.Flashcard) error {
	card.Version++
	card.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE flashcards
		SET question = :question,
		    answer = :answer,
		    subject = :subject,
		    difficulty = :difficulty,
		    version = :version,
		    updated_at = :updated_at
		WHERE id = :id
		  AND version = :version - 1`

	result, err := r.db.NamedExecContext(ctx, query, card)
	if err != nil {
		return classify(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		exists, _ := r.exists(ctx, card.ID)
		if !exists {
			return domain.ErrCardNotFound
		}
		return domain.ErrCardConflict
	}

	return nil
}

func (r *PostgresFlashcardRepository) Delete(ctx context.Context, id, ownerID string) error {
	query := `DELETE FROM flashcards WHERE id = $1 AND owner_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return classify(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrCardNotFound
	}

	return nil
}

// ListDue is the due-set index: never-reviewed cards first (oldest
// created first), then overdue cards by ascending next_review_at.
// Schedule writes commit in the same transaction as the review record
// (ApplyReview), so this query never sees a stale next_review_at.
func (r *PostgresFlashcardRepository) ListDue(ctx context.Context, ownerID string, asOf time.Time, filter domain.DueFilter, limit, offset int) ([]*domain.Flashcard, error) {
	cards := []*domain.Flashcard{}

	query := `
		SELECT * FROM flashcards
		WHERE owner_id = $1
		  AND (next_review_at IS NULL OR next_review_at <= $2)`
	args := []interface{}{ownerID, asOf}

	if filter.Subject != "" {
		query += ` AND subject = $3`
		args = append(args, filter.Subject)
	}

	query += fmt.Sprintf(`
		ORDER BY next_review_at ASC NULLS FIRST, created_at ASC
		LIMIT %d OFFSET %d`, limit, offset)

	if err := r.db.SelectContext(ctx, &cards, query, args...); err != nil {
		return nil, classify(err)
	}
	return cards, nil
}

// ApplyReview persists the new schedule and the review record as one
// transaction, with the same optimistic version check as Update.
func (r *PostgresFlashcardRepository) ApplyReview(ctx context.Context, card *domain.Flashcard, record *domain.ReviewRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	card.Version++
	card.UpdatedAt = time.Now().UTC()

	cardQuery := `
		UPDATE flashcards
		SET current_interval = :current_interval,
		    ease_factor = :ease_factor,
		    repetition_count = :repetition_count,
		    next_review_at = :next_review_at,
		    version = :version,
		    updated_at = :updated_at
		WHERE id = :id
		  AND version = :version - 1`

	result, err := tx.NamedExecContext(ctx, cardQuery, card)
	if err != nil {
		return classify(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		exists, _ := r.exists(ctx, card.ID)
		if !exists {
			return domain.ErrCardNotFound
		}
		return domain.ErrCardConflict
	}

	recordQuery := `
		INSERT INTO review_records (
			id, flashcard_id, owner_id,
			response_quality, time_spent_ms,
			previous_interval, new_interval, ease_factor_after,
			applied_action_id, reviewed_at
		) VALUES (
			:id, :flashcard_id, :owner_id,
			:response_quality, :time_spent_ms,
			:previous_interval, :new_interval, :ease_factor_after,
			:applied_action_id, :reviewed_at
		)`

	if _, err := tx.NamedExecContext(ctx, recordQuery, record); err != nil {
		if isUniqueViolation(err) {
			// Unique index on applied_action_id: this replay already
			// happened; the rollback leaves no duplicate effect.
			return domain.ErrActionAlreadyApplied
		}
		return classify(err)
	}

	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

func (r *PostgresFlashcardRepository) exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, "SELECT count(*) FROM flashcards WHERE id = $1", id)
	return count > 0, err
}
