package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Pedrolamon/study-sub001/internal/core/domain"
)

type PostgresSyncActionRepository struct {
	db *sqlx.DB
}

func NewPostgresSyncActionRepository(db *sqlx.DB) *PostgresSyncActionRepository {
	return &PostgresSyncActionRepository{db: db}
}

func (r *PostgresSyncActionRepository) Create(ctx context.Context, action *domain.SyncAction) error {
	query := `
		INSERT INTO sync_actions (
			id, owner_id, kind, payload,
			state, attempt_count, max_attempts, last_error,
			recorded_at, updated_at
		) VALUES (
			:id, :owner_id, :kind, :payload,
			:state, :attempt_count, :max_attempts, :last_error,
			:recorded_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, action); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrActionAlreadyApplied
		}
		return classify(err)
	}
	return nil
}

func (r *PostgresSyncActionRepository) GetByID(ctx context.Context, id string) (*domain.SyncAction, error) {
	var action domain.SyncAction

	query := `SELECT * FROM sync_actions WHERE id = $1`

	if err := r.db.GetContext(ctx, &action, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrActionNotFound
		}
		return nil, classify(err)
	}
	return &action, nil
}

func (r *PostgresSyncActionRepository) Update(ctx context.Context, action *domain.SyncAction) error {
	action.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE sync_actions
		SET state = :state,
		    attempt_count = :attempt_count,
		    last_error = :last_error,
		    updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, action)
	if err != nil {
		return classify(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrActionNotFound
	}

	return nil
}

// NextPending returns the owner's oldest pending action; insertion
// order per owner is the replay order.
func (r *PostgresSyncActionRepository) NextPending(ctx context.Context, ownerID string) (*domain.SyncAction, error) {
	var action domain.SyncAction

	query := `
		SELECT * FROM sync_actions
		WHERE owner_id = $1 AND state = $2
		ORDER BY recorded_at ASC
		LIMIT 1`

	if err := r.db.GetContext(ctx, &action, query, ownerID, domain.SyncStatePending); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(err)
	}
	return &action, nil
}

func (r *PostgresSyncActionRepository) ListByOwner(ctx context.Context, ownerID string, state domain.SyncActionState, limit int) ([]*domain.SyncAction, error) {
	actions := []*domain.SyncAction{}

	query := `
		SELECT * FROM sync_actions
		WHERE owner_id = $1
		  AND ($2 = '' OR state = $2)
		ORDER BY recorded_at ASC
		LIMIT $3`

	if err := r.db.SelectContext(ctx, &actions, query, ownerID, string(state), limit); err != nil {
		return nil, classify(err)
	}
	return actions, nil
}

func (r *PostgresSyncActionRepository) OwnersWithPending(ctx context.Context, limit int) ([]string, error) {
	owners := []string{}

	query := `
		SELECT DISTINCT owner_id FROM sync_actions
		WHERE state = $1
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &owners, query, domain.SyncStatePending, limit); err != nil {
		return nil, classify(err)
	}
	return owners, nil
}
