package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"inventory-service/internal/domains/outbox/model"
)

// postgresRepository implements RepositoryInterface.
type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL outbox repository.
func NewRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

// InsertTx implements RepositoryInterface.InsertTx.
func (r *postgresRepository) InsertTx(ctx context.Context, tx pgx.Tx, eventType string, payload interface{}) (uuid.UUID, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	id := uuid.New()
	query := `
		INSERT INTO outbox_events (id, type, payload, status, retry_count, created_at, updated_at)
		VALUES ($1, $2, $3, 'PENDING', 0, NOW(), NOW())
	`

	if _, err := tx.Exec(ctx, query, id, eventType, body); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert outbox event: %w", err)
	}

	return id, nil
}

// DrainPending implements RepositoryInterface.DrainPending.
//
// The claim, the publish attempts and the status transitions all happen in
// one transaction. FOR UPDATE SKIP LOCKED means a concurrent dispatcher
// simply claims a disjoint set of rows. createdAt ordering preserves
// insertion order within a single business commit.
func (r *postgresRepository) DrainPending(ctx context.Context, limit int, publish func(model.OutboxEvent) error) (int, int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin outbox transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, type, payload, status, retry_count, error, created_at, updated_at
		FROM outbox_events
		WHERE status = 'PENDING'
		ORDER BY created_at ASC, id ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to select pending events: %w", err)
	}

	events, err := scanEvents(rows)
	if err != nil {
		return 0, 0, err
	}

	var sent, failed int
	for _, ev := range events {
		if pubErr := publish(ev); pubErr != nil {
			errMsg := pubErr.Error()
			if _, err := tx.Exec(ctx, `
				UPDATE outbox_events
				SET status = 'FAILED', retry_count = retry_count + 1, error = $2, updated_at = NOW()
				WHERE id = $1
			`, ev.ID, errMsg); err != nil {
				return 0, 0, fmt.Errorf("failed to mark event failed: %w", err)
			}
			failed++
			continue
		}

		if _, err := tx.Exec(ctx, `
			UPDATE outbox_events
			SET status = 'SENT', error = NULL, updated_at = NOW()
			WHERE id = $1
		`, ev.ID); err != nil {
			return 0, 0, fmt.Errorf("failed to mark event sent: %w", err)
		}
		sent++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to commit outbox transaction: %w", err)
	}

	return sent, failed, nil
}

// Retry implements RepositoryInterface.Retry.
func (r *postgresRepository) Retry(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE outbox_events
		SET status = 'PENDING', updated_at = NOW()
		WHERE id = $1 AND status = 'FAILED'
	`, id)
	if err != nil {
		return fmt.Errorf("failed to retry outbox event: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrEventNotRetriable
	}

	return nil
}

// ListFailed implements RepositoryInterface.ListFailed.
func (r *postgresRepository) ListFailed(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, type, payload, status, retry_count, error, created_at, updated_at
		FROM outbox_events
		WHERE status = 'FAILED'
		ORDER BY updated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed events: %w", err)
	}

	return scanEvents(rows)
}

// GetByID implements RepositoryInterface.GetByID.
func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.OutboxEvent, error) {
	var ev model.OutboxEvent
	err := r.pool.QueryRow(ctx, `
		SELECT id, type, payload, status, retry_count, error, created_at, updated_at
		FROM outbox_events
		WHERE id = $1
	`, id).Scan(&ev.ID, &ev.Type, &ev.Payload, &ev.Status, &ev.RetryCount, &ev.Error, &ev.CreatedAt, &ev.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get outbox event: %w", err)
	}

	return &ev, nil
}

func scanEvents(rows pgx.Rows) ([]model.OutboxEvent, error) {
	defer rows.Close()

	var events []model.OutboxEvent
	for rows.Next() {
		var ev model.OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.Payload, &ev.Status, &ev.RetryCount, &ev.Error, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox events: %w", err)
	}

	return events, nil
}
