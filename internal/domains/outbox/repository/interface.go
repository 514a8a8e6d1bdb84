package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"inventory-service/internal/domains/outbox/model"
)

// RepositoryInterface is the outbox data access contract.
type RepositoryInterface interface {
	// InsertTx appends a PENDING event inside the caller's transaction.
	// Business repositories call this so the event commits or rolls back
	// with the state change that produced it.
	InsertTx(ctx context.Context, tx pgx.Tx, eventType string, payload interface{}) (uuid.UUID, error)

	// DrainPending claims up to limit PENDING events with a skip-locked
	// read, invokes publish for each, and transitions the row to SENT or
	// FAILED inside the same transaction. Skip-locked claiming lets
	// several dispatchers run without double-delivery.
	DrainPending(ctx context.Context, limit int, publish func(model.OutboxEvent) error) (sent int, failed int, err error)

	// Retry re-sets a FAILED event to PENDING (operator action).
	Retry(ctx context.Context, id uuid.UUID) error

	// ListFailed returns FAILED events for the operator surface.
	ListFailed(ctx context.Context, limit int) ([]model.OutboxEvent, error)

	// GetByID returns one event.
	GetByID(ctx context.Context, id uuid.UUID) (*model.OutboxEvent, error)
}
