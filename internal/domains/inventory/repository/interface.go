package repository

import (
	"context"
	"time"

	"inventory-service/internal/domains/inventory/model"
)

// RepositoryInterface is the reservation engine's data access contract.
// Reserve, Release and Adjust each run their whole protocol inside one
// transaction; the outbox rows for their events are written in that same
// transaction, so a rollback leaves no phantom events.
type RepositoryInterface interface {
	// Reserve runs the reservation protocol for an order. Idempotent for an
	// exact replay of the same lines.
	Reserve(ctx context.Context, orderID string, lines []model.ReserveLine, expiresAt *time.Time) error

	// Release gives back every PENDING reservation of an order. Idempotent
	// once the order has been released.
	Release(ctx context.Context, orderID, reason string) error

	// Adjust applies a signed delta to a batch's available quantity and
	// returns the new value.
	Adjust(ctx context.Context, batchID int64, delta int, reason, source string) (int, error)

	// ExpireDueReservations releases PENDING reservations whose expires_at
	// has passed, marking them EXPIRED. Returns the number of orders swept.
	ExpireDueReservations(ctx context.Context, now time.Time, limit int) (int, error)

	// RecordOutboundMirror appends a zero-delta ledger entry marking that an
	// allocation or release was mirrored to the WMS. Audit only; quantities
	// do not move.
	RecordOutboundMirror(ctx context.Context, batchID int64, action, orderID string) error

	CreateSKU(ctx context.Context, sku *model.SKU) error
	GetSKUByCode(ctx context.Context, code string) (*model.SKU, error)

	CreateBatch(ctx context.Context, batch *model.Batch) error
	GetBatchByID(ctx context.Context, id int64) (*model.Batch, error)
	GetBatchByExternalID(ctx context.Context, externalID string) (*model.Batch, error)

	// ListAvailableBatches is the query surface: all batches of a SKU code,
	// ordered by expires_at ascending nulls last, then id. Takes no locks.
	ListAvailableBatches(ctx context.Context, skuCode string) ([]model.Batch, error)
}
