package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"inventory-service/internal/domains/sync/model"
)

// RepositoryInterface is the reconciliation engine's data access contract.
type RepositoryInterface interface {
	// CreateSyncRequest persists a new PENDING request and fills in its id.
	CreateSyncRequest(ctx context.Context, req *model.SyncRequest) error

	// GetSyncRequest returns one request.
	GetSyncRequest(ctx context.Context, id uuid.UUID) (*model.SyncRequest, error)

	// ListSyncRequests returns the most recent requests, newest first.
	ListSyncRequests(ctx context.Context, limit int) ([]model.SyncRequest, error)

	// ClaimSyncRequest moves a request to IN_PROGRESS. Returns false when
	// the request is already terminal, which is how a redelivered command
	// gets acknowledged without a second run.
	ClaimSyncRequest(ctx context.Context, id uuid.UUID) (bool, error)

	// MarkSyncDone finishes a request with its adjustment count.
	MarkSyncDone(ctx context.Context, id uuid.UUID, adjusted int) error

	// MarkSyncFailed finishes a request with an error message.
	MarkSyncFailed(ctx context.Context, id uuid.UUID, errMsg string) error

	// ApplySnapshot handles one WMS report in a single transaction: it
	// appends the snapshot row, and when snap.BatchID is set it locks that
	// batch and applies a compensating adjustment (ledger entry plus outbox
	// event) if the reported orderable quantity differs from the local
	// available quantity. A nil BatchID or an out-of-bounds report commits
	// the snapshot alone.
	ApplySnapshot(ctx context.Context, snap *model.WmsSnapshot) (model.ReconcileOutcome, error)

	// GetSyncState reads the singleton incremental-sync cursor.
	GetSyncState(ctx context.Context) (*model.SyncState, error)

	// UpdateSyncState advances the cursor after a completed full run.
	UpdateSyncState(ctx context.Context, token *string, at time.Time) error
}
