package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	invmodel "inventory-service/internal/domains/inventory/model"
	outboxRepo "inventory-service/internal/domains/outbox/repository"
	"inventory-service/internal/domains/sync/model"
	"inventory-service/pkg/database"
)

// postgresRepository implements RepositoryInterface.
type postgresRepository struct {
	pool   *pgxpool.Pool
	outbox outboxRepo.RepositoryInterface
}

// NewRepository creates a new PostgreSQL sync repository. Compensating
// adjustments write their outbox event through the injected repository so
// reconciliation emits InventoryAdjusted like any other write path.
func NewRepository(pool *pgxpool.Pool, outbox outboxRepo.RepositoryInterface) RepositoryInterface {
	return &postgresRepository{pool: pool, outbox: outbox}
}

// CreateSyncRequest implements RepositoryInterface.CreateSyncRequest.
func (r *postgresRepository) CreateSyncRequest(ctx context.Context, req *model.SyncRequest) error {
	req.ID = uuid.New()
	req.Status = model.SyncPending

	if _, err := r.pool.Exec(ctx, `
		INSERT INTO sync_requests (id, scope, batch_id, reason, priority, status, adjusted_count, requested_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'PENDING', 0, $6, NOW(), NOW())
	`, req.ID, req.Scope, req.BatchID, req.Reason, req.Priority, req.RequestedBy); err != nil {
		return fmt.Errorf("failed to insert sync request: %w", err)
	}

	return nil
}

// GetSyncRequest implements RepositoryInterface.GetSyncRequest.
func (r *postgresRepository) GetSyncRequest(ctx context.Context, id uuid.UUID) (*model.SyncRequest, error) {
	var req model.SyncRequest
	err := r.pool.QueryRow(ctx, `
		SELECT id, scope, batch_id, reason, priority, status, adjusted_count, error, requested_by, created_at, updated_at, completed_at
		FROM sync_requests
		WHERE id = $1
	`, id).Scan(&req.ID, &req.Scope, &req.BatchID, &req.Reason, &req.Priority, &req.Status, &req.AdjustedCount,
		&req.Error, &req.RequestedBy, &req.CreatedAt, &req.UpdatedAt, &req.CompletedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrSyncRequestNotFound
		}
		return nil, fmt.Errorf("failed to get sync request: %w", err)
	}

	return &req, nil
}

// ListSyncRequests implements RepositoryInterface.ListSyncRequests.
func (r *postgresRepository) ListSyncRequests(ctx context.Context, limit int) ([]model.SyncRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, scope, batch_id, reason, priority, status, adjusted_count, error, requested_by, created_at, updated_at, completed_at
		FROM sync_requests
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync requests: %w", err)
	}
	defer rows.Close()

	var requests []model.SyncRequest
	for rows.Next() {
		var req model.SyncRequest
		if err := rows.Scan(&req.ID, &req.Scope, &req.BatchID, &req.Reason, &req.Priority, &req.Status, &req.AdjustedCount,
			&req.Error, &req.RequestedBy, &req.CreatedAt, &req.UpdatedAt, &req.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync requests: %w", err)
	}

	return requests, nil
}

// ClaimSyncRequest implements RepositoryInterface.ClaimSyncRequest.
// PENDING and IN_PROGRESS both claim so a run interrupted by a crash can be
// resumed by the redelivered command.
func (r *postgresRepository) ClaimSyncRequest(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE sync_requests
		SET status = 'IN_PROGRESS', updated_at = NOW()
		WHERE id = $1 AND status IN ('PENDING', 'IN_PROGRESS')
	`, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim sync request: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, err := r.GetSyncRequest(ctx, id); err != nil {
			return false, err
		}
		// Exists but terminal.
		return false, nil
	}

	return true, nil
}

// MarkSyncDone implements RepositoryInterface.MarkSyncDone.
func (r *postgresRepository) MarkSyncDone(ctx context.Context, id uuid.UUID, adjusted int) error {
	if _, err := r.pool.Exec(ctx, `
		UPDATE sync_requests
		SET status = 'DONE', adjusted_count = $2, error = NULL, updated_at = NOW(), completed_at = NOW()
		WHERE id = $1
	`, id, adjusted); err != nil {
		return fmt.Errorf("failed to mark sync done: %w", err)
	}
	return nil
}

// MarkSyncFailed implements RepositoryInterface.MarkSyncFailed.
func (r *postgresRepository) MarkSyncFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	if _, err := r.pool.Exec(ctx, `
		UPDATE sync_requests
		SET status = 'FAILED', error = $2, updated_at = NOW(), completed_at = NOW()
		WHERE id = $1
	`, id, errMsg); err != nil {
		return fmt.Errorf("failed to mark sync failed: %w", err)
	}
	return nil
}

// ApplySnapshot implements RepositoryInterface.ApplySnapshot. The snapshot
// row and the compensating adjustment commit together, so a crash mid-entry
// never leaves an adjustment without its audit record or a duplicate
// snapshot on redelivery. Set-to-value semantics: the delta is computed
// against the available quantity read under the same lock the adjustment is
// applied under, so a concurrent Reserve cannot slip between read and write.
func (r *postgresRepository) ApplySnapshot(ctx context.Context, snap *model.WmsSnapshot) (model.ReconcileOutcome, error) {
	return database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) (model.ReconcileOutcome, error) {
		var outcome model.ReconcileOutcome

		err := tx.QueryRow(ctx, `
			INSERT INTO wms_snapshots (batch_id, wms_batch_id, orderable, unallocatable, reported_at, raw, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			RETURNING id, created_at
		`, snap.BatchID, snap.WmsBatchID, snap.Orderable, snap.Unallocatable, snap.ReportedAt, snap.Raw,
		).Scan(&snap.ID, &snap.CreatedAt)
		if err != nil {
			return outcome, fmt.Errorf("failed to insert wms snapshot: %w", err)
		}
		outcome.SnapshotID = snap.ID

		// Unmatched WMS batch: only the snapshot is recorded.
		if snap.BatchID == nil {
			return outcome, nil
		}

		batchID := *snap.BatchID
		outcome.BatchID = batchID
		reported := snap.Orderable

		var available, total int
		err = tx.QueryRow(ctx, `
			SELECT available_quantity, total_quantity
			FROM batches
			WHERE id = $1
			FOR UPDATE
		`, batchID).Scan(&available, &total)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return outcome, invmodel.NewBatchNotFoundError(batchID)
			}
			return outcome, fmt.Errorf("failed to lock batch: %w", err)
		}

		// A report outside [0, total] is bad data; keep the snapshot but
		// refuse to let it move local quantities.
		if reported < 0 || reported > total {
			outcome.OutOfBounds = true
			return outcome, nil
		}

		delta := reported - available
		outcome.Delta = delta
		if delta == 0 {
			return outcome, nil
		}

		if _, err := tx.Exec(ctx, `
			UPDATE batches
			SET available_quantity = $2, version = version + 1, updated_at = NOW()
			WHERE id = $1
		`, batchID, reported); err != nil {
			return outcome, fmt.Errorf("failed to apply reconciliation: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO inventory_ledger (batch_id, type, quantity_delta, source, reference_id, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
		`, batchID, invmodel.LedgerTypeAdjustment, delta, invmodel.SourceWmsSync, snap.WmsBatchID,
			map[string]interface{}{"previous": available, "new": reported},
		); err != nil {
			return outcome, fmt.Errorf("failed to insert ledger entry: %w", err)
		}

		if _, err := r.outbox.InsertTx(ctx, tx, invmodel.EventInventoryAdjusted, invmodel.AdjustmentEvent{
			BatchID:       batchID,
			QuantityDelta: delta,
			NewAvailable:  reported,
			Source:        invmodel.SourceWmsSync,
			Reason:        "wms_reconciliation",
			Timestamp:     time.Now().UTC(),
		}); err != nil {
			return outcome, err
		}

		outcome.Adjusted = true
		return outcome, nil
	})
}

// GetSyncState implements RepositoryInterface.GetSyncState. The table holds
// at most one row; no row yet means no completed full run.
func (r *postgresRepository) GetSyncState(ctx context.Context) (*model.SyncState, error) {
	var state model.SyncState
	err := r.pool.QueryRow(ctx, `
		SELECT token, last_sync_at FROM sync_state WHERE id = 1
	`).Scan(&state.Token, &state.LastSyncAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.SyncState{}, nil
		}
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	return &state, nil
}

// UpdateSyncState implements RepositoryInterface.UpdateSyncState.
func (r *postgresRepository) UpdateSyncState(ctx context.Context, token *string, at time.Time) error {
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO sync_state (id, token, last_sync_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET token = EXCLUDED.token, last_sync_at = EXCLUDED.last_sync_at
	`, token, at); err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}
	return nil
}
