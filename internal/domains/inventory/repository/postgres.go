package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"inventory-service/internal/domains/inventory/model"
	outboxRepo "inventory-service/internal/domains/outbox/repository"
	"inventory-service/pkg/database"
)

// postgresRepository implements RepositoryInterface.
//
// All three write protocols lock batch rows with FOR UPDATE in ascending id
// order. Reserve derives the order by sorting the requested batch ids;
// Release gets it from the reservation query's ORDER BY. Breaking this
// ordering re-introduces deadlock risk.
type postgresRepository struct {
	pool   *pgxpool.Pool
	outbox outboxRepo.RepositoryInterface
}

// NewRepository creates a new PostgreSQL inventory repository. The outbox
// repository is injected so domain events are written inside the same
// transaction as the state change they describe.
func NewRepository(pool *pgxpool.Pool, outbox outboxRepo.RepositoryInterface) RepositoryInterface {
	return &postgresRepository{pool: pool, outbox: outbox}
}

// Reserve implements RepositoryInterface.Reserve.
func (r *postgresRepository) Reserve(ctx context.Context, orderID string, lines []model.ReserveLine, expiresAt *time.Time) error {
	err := database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		// 1. Idempotency probe, before any locks are taken.
		existing, err := fetchReservationsByOrder(ctx, tx, orderID, false)
		if err != nil {
			return err
		}

		switch model.ProbeReservations(existing, lines) {
		case model.MatchIdempotent:
			return nil
		case model.MatchConflict:
			return model.ErrOrderAlreadyReserved
		}

		// 2. Input validation.
		if err := model.ValidateLines(lines); err != nil {
			return err
		}

		// 3. Lock every requested batch in one query, ascending by id.
		batchIDs := model.SortedUniqueBatchIDs(lines)
		available, err := lockBatches(ctx, tx, batchIDs)
		if err != nil {
			return err
		}

		// 4. Inventory check against the locked quantities.
		remaining := available
		for _, line := range lines {
			avail, ok := remaining[line.BatchID]
			if !ok {
				return model.NewBatchNotFoundError(line.BatchID)
			}
			if avail < line.Quantity {
				return model.NewInsufficientInventoryError(line.BatchID, line.Quantity, avail)
			}
			remaining[line.BatchID] = avail - line.Quantity
		}

		// 5. Apply in input order: decrement, journal, reserve, emit.
		now := time.Now().UTC()
		for _, line := range lines {
			if _, err := tx.Exec(ctx, `
				UPDATE batches
				SET available_quantity = available_quantity - $2,
				    version = version + 1,
				    updated_at = NOW()
				WHERE id = $1
			`, line.BatchID, line.Quantity); err != nil {
				return fmt.Errorf("failed to decrement batch %d: %w", line.BatchID, err)
			}

			if err := insertLedgerEntry(ctx, tx, ledgerEntry{
				BatchID:       line.BatchID,
				Type:          model.LedgerTypeOrderAllocate,
				QuantityDelta: -line.Quantity,
				Source:        model.SourceNabisOrder,
				ReferenceID:   &orderID,
			}); err != nil {
				return err
			}

			if _, err := tx.Exec(ctx, `
				INSERT INTO reservations (order_id, batch_id, quantity, status, created_at, updated_at, expires_at)
				VALUES ($1, $2, $3, 'PENDING', NOW(), NOW(), $4)
			`, orderID, line.BatchID, line.Quantity, expiresAt); err != nil {
				return fmt.Errorf("failed to insert reservation: %w", err)
			}

			if _, err := r.outbox.InsertTx(ctx, tx, model.EventInventoryAllocated, model.AllocationEvent{
				OrderID:   orderID,
				BatchID:   line.BatchID,
				Quantity:  line.Quantity,
				Timestamp: now,
			}); err != nil {
				return err
			}
		}

		return nil
	})

	// Two concurrent Reserves for the same fresh order both pass the probe;
	// the unique (order_id, batch_id) constraint decides the loser.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return model.ErrOrderAlreadyReserved
	}

	return err
}

// Release implements RepositoryInterface.Release.
func (r *postgresRepository) Release(ctx context.Context, orderID, reason string) error {
	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		return r.releaseInTx(ctx, tx, orderID, reason, model.ReservationCancelled, false)
	})
}

// releaseInTx is the shared body of Release and the expiry sweep.
// dueOnly restricts the release to reservations whose expires_at passed.
func (r *postgresRepository) releaseInTx(ctx context.Context, tx pgx.Tx, orderID, reason, newStatus string, dueOnly bool) error {
	// 1. Lock the order's pending reservations, ascending by batch id.
	query := `
		SELECT id, order_id, batch_id, quantity, status, created_at, updated_at, expires_at
		FROM reservations
		WHERE order_id = $1 AND status = 'PENDING'
	`
	if dueOnly {
		query += ` AND expires_at IS NOT NULL AND expires_at <= NOW()`
	}
	query += `
		ORDER BY batch_id ASC
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, orderID)
	if err != nil {
		return fmt.Errorf("failed to lock reservations: %w", err)
	}

	reservations, err := scanReservations(rows)
	if err != nil {
		return err
	}

	// 2. Nothing pending: success if the order ever reserved, else 404.
	if len(reservations) == 0 {
		if dueOnly {
			return nil
		}
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM reservations WHERE order_id = $1)`, orderID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to probe reservations: %w", err)
		}
		if exists {
			return nil
		}
		return model.ErrOrderNotFound
	}

	// 3. Lock the batch rows, ascending by id.
	batchIDs := make([]int64, 0, len(reservations))
	for _, res := range reservations {
		batchIDs = append(batchIDs, res.BatchID)
	}
	if _, err := lockBatches(ctx, tx, batchIDs); err != nil {
		return err
	}

	// 4. Give the quantities back, journal, cancel, emit.
	now := time.Now().UTC()
	for _, res := range reservations {
		if _, err := tx.Exec(ctx, `
			UPDATE batches
			SET available_quantity = available_quantity + $2,
			    version = version + 1,
			    updated_at = NOW()
			WHERE id = $1
		`, res.BatchID, res.Quantity); err != nil {
			return fmt.Errorf("failed to restore batch %d: %w", res.BatchID, err)
		}

		if err := insertLedgerEntry(ctx, tx, ledgerEntry{
			BatchID:       res.BatchID,
			Type:          model.LedgerTypeOrderRelease,
			QuantityDelta: res.Quantity,
			Source:        model.SourceNabisOrder,
			ReferenceID:   &orderID,
		}); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE reservations SET status = $2, updated_at = NOW() WHERE id = $1
		`, res.ID, newStatus); err != nil {
			return fmt.Errorf("failed to update reservation status: %w", err)
		}

		if _, err := r.outbox.InsertTx(ctx, tx, model.EventInventoryReleased, model.AllocationEvent{
			OrderID:   orderID,
			BatchID:   res.BatchID,
			Quantity:  res.Quantity,
			Reason:    reason,
			Timestamp: now,
		}); err != nil {
			return err
		}
	}

	return nil
}

// Adjust implements RepositoryInterface.Adjust.
func (r *postgresRepository) Adjust(ctx context.Context, batchID int64, delta int, reason, source string) (int, error) {
	return database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) (int, error) {
		var available, total int
		err := tx.QueryRow(ctx, `
			SELECT available_quantity, total_quantity
			FROM batches
			WHERE id = $1
			FOR UPDATE
		`, batchID).Scan(&available, &total)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, model.NewBatchNotFoundError(batchID)
			}
			return 0, fmt.Errorf("failed to lock batch: %w", err)
		}

		newAvailable := available + delta
		if newAvailable < 0 || newAvailable > total {
			return 0, fmt.Errorf("%w: adjustment of %d would move available from %d outside [0, %d]",
				model.ErrInvalidQuantity, delta, available, total)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE batches
			SET available_quantity = $2, version = version + 1, updated_at = NOW()
			WHERE id = $1
		`, batchID, newAvailable); err != nil {
			return 0, fmt.Errorf("failed to adjust batch: %w", err)
		}

		if err := insertLedgerEntry(ctx, tx, ledgerEntry{
			BatchID:       batchID,
			Type:          model.LedgerTypeAdjustment,
			QuantityDelta: delta,
			Source:        source,
			Metadata:      map[string]interface{}{"reason": reason, "previous": available, "new": newAvailable},
		}); err != nil {
			return 0, err
		}

		if _, err := r.outbox.InsertTx(ctx, tx, model.EventInventoryAdjusted, model.AdjustmentEvent{
			BatchID:       batchID,
			QuantityDelta: delta,
			NewAvailable:  newAvailable,
			Source:        source,
			Reason:        reason,
			Timestamp:     time.Now().UTC(),
		}); err != nil {
			return 0, err
		}

		return newAvailable, nil
	})
}

// ExpireDueReservations implements RepositoryInterface.ExpireDueReservations.
// Orders are swept one transaction each so a single bad order cannot wedge
// the whole sweep.
func (r *postgresRepository) ExpireDueReservations(ctx context.Context, now time.Time, limit int) (int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT order_id
		FROM reservations
		WHERE status = 'PENDING' AND expires_at IS NOT NULL AND expires_at <= $1
		LIMIT $2
	`, now, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to find due reservations: %w", err)
	}

	var orderIDs []string
	for rows.Next() {
		var orderID string
		if err := rows.Scan(&orderID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan order id: %w", err)
		}
		orderIDs = append(orderIDs, orderID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating due reservations: %w", err)
	}

	swept := 0
	for _, orderID := range orderIDs {
		err := database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
			return r.releaseInTx(ctx, tx, orderID, "reservation_expired", model.ReservationExpired, true)
		})
		if err != nil {
			return swept, fmt.Errorf("failed to expire order %s: %w", orderID, err)
		}
		swept++
	}

	return swept, nil
}

// RecordOutboundMirror implements RepositoryInterface.RecordOutboundMirror.
func (r *postgresRepository) RecordOutboundMirror(ctx context.Context, batchID int64, action, orderID string) error {
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO inventory_ledger (batch_id, type, quantity_delta, source, reference_id, metadata, created_at)
		VALUES ($1, $2, 0, $3, $4, $5, NOW())
	`, batchID, model.LedgerTypeAdjustment, model.SourceWmsOutbound, orderID,
		map[string]interface{}{"action": action},
	); err != nil {
		return fmt.Errorf("failed to record outbound mirror: %w", err)
	}
	return nil
}

// CreateSKU implements RepositoryInterface.CreateSKU.
func (r *postgresRepository) CreateSKU(ctx context.Context, sku *model.SKU) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO skus (code, name) VALUES ($1, $2) RETURNING id
	`, sku.Code, sku.Name).Scan(&sku.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.ErrSKUAlreadyExists
		}
		return fmt.Errorf("failed to insert sku: %w", err)
	}

	return nil
}

// GetSKUByCode implements RepositoryInterface.GetSKUByCode.
func (r *postgresRepository) GetSKUByCode(ctx context.Context, code string) (*model.SKU, error) {
	var sku model.SKU
	err := r.pool.QueryRow(ctx, `
		SELECT id, code, name FROM skus WHERE code = $1
	`, code).Scan(&sku.ID, &sku.Code, &sku.Name)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: code=%s", model.ErrSKUNotFound, code)
		}
		return nil, fmt.Errorf("failed to get sku by code: %w", err)
	}

	return &sku, nil
}

// CreateBatch implements RepositoryInterface.CreateBatch. The initial
// available quantity is journaled as a RECEIPT entry so the ledger sums to
// the live value from the very first row.
func (r *postgresRepository) CreateBatch(ctx context.Context, batch *model.Batch) error {
	err := database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		batch.AvailableQuantity = batch.TotalQuantity - batch.UnallocatableQuantity
		if batch.AvailableQuantity < 0 {
			return model.ErrInvalidQuantity
		}
		batch.Version = 1

		err := tx.QueryRow(ctx, `
			INSERT INTO batches (
				sku_id, external_batch_id, lot_number, expires_at,
				total_quantity, unallocatable_quantity, available_quantity,
				version, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			RETURNING id, updated_at
		`, batch.SKUID, batch.ExternalBatchID, batch.LotNumber, batch.ExpiresAt,
			batch.TotalQuantity, batch.UnallocatableQuantity, batch.AvailableQuantity,
			batch.Version,
		).Scan(&batch.ID, &batch.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}

		if batch.AvailableQuantity > 0 {
			if err := insertLedgerEntry(ctx, tx, ledgerEntry{
				BatchID:       batch.ID,
				Type:          model.LedgerTypeReceipt,
				QuantityDelta: batch.AvailableQuantity,
				Source:        model.SourceManualAdjustment,
				ReferenceID:   batch.ExternalBatchID,
			}); err != nil {
				return err
			}
		}

		return nil
	})

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return fmt.Errorf("%w: id=%d", model.ErrSKUNotFound, batch.SKUID)
	}

	return err
}

// GetBatchByID implements RepositoryInterface.GetBatchByID.
func (r *postgresRepository) GetBatchByID(ctx context.Context, id int64) (*model.Batch, error) {
	return r.getBatch(ctx, `WHERE id = $1`, id)
}

// GetBatchByExternalID implements RepositoryInterface.GetBatchByExternalID.
func (r *postgresRepository) GetBatchByExternalID(ctx context.Context, externalID string) (*model.Batch, error) {
	return r.getBatch(ctx, `WHERE external_batch_id = $1`, externalID)
}

func (r *postgresRepository) getBatch(ctx context.Context, where string, arg interface{}) (*model.Batch, error) {
	var b model.Batch
	err := r.pool.QueryRow(ctx, `
		SELECT id, sku_id, external_batch_id, lot_number, expires_at,
		       total_quantity, unallocatable_quantity, available_quantity,
		       version, updated_at
		FROM batches
	`+where, arg).Scan(
		&b.ID, &b.SKUID, &b.ExternalBatchID, &b.LotNumber, &b.ExpiresAt,
		&b.TotalQuantity, &b.UnallocatableQuantity, &b.AvailableQuantity,
		&b.Version, &b.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return &b, nil
}

// ListAvailableBatches implements RepositoryInterface.ListAvailableBatches.
// Read-only: no locks, last committed snapshot, safe alongside writers.
func (r *postgresRepository) ListAvailableBatches(ctx context.Context, skuCode string) ([]model.Batch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.id, b.sku_id, b.external_batch_id, b.lot_number, b.expires_at,
		       b.total_quantity, b.unallocatable_quantity, b.available_quantity,
		       b.version, b.updated_at
		FROM batches b
		JOIN skus s ON b.sku_id = s.id
		WHERE s.code = $1
		ORDER BY b.expires_at ASC NULLS LAST, b.id ASC
	`, skuCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	batches := make([]model.Batch, 0, 8)
	for rows.Next() {
		var b model.Batch
		if err := rows.Scan(
			&b.ID, &b.SKUID, &b.ExternalBatchID, &b.LotNumber, &b.ExpiresAt,
			&b.TotalQuantity, &b.UnallocatableQuantity, &b.AvailableQuantity,
			&b.Version, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}

	return batches, nil
}

// ===================================
// SHARED HELPERS
// ===================================

// lockBatches acquires FOR UPDATE locks on the given batches in ascending
// id order and returns their available quantities. Absent ids are simply
// missing from the map.
func lockBatches(ctx context.Context, tx pgx.Tx, batchIDs []int64) (map[int64]int, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, available_quantity
		FROM batches
		WHERE id = ANY($1)
		ORDER BY id ASC
		FOR UPDATE
	`, batchIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to lock batches: %w", err)
	}
	defer rows.Close()

	available := make(map[int64]int, len(batchIDs))
	for rows.Next() {
		var id int64
		var avail int
		if err := rows.Scan(&id, &avail); err != nil {
			return nil, fmt.Errorf("failed to scan locked batch: %w", err)
		}
		available[id] = avail
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locked batches: %w", err)
	}

	return available, nil
}

type ledgerEntry struct {
	BatchID       int64
	Type          string
	QuantityDelta int
	Source        string
	ReferenceID   *string
	Metadata      map[string]interface{}
}

func insertLedgerEntry(ctx context.Context, tx pgx.Tx, entry ledgerEntry) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO inventory_ledger (batch_id, type, quantity_delta, source, reference_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, entry.BatchID, entry.Type, entry.QuantityDelta, entry.Source, entry.ReferenceID, entry.Metadata); err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

func fetchReservationsByOrder(ctx context.Context, tx pgx.Tx, orderID string, forUpdate bool) ([]model.Reservation, error) {
	query := `
		SELECT id, order_id, batch_id, quantity, status, created_at, updated_at, expires_at
		FROM reservations
		WHERE order_id = $1
		ORDER BY batch_id ASC
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	rows, err := tx.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reservations: %w", err)
	}

	return scanReservations(rows)
}

func scanReservations(rows pgx.Rows) ([]model.Reservation, error) {
	defer rows.Close()

	var reservations []model.Reservation
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(
			&res.ID, &res.OrderID, &res.BatchID, &res.Quantity,
			&res.Status, &res.CreatedAt, &res.UpdatedAt, &res.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservations: %w", err)
	}

	return reservations, nil
}
