package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Sync request statuses.
const (
	SyncPending    = "PENDING"
	SyncInProgress = "IN_PROGRESS"
	SyncDone       = "DONE"
	SyncFailed     = "FAILED"
)

// Sync scopes.
const (
	ScopeAll   = "all"
	ScopeBatch = "batch"
)

// SyncRequest tracks one reconciliation run from the operator's request to
// its terminal state. AdjustedCount is how many batches needed a
// compensating adjustment.
type SyncRequest struct {
	ID            uuid.UUID  `json:"id"`
	Scope         string     `json:"scope"`
	BatchID       *string    `json:"batchId,omitempty"` // external WMS batch id, scope=batch only
	Reason        string     `json:"reason"`
	Priority      int        `json:"priority"`
	Status        string     `json:"status"`
	AdjustedCount int        `json:"adjustedCount"`
	Error         *string    `json:"error,omitempty"`
	RequestedBy   string     `json:"requestedBy"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// WmsSnapshot is the raw quantity report received from the WMS for one
// batch, kept verbatim for auditing reconciliation decisions. BatchID is nil
// when the WMS reports a batch we never received; the snapshot is still
// persisted so the audit trail covers unmatched reports.
type WmsSnapshot struct {
	ID            int64           `json:"id"`
	BatchID       *int64          `json:"batch_id,omitempty"`
	WmsBatchID    string          `json:"wms_batch_id"`
	Orderable     int             `json:"orderable"`
	Unallocatable *int            `json:"unallocatable,omitempty"`
	ReportedAt    time.Time       `json:"reported_at"`
	Raw           json.RawMessage `json:"raw,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SyncState is the singleton cursor of incremental full syncs. Token is the
// WMS pagination token returned by the last completed run.
type SyncState struct {
	Token      *string    `json:"token,omitempty"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
}

// ForceWmsSyncCommand is the broker command that triggers a reconciliation
// run. Published with routing key wms.forceSync.
type ForceWmsSyncCommand struct {
	RequestID   uuid.UUID `json:"requestId"`
	Scope       string    `json:"scope"`
	BatchID     *string   `json:"batchId,omitempty"`
	RequestedBy string    `json:"requestedBy"`
	Timestamp   time.Time `json:"timestamp"`
}

// ReconcileOutcome summarizes how one snapshot entry was handled. Only the
// snapshot row exists when the entry was unmatched or its reported quantity
// fell outside the batch bounds.
type ReconcileOutcome struct {
	SnapshotID  int64
	BatchID     int64
	Delta       int
	Adjusted    bool
	OutOfBounds bool
}
