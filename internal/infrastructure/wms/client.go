package wms

import (
	"context"
	"encoding/json"
	"time"
)

// AllocationRequest mirrors a local allocation or release into the WMS.
type AllocationRequest struct {
	ExternalBatchID string `json:"externalBatchId"`
	Quantity        int    `json:"quantity"`
	OrderRef        string `json:"orderRef"`
}

// SnapshotQuery scopes a snapshot fetch. BatchID limits the snapshot to a
// single WMS batch; Since requests an incremental snapshot from a token
// previously returned by the WMS.
type SnapshotQuery struct {
	BatchID *string
	Since   *string
}

// SnapshotEntry is one WMS-side batch report.
type SnapshotEntry struct {
	WmsBatchID    string          `json:"wmsBatchId"`
	Orderable     int             `json:"orderable"`
	Unallocatable *int            `json:"unallocatable,omitempty"`
	ReportedAt    time.Time       `json:"reportedAt"`
	Raw           json.RawMessage `json:"-"`
}

// SnapshotResult is the full response of a snapshot call. NextToken, when
// set, is stored as the incremental cursor for the next unscoped sync.
type SnapshotResult struct {
	Entries   []SnapshotEntry
	NextToken *string
}

// Client is the WMS integration boundary. All calls are off the hot path;
// timeouts are enforced by the underlying HTTP client.
type Client interface {
	Allocate(ctx context.Context, req AllocationRequest) error
	Release(ctx context.Context, req AllocationRequest) error
	Snapshot(ctx context.Context, query SnapshotQuery) (*SnapshotResult, error)
}
