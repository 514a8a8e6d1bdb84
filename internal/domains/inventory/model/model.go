package model

import (
	"time"
)

// SKU is a product identifier. Immutable after creation; one SKU has many
// batches.
type SKU struct {
	ID   int64   `json:"id"`
	Code string  `json:"code"`
	Name *string `json:"name,omitempty"`
}

// Batch is a physical lot of a SKU with its own tracked quantities. The
// batch row is the concurrency unit: every writer takes an exclusive row
// lock before touching the quantity columns, always in ascending batch id
// order.
type Batch struct {
	ID                    int64      `json:"id"`
	SKUID                 int64      `json:"sku_id"`
	ExternalBatchID       *string    `json:"external_batch_id,omitempty"`
	LotNumber             *string    `json:"lot_number,omitempty"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
	TotalQuantity         int        `json:"total_quantity"`
	UnallocatableQuantity int        `json:"unallocatable_quantity"`
	AvailableQuantity     int        `json:"available_quantity"`
	Version               int        `json:"version"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// Ledger entry types.
const (
	LedgerTypeReceipt       = "RECEIPT"
	LedgerTypeOrderAllocate = "ORDER_ALLOCATE"
	LedgerTypeOrderRelease  = "ORDER_RELEASE"
	LedgerTypeAdjustment    = "ADJUSTMENT"
)

// Ledger entry sources.
const (
	SourceNabisOrder       = "NABIS_ORDER"
	SourceWmsSync          = "WMS_SYNC"
	SourceManualAdjustment = "MANUAL_ADJUSTMENT"
	SourceWmsOutbound      = "WMS_OUTBOUND"
)

// LedgerEntry is the append-only journal of quantity changes. The signed sum
// of deltas per batch plus the initial quantity must always equal the
// batch's available quantity.
type LedgerEntry struct {
	ID            int64                  `json:"id"`
	BatchID       int64                  `json:"batch_id"`
	Type          string                 `json:"type"`
	QuantityDelta int                    `json:"quantity_delta"`
	Source        string                 `json:"source"`
	ReferenceID   *string                `json:"reference_id,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// Reservation statuses.
const (
	ReservationPending   = "PENDING"
	ReservationConfirmed = "CONFIRMED"
	ReservationCancelled = "CANCELLED"
	ReservationExpired   = "EXPIRED"
)

// Reservation is a claim that an order holds a quantity from a batch.
// At most one row per (order_id, batch_id), enforced by a unique constraint.
type Reservation struct {
	ID        int64      `json:"id"`
	OrderID   string     `json:"order_id"`
	BatchID   int64      `json:"batch_id"`
	Quantity  int        `json:"quantity"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ReserveLine is one requested (batch, quantity) pair of a Reserve call.
type ReserveLine struct {
	BatchID  int64 `json:"batchId"`
	Quantity int   `json:"quantity"`
}
