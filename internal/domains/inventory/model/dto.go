package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ===================================
// REQUEST DTOs
// ===================================

// ReserveRequest is the hot-path reservation payload.
type ReserveRequest struct {
	OrderID string        `json:"orderId"`
	Lines   []ReserveLine `json:"lines"`
}

// Validate checks the envelope only. Line rules (non-empty, positive
// quantities) are enforced after the idempotency probe so an exact replay
// short-circuits first.
func (req ReserveRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.OrderID, validation.Required, validation.Length(1, 255)),
	)
}

// ReleaseRequest releases every pending reservation of an order.
type ReleaseRequest struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason,omitempty"`
}

func (req ReleaseRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.OrderID, validation.Required, validation.Length(1, 255)),
		validation.Field(&req.Reason, validation.Length(0, 500)),
	)
}

// AdjustRequest applies a signed manual correction to a batch.
type AdjustRequest struct {
	BatchID       int64  `json:"batchId"`
	QuantityDelta int    `json:"quantityDelta"`
	Reason        string `json:"reason"`
}

func (req AdjustRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.BatchID, validation.Required),
		validation.Field(&req.Reason, validation.Required, validation.Length(3, 500)),
	)
}

// CreateSKURequest registers a new product code.
type CreateSKURequest struct {
	Code string  `json:"code"`
	Name *string `json:"name,omitempty"`
}

func (req CreateSKURequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Code, validation.Required, validation.Length(1, 64)),
	)
}

// CreateBatchRequest receives stock into a new batch. The initial quantity
// is journaled as a RECEIPT ledger entry.
type CreateBatchRequest struct {
	SKUID                 int64      `json:"skuId"`
	ExternalBatchID       *string    `json:"externalBatchId,omitempty"`
	LotNumber             *string    `json:"lotNumber,omitempty"`
	ExpiresAt             *time.Time `json:"expiresAt,omitempty"`
	TotalQuantity         int        `json:"totalQuantity"`
	UnallocatableQuantity int        `json:"unallocatableQuantity"`
}

func (req CreateBatchRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.SKUID, validation.Required),
		validation.Field(&req.TotalQuantity, validation.Min(0)),
		validation.Field(&req.UnallocatableQuantity, validation.Min(0)),
	)
}

// ===================================
// RESPONSE DTOs
// ===================================

type ReserveResponse struct {
	Status  string `json:"status"`
	OrderID string `json:"orderId"`
}

type ReleaseResponse struct {
	Status  string `json:"status"`
	OrderID string `json:"orderId"`
}

type AdjustResponse struct {
	Status               string `json:"status"`
	NewAvailableQuantity int    `json:"newAvailableQuantity"`
}

// BatchAvailability is one row of the query surface, ordered soonest-expiry
// first with never-expiring batches last.
type BatchAvailability struct {
	BatchID           int64      `json:"batchId"`
	LotNumber         *string    `json:"lotNumber,omitempty"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
	TotalQuantity     int        `json:"totalQuantity"`
	AvailableQuantity int        `json:"availableQuantity"`
}

type AvailableInventoryResponse struct {
	SkuCode        string              `json:"skuCode"`
	TotalAvailable int                 `json:"totalAvailable"`
	Batches        []BatchAvailability `json:"batches"`
}
