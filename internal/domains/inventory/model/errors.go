package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ===================================
// DOMAIN ERRORS
// ===================================

var (
	// ErrInvalidQuantity is returned when lines are empty, a quantity is not
	// strictly positive, or an adjustment would violate a quantity bound.
	ErrInvalidQuantity = errors.New("quantity must be positive and within batch bounds")

	// ErrBatchNotFound is returned when a referenced batch does not exist.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrSKUNotFound is returned when a SKU code does not exist.
	ErrSKUNotFound = errors.New("sku not found")

	// ErrOrderNotFound is returned when no reservation exists for an order.
	ErrOrderNotFound = errors.New("no reservation found for order")

	// ErrInsufficientInventory is returned when requested exceeds available.
	ErrInsufficientInventory = errors.New("insufficient inventory available")

	// ErrOrderAlreadyReserved is returned when an order has reservations
	// that do not match the requested lines (idempotency conflict).
	ErrOrderAlreadyReserved = errors.New("order already has a different reservation")

	// ErrSKUAlreadyExists is returned when creating a duplicate SKU code.
	ErrSKUAlreadyExists = errors.New("sku code already exists")
)

// ===================================
// ERROR HELPERS
// ===================================

// NewBatchNotFoundError creates a detailed not found error.
func NewBatchNotFoundError(batchID int64) error {
	return fmt.Errorf("%w: batch_id=%d", ErrBatchNotFound, batchID)
}

// InsufficientInventoryError carries the context the HTTP boundary reports
// back to the caller.
type InsufficientInventoryError struct {
	BatchID   int64 `json:"batchId"`
	Requested int   `json:"requested"`
	Available int   `json:"available"`
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory: batch_id=%d requested=%d available=%d",
		e.BatchID, e.Requested, e.Available)
}

func (e *InsufficientInventoryError) Unwrap() error {
	return ErrInsufficientInventory
}

// NewInsufficientInventoryError creates the error with stock details.
func NewInsufficientInventoryError(batchID int64, requested, available int) error {
	return &InsufficientInventoryError{BatchID: batchID, Requested: requested, Available: available}
}

// CodeOf maps a domain error to its stable code and HTTP status. Unknown
// errors map to INTERNAL_ERROR; the handler logs those before responding.
func CodeOf(err error) (code string, status int) {
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		return "INVALID_QUANTITY", http.StatusBadRequest
	case errors.Is(err, ErrBatchNotFound):
		return "BATCH_NOT_FOUND", http.StatusNotFound
	case errors.Is(err, ErrSKUNotFound):
		return "SKU_NOT_FOUND", http.StatusNotFound
	case errors.Is(err, ErrOrderNotFound):
		return "ORDER_NOT_FOUND", http.StatusNotFound
	case errors.Is(err, ErrInsufficientInventory):
		return "INSUFFICIENT_INVENTORY", http.StatusConflict
	case errors.Is(err, ErrOrderAlreadyReserved):
		return "ORDER_ALREADY_RESERVED", http.StatusConflict
	case errors.Is(err, ErrSKUAlreadyExists):
		return "SKU_ALREADY_EXISTS", http.StatusConflict
	default:
		return "INTERNAL_ERROR", http.StatusInternalServerError
	}
}

// IsBusinessError reports whether the error belongs to the documented
// taxonomy. Anything else is treated as an internal failure.
func IsBusinessError(err error) bool {
	code, _ := CodeOf(err)
	return code != "INTERNAL_ERROR"
}
