package model

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{ErrInvalidQuantity, "INVALID_QUANTITY", http.StatusBadRequest},
		{ErrBatchNotFound, "BATCH_NOT_FOUND", http.StatusNotFound},
		{ErrSKUNotFound, "SKU_NOT_FOUND", http.StatusNotFound},
		{ErrOrderNotFound, "ORDER_NOT_FOUND", http.StatusNotFound},
		{ErrInsufficientInventory, "INSUFFICIENT_INVENTORY", http.StatusConflict},
		{ErrOrderAlreadyReserved, "ORDER_ALREADY_RESERVED", http.StatusConflict},
		{ErrSKUAlreadyExists, "SKU_ALREADY_EXISTS", http.StatusConflict},
		{errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		code, status := CodeOf(tt.err)
		assert.Equal(t, tt.code, code)
		assert.Equal(t, tt.status, status)
	}
}

func TestCodeOf_WrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", ErrOrderNotFound)
	code, status := CodeOf(wrapped)
	assert.Equal(t, "ORDER_NOT_FOUND", code)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestInsufficientInventoryError(t *testing.T) {
	err := NewInsufficientInventoryError(7, 10, 4)

	assert.ErrorIs(t, err, ErrInsufficientInventory)

	var detailed *InsufficientInventoryError
	assert.ErrorAs(t, err, &detailed)
	assert.Equal(t, int64(7), detailed.BatchID)
	assert.Equal(t, 10, detailed.Requested)
	assert.Equal(t, 4, detailed.Available)

	code, status := CodeOf(err)
	assert.Equal(t, "INSUFFICIENT_INVENTORY", code)
	assert.Equal(t, http.StatusConflict, status)
}

func TestIsBusinessError(t *testing.T) {
	assert.True(t, IsBusinessError(ErrBatchNotFound))
	assert.False(t, IsBusinessError(errors.New("connection refused")))
}
