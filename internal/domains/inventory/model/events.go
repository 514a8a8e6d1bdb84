package model

import (
	"time"
)

// Domain event types. The outbox dispatcher publishes them with routing key
// inventory.<type>.
const (
	EventInventoryAllocated = "InventoryAllocated"
	EventInventoryReleased  = "InventoryReleased"
	EventInventoryAdjusted  = "InventoryAdjusted"
)

// AllocationEvent is the payload of InventoryAllocated and
// InventoryReleased.
type AllocationEvent struct {
	OrderID   string    `json:"orderId"`
	BatchID   int64     `json:"batchId"`
	Quantity  int       `json:"quantity"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AdjustmentEvent is the payload of InventoryAdjusted.
type AdjustmentEvent struct {
	BatchID       int64     `json:"batchId"`
	QuantityDelta int       `json:"quantityDelta"`
	NewAvailable  int       `json:"newAvailable"`
	Source        string    `json:"source"`
	Reason        string    `json:"reason,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
