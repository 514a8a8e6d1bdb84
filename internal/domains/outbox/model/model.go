package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Outbox event statuses. PENDING rows are picked up by the dispatcher;
// SENT is terminal; FAILED rows wait for an operator to re-set them to
// PENDING.
const (
	StatusPending = "PENDING"
	StatusSent    = "SENT"
	StatusFailed  = "FAILED"
)

// OutboxEvent buffers a domain event until the dispatcher publishes it.
// Rows are only ever written inside the business transaction that caused
// the event, which is what makes the store and the broker agree.
type OutboxEvent struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Status     string          `json:"status"`
	RetryCount int             `json:"retry_count"`
	Error      *string         `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
