package repository

import "errors"

var (
	// ErrEventNotFound is returned when an outbox event does not exist.
	ErrEventNotFound = errors.New("outbox event not found")

	// ErrEventNotRetriable is returned when retrying an event that is not
	// in FAILED state.
	ErrEventNotRetriable = errors.New("outbox event is not in FAILED state")
)
