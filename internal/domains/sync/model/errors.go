package model

import "errors"

var (
	// ErrSyncRequestNotFound is returned when a sync request id is unknown.
	ErrSyncRequestNotFound = errors.New("sync request not found")
)
