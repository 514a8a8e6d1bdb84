package wms

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx WMS response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wms api error: status=%d body=%s", e.StatusCode, e.Body)
}

// IsRetriable reports whether the error is worth requeueing: rate limiting
// and temporary unavailability. Everything else (bad request, unknown batch,
// auth failure) goes to the dead-letter queue.
func IsRetriable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	// Transport-level failures (timeouts, connection resets) are retriable.
	return true
}
