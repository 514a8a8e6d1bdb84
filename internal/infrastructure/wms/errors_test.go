package wms

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetriable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retriable bool
	}{
		{"rate limited", &APIError{StatusCode: 429}, true},
		{"service unavailable", &APIError{StatusCode: 503}, true},
		{"gateway timeout", &APIError{StatusCode: 504}, true},
		{"bad request", &APIError{StatusCode: 400}, false},
		{"unauthorized", &APIError{StatusCode: 401}, false},
		{"not found", &APIError{StatusCode: 404}, false},
		{"server error", &APIError{StatusCode: 500}, false},
		{"transport failure", errors.New("connection reset"), true},
		{"wrapped api error", fmt.Errorf("mirror: %w", &APIError{StatusCode: 404}), false},
		{"wrapped retriable", fmt.Errorf("mirror: %w", &APIError{StatusCode: 503}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retriable, IsRetriable(tt.err))
		})
	}
}
