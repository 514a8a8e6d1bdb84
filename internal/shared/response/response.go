package response

import (
	"github.com/gin-gonic/gin"
)

// ErrorBody is the stable error envelope. Code is one of the documented
// error codes (INVALID_QUANTITY, BATCH_NOT_FOUND, ORDER_NOT_FOUND,
// INSUFFICIENT_INVENTORY, ORDER_ALREADY_RESERVED, INTERNAL_ERROR, ...).
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// OK writes a success payload as-is. The reserve/release/query endpoints
// have documented body shapes, so no extra envelope is added.
func OK(c *gin.Context, statusCode int, payload interface{}) {
	c.JSON(statusCode, payload)
}

// Error writes the error envelope.
func Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

// ErrorWithDetails writes the error envelope with a details object
// (e.g. batchId/requested/available for INSUFFICIENT_INVENTORY).
func ErrorWithDetails(c *gin.Context, statusCode int, code, message string, details interface{}) {
	c.JSON(statusCode, ErrorBody{Error: ErrorDetail{Code: code, Message: message, Details: details}})
}

// InternalError is the catch-all for unexpected failures.
func InternalError(c *gin.Context, message string) {
	Error(c, 500, "INTERNAL_ERROR", message)
}
