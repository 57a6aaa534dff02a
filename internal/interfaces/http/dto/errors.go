package dto

import (
	"net/http"
	"strings"
)

// Error codes emitted by the HTTP layer itself. Domain errors carry their
// own codes and pass through unchanged.
const (
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeInternal   = "INTERNAL_ERROR"
)

// errorCodeHTTPStatus maps domain error codes to HTTP status codes
var errorCodeHTTPStatus = map[string]int{
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeInternal:   http.StatusInternalServerError,

	"NOT_FOUND":            http.StatusNotFound,
	"ALREADY_EXISTS":       http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,

	// Business rule violations
	"INSUFFICIENT_STOCK":       http.StatusUnprocessableEntity,
	"INVALID_STATE":            http.StatusUnprocessableEntity,
	"ORDER_NOT_OPEN":           http.StatusUnprocessableEntity,
	"RESERVATIONS_OUTSTANDING": http.StatusUnprocessableEntity,
	"NON_INTEGER_RATIO":        http.StatusUnprocessableEntity,
	"CROSS_PRODUCT_CONVERSION": http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for a domain error code.
// Validation-style codes map to 400; anything unrecognized is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") || code == "REASON_REQUIRED" {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
