package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ErrorResponse is the JSON body of a non-streaming error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Error codes used in API responses.
const (
	ErrorCodeInvalidRequest   = "INVALID_REQUEST"
	ErrorCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrorCodeUpgradeRequired  = "UPGRADE_REQUIRED"
	ErrorCodeInternalError    = "INTERNAL_ERROR"
)

// ValidationError reports an invalid request parameter.
type ValidationError struct {
	Message string
}

// NewValidationError creates a validation error with a formatted message.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	return e.Message
}

// WriteJSON encodes v as JSON to w.
func WriteJSON(w io.Writer, v interface{}) error {
	return json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response with the given status code.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = WriteJSON(w, ErrorResponse{Error: code, Message: message})
}
