// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
// Available is set only on insufficient-stock rejections.
type APIError struct {
	Detail    string `json:"detail"`
	Available *int   `json:"available,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// NewStock reports a rejected sale together with the units on hand.
func NewStock(msg string, available int) *APIError {
	return &APIError{Detail: msg, Available: &available}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Validation failed", Fields: fields}
}
