// Package errors provides centralized error definitions for the application.
// Errors are organized by concern to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Configuration errors.
var (
	// ErrMissingToken indicates the API token is not configured.
	ErrMissingToken = errors.New("api token not configured")

	// ErrUnknownMode indicates an unsupported run mode or flow kind.
	ErrUnknownMode = errors.New("unknown mode")
)

// Remote API errors.
var (
	// ErrUnexpectedStatus indicates a non-2xx, non-429 response.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrRateLimited indicates the API answered 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrAttemptsExhausted indicates the per-page retry budget is spent.
	ErrAttemptsExhausted = errors.New("attempts exhausted")
)

// Model inference errors.
var (
	// ErrModelUnavailable indicates a model artifact or backend cannot be used.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrUnknownLabel indicates a model produced a label outside the label mapping.
	ErrUnknownLabel = errors.New("unknown label")
)

// Storage errors.
var (
	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")

	// ErrEmptyBatch indicates an upsert was called without records.
	ErrEmptyBatch = errors.New("empty batch")
)

// Validation errors.
var (
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidID indicates an identifier could not be coerced to an integer.
	ErrInvalidID = errors.New("invalid id")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
