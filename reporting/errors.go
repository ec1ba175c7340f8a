/*
errors.go - Centralized error types for the reporting engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  The API facade maps these to transport status codes; nothing below the
  facade knows about HTTP.

ERROR CATEGORIES:
  1. Validation errors - malformed payloads, rejected before any write
  2. Registry/compiler rejections - unknown entity, illegal field, bad operator
  3. Store errors - name conflicts, missing records
  4. Execution errors - store-level failures at run time

USAGE:
  Callers classify with errors.Is against the sentinels:

    if errors.Is(err, reporting.ErrNameConflict) { ... 409 ... }

  Structured variants carry context and unwrap to their sentinel.

SEE ALSO:
  - compiler.go: Produces the compiler rejections
  - runner.go: Produces ExecutionError
  - api/handlers.go: Maps errors to HTTP statuses
*/
package reporting

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed payloads: missing required
	// values, values outside an allowed set, empty projections on write.
	ErrValidation = errors.New("validation failed")

	// ErrNameConflict is returned when a configuration name collides with
	// an existing one. Report names are unique across the whole store.
	ErrNameConflict = errors.New("report name already exists")

	// ErrNotFound is returned when a configuration id does not exist.
	ErrNotFound = errors.New("report configuration not found")

	// ErrForbidden is returned when the principal lacks rights for an
	// operation on an existing configuration.
	ErrForbidden = errors.New("operation not permitted")

	// ErrUnknownEntity is returned when a target entity tag is not in the
	// registry.
	ErrUnknownEntity = errors.New("unknown target entity")

	// ErrInvalidField is returned when a field name is not legal for the
	// target entity, or fails identifier hardening.
	ErrInvalidField = errors.New("invalid field")

	// ErrUnsupportedOperator is returned for operators outside the whitelist.
	ErrUnsupportedOperator = errors.New("unsupported operator")

	// ErrMissingFilterValue is returned when a filter lacks a value its
	// operator requires (e.g. BETWEEN without the second bound).
	ErrMissingFilterValue = errors.New("missing filter value")

	// ErrEmptyProjection is returned when a configuration has no fields.
	ErrEmptyProjection = errors.New("report has no fields")

	// ErrExecutionFailure is returned when the store fails at execute time.
	// The underlying SQL and parameters are never attached; they are logged
	// server-side under a correlation id.
	ErrExecutionFailure = errors.New("report execution failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a rejected payload field.
type ValidationError struct {
	Field   string // payload path, e.g. "filters[2].operator"
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// UnknownEntityError names the rejected entity tag.
type UnknownEntityError struct {
	Entity string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("unknown target entity %q", e.Entity)
}

func (e *UnknownEntityError) Unwrap() error { return ErrUnknownEntity }

// InvalidFieldError names the rejected field and its entity.
type InvalidFieldError struct {
	Entity string
	Field  string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("field %q is not reportable on entity %q", e.Field, e.Entity)
}

func (e *InvalidFieldError) Unwrap() error { return ErrInvalidField }

// UnsupportedOperatorError names the rejected operator.
type UnsupportedOperatorError struct {
	Operator string
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("operator %q is not supported", e.Operator)
}

func (e *UnsupportedOperatorError) Unwrap() error { return ErrUnsupportedOperator }

// MissingFilterValueError names the filter field and which value is missing.
type MissingFilterValueError struct {
	Field    string
	Operator Operator
	Which    string // "value1" or "value2"
}

func (e *MissingFilterValueError) Error() string {
	return fmt.Sprintf("filter on %q: operator %s requires %s", e.Field, e.Operator, e.Which)
}

func (e *MissingFilterValueError) Unwrap() error { return ErrMissingFilterValue }

// ExecutionError is returned to callers when the store fails at run time.
// CorrelationID links the response to the server-side log entry that holds
// the real cause.
type ExecutionError struct {
	CorrelationID string
	cause         error
}

// NewExecutionError wraps a store failure. The cause is retained for logging
// but never rendered into the caller-facing message.
func NewExecutionError(correlationID string, cause error) *ExecutionError {
	return &ExecutionError{CorrelationID: correlationID, cause: cause}
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("report execution failed (ref %s)", e.CorrelationID)
}

func (e *ExecutionError) Unwrap() error { return ErrExecutionFailure }

// Cause exposes the underlying store error for server-side logging only.
func (e *ExecutionError) Cause() error { return e.cause }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnknownEntity) ||
		errors.Is(err, ErrInvalidField) ||
		errors.Is(err, ErrUnsupportedOperator) ||
		errors.Is(err, ErrMissingFilterValue) ||
		errors.Is(err, ErrEmptyProjection)
}

// IsNotFound reports whether the error indicates a missing configuration.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
