// Package domain defines core types, interfaces, and errors for the query gateway.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates the principal is not authorized for a statement.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// UnsafeStatementError indicates a statement was blocked by the safety validator.
type UnsafeStatementError struct {
	Message string
	Risk    RiskLevel
}

func (e *UnsafeStatementError) Error() string { return e.Message }

// UnavailableError indicates an external dependency (translator) could not
// be reached. Callers must fail closed on this error.
type UnavailableError struct {
	Message string
}

func (e *UnavailableError) Error() string { return e.Message }

// ExecutionError indicates the dataset engine rejected or failed a statement.
type ExecutionError struct {
	Message string
}

func (e *ExecutionError) Error() string { return e.Message }

// AuditWriteError indicates the audit ledger could not be written. When it
// wraps a successful execution the statement ran but is unaudited, which
// must never be reported as plain success.
type AuditWriteError struct {
	Message  string
	Executed bool
}

func (e *AuditWriteError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnsafe creates an UnsafeStatementError with the validator's reason.
func ErrUnsafe(reason string, risk RiskLevel) *UnsafeStatementError {
	return &UnsafeStatementError{Message: reason, Risk: risk}
}

// ErrUnavailable creates an UnavailableError with a formatted message.
func ErrUnavailable(format string, args ...interface{}) *UnavailableError {
	return &UnavailableError{Message: fmt.Sprintf(format, args...)}
}

// ErrExecution creates an ExecutionError with a formatted message.
func ErrExecution(format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{Message: fmt.Sprintf(format, args...)}
}
