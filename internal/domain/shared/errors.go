package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a DomainError for the transport layer
type ErrorKind string

const (
	KindValidation    ErrorKind = "VALIDATION"
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindStateConflict ErrorKind = "STATE_CONFLICT"
	KindAuthorization ErrorKind = "AUTHORIZATION"
	KindInternal      ErrorKind = "INTERNAL"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind      `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches domain errors by code so that sentinel values work with errors.Is
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithDetail returns a copy of the error with an extra context entry
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// NewDomainError creates a new domain error.
// The kind defaults to STATE_CONFLICT, which is what most business rule violations are.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Kind:    KindStateConflict,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates an error for malformed or missing input
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Kind: KindValidation, Code: code, Message: message}
}

// NewNotFoundError creates an error for a missing referenced entity
func NewNotFoundError(entity string) *DomainError {
	return &DomainError{
		Kind:    KindNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", entity),
		Details: map[string]any{"entity": entity},
	}
}

// NewStateConflictError creates an error for an operation the current state does not allow
func NewStateConflictError(code, message string) *DomainError {
	return &DomainError{Kind: KindStateConflict, Code: code, Message: message}
}

// NewAuthorizationError creates an error for an actor lacking the required role
func NewAuthorizationError(message string) *DomainError {
	return &DomainError{Kind: KindAuthorization, Code: "FORBIDDEN", Message: message}
}

// NewInternalError wraps an infrastructure failure
func NewInternalError(message string, cause error) *DomainError {
	return &DomainError{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: message, cause: cause}
}

// AsDomainError extracts a DomainError from an error chain
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsKind reports whether err is a DomainError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	de, ok := AsDomainError(err)
	return ok && de.Kind == kind
}

// Common domain errors
var (
	ErrNotFound            = &DomainError{Kind: KindNotFound, Code: "NOT_FOUND", Message: "Resource not found"}
	ErrAlreadyExists       = NewStateConflictError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewStateConflictError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = &DomainError{Kind: KindAuthorization, Code: "UNAUTHORIZED", Message: "Not authorized to perform this action"}
	ErrForbidden           = NewAuthorizationError("Access to this resource is forbidden")
	ErrInvalidState        = NewStateConflictError("INVALID_STATE", "Operation not allowed in current state")
)
