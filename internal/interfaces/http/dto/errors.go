package dto

import (
	"net/http"

	"github.com/dealerdesk/backend/internal/domain/shared"
)

// Transport-level error codes. Domain errors keep their own codes.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeInvalidJSON  = "INVALID_JSON"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeTooLarge     = "REQUEST_TOO_LARGE"
	ErrCodeStatement    = "INVALID_STATEMENT"
)

// codeStatus overrides the kind-based status for specific domain codes
var codeStatus = map[string]int{
	"UNAUTHORIZED":               http.StatusUnauthorized,
	"ALREADY_EXISTS":             http.StatusConflict,
	"CONCURRENCY_CONFLICT":       http.StatusConflict,
	"RECONCILIATION_IN_PROGRESS": http.StatusConflict,
}

// kindStatus maps each error kind to its HTTP status
var kindStatus = map[shared.ErrorKind]int{
	shared.KindValidation:    http.StatusBadRequest,
	shared.KindNotFound:      http.StatusNotFound,
	shared.KindStateConflict: http.StatusBadRequest,
	shared.KindAuthorization: http.StatusForbidden,
	shared.KindInternal:      http.StatusInternalServerError,
}

// HTTPStatus returns the status code a domain error is reported with
func HTTPStatus(err *shared.DomainError) int {
	if status, ok := codeStatus[err.Code]; ok {
		return status
	}
	if status, ok := kindStatus[err.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}
