package errors

import (
	"errors"
	"fmt"
	"net/http"

	"voxhub/internal/core/domain"
)

// ErrorCode represents application error codes.
type ErrorCode string

const (
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodeUnauthenticated  ErrorCode = "UNAUTHENTICATED"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeForbidden        ErrorCode = "FORBIDDEN"
	ErrCodeCapacityExceeded ErrorCode = "CAPACITY_EXCEEDED"
	ErrCodeInvalidState     ErrorCode = "INVALID_STATE"
	ErrCodeRateLimit        ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application error with a code and HTTP mapping.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new application error.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

// FromDomain maps a hub sentinel error to the boundary representation used
// by HTTP handlers and websocket error events.
func FromDomain(err error) *AppError {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return &AppError{Code: ErrCodeUnauthenticated, Message: err.Error(), HTTPStatus: http.StatusUnauthorized, Cause: err}
	case errors.Is(err, domain.ErrNotFound):
		return &AppError{Code: ErrCodeNotFound, Message: err.Error(), HTTPStatus: http.StatusNotFound, Cause: err}
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrNotAMember),
		errors.Is(err, domain.ErrNotInvited),
		errors.Is(err, domain.ErrNotFriends):
		return &AppError{Code: ErrCodeForbidden, Message: err.Error(), HTTPStatus: http.StatusForbidden, Cause: err}
	case errors.Is(err, domain.ErrCapacityExceeded):
		return &AppError{Code: ErrCodeCapacityExceeded, Message: err.Error(), HTTPStatus: http.StatusConflict, Cause: err}
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrCallInProgress),
		errors.Is(err, domain.ErrConnectionBound):
		return &AppError{Code: ErrCodeInvalidState, Message: err.Error(), HTTPStatus: http.StatusConflict, Cause: err}
	default:
		return &AppError{Code: ErrCodeInternal, Message: "internal error", HTTPStatus: http.StatusInternalServerError, Cause: err}
	}
}
