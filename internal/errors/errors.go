package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a piecewall error code.
type ErrorCode string

const (
	ErrInvalidRequest          ErrorCode = "INVALID_REQUEST"           // 400
	ErrNotFound                ErrorCode = "NOT_FOUND"                 // 404
	ErrConflict                ErrorCode = "CONFLICT"                  // 409
	ErrConsolidationInProgress ErrorCode = "CONSOLIDATION_IN_PROGRESS" // 409
	ErrTextTooLong             ErrorCode = "TEXT_TOO_LONG"             // 413
	ErrNothingToConsolidate    ErrorCode = "NOTHING_TO_CONSOLIDATE"    // 422
	ErrCancelled               ErrorCode = "CANCELLED"                 // 499
	ErrInternal                ErrorCode = "INTERNAL"                  // 500
	ErrSummarizerFailed        ErrorCode = "SUMMARIZER_FAILED"         // 502
)

// Error represents a structured error with code, status, and details.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *Error {
	return &Error{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error. Only used for things that must exist
// (files, rooms on import); missing pieces are never an error.
func NewNotFound(what, identifier string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", what, identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewConflict creates a 409 error for writes that lost an optimistic race.
func NewConflict(msg string) *Error {
	return &Error{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewConsolidationInProgress creates a 409 error for re-entrant consolidation.
func NewConsolidationInProgress(room string) *Error {
	return &Error{
		Code:    ErrConsolidationInProgress,
		Status:  409,
		Message: fmt.Sprintf("a consolidation is already running in room %q", room),
		Details: map[string]any{"room": room},
	}
}

// NewTextTooLong creates a 413 error when piece text exceeds the configured limit.
func NewTextTooLong(max, actual int) *Error {
	return &Error{
		Code:    ErrTextTooLong,
		Status:  413,
		Message: fmt.Sprintf("piece text exceeds maximum size: %d chars (max %d)", actual, max),
		Details: map[string]any{"max_chars": max, "actual_chars": actual},
	}
}

// NewNothingToConsolidate creates a 422 validation error for an empty consolidation.
func NewNothingToConsolidate(msg string) *Error {
	return &Error{
		Code:    ErrNothingToConsolidate,
		Status:  422,
		Message: msg,
	}
}

// NewCancelled creates a 499 error when the caller went away mid-operation.
func NewCancelled(operation string) *Error {
	return &Error{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewSummarizerFailed creates a 502 error wrapping a summarizer failure.
// The message is user-facing; it is what the wall shows in its error slot.
func NewSummarizerFailed(err error) *Error {
	msg := "failed to consolidate ideas"
	if err != nil {
		msg = fmt.Sprintf("failed to consolidate ideas: %v", err)
	}
	return &Error{
		Code:    ErrSummarizerFailed,
		Status:  502,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	var pErr *Error
	if stderrors.As(err, &pErr) {
		return pErr.Code == code
	}
	return false
}

// As converts any error into an *Error, wrapping unknown errors as internal.
func As(err error) *Error {
	var pErr *Error
	if stderrors.As(err, &pErr) {
		return pErr
	}
	return NewInternal(err)
}
