package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a catdex error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrCanceled       ErrorCode = "CANCELED"        // 499
	ErrInternal       ErrorCode = "INTERNAL"        // 500
	ErrUpstream       ErrorCode = "UPSTREAM"        // 502 (transport or decode failure)
)

// AppError represents a structured error with code, status, and details.
type AppError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// Cause is the underlying error, if any. Never shown to API callers.
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *AppError {
	return &AppError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a breed id that is not in the store.
func NewNotFound(id string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("Breed with id %s not found", id),
		Details: map[string]any{"id": id},
	}
}

// NewUpstream creates a 502 error for a failed call to the remote breed source.
// Transport failures, non-2xx responses and undecodable payloads all map here.
func NewUpstream(err error) *AppError {
	msg := "upstream error"
	if err != nil {
		msg = err.Error()
	}
	return &AppError{
		Code:    ErrUpstream,
		Status:  502,
		Message: msg,
		Cause:   err,
	}
}

// NewCanceled creates an error for an operation abandoned by its caller.
func NewCanceled(err error) *AppError {
	return &AppError{
		Code:    ErrCanceled,
		Status:  499,
		Message: "operation canceled",
		Cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *AppError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &AppError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Cause:   err,
	}
}

// Is checks if err, or any error it wraps, is an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// As returns the first AppError in err's chain, or an INTERNAL error wrapping err.
func As(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}

// WithMessage returns a copy of err's AppError carrying msg instead of its
// own message. The original is left untouched.
func WithMessage(err error, msg string) *AppError {
	appErr := *As(err)
	appErr.Message = msg
	return &appErr
}
