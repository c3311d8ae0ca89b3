package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Code identifies an error class on the wire
type Code string

const (
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeBadRequest         Code = "BAD_REQUEST"
	CodeConflict           Code = "CONFLICT"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeInternal           Code = "INTERNAL"
)

// Error is a typed application error. Message is safe to show to callers,
// Err carries the internal cause and is never serialized.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on the code so that errors.Is(err, ErrNotFound) works for any
// not-found error regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrUnauthorized = &Error{Code: CodeUnauthorized, Message: "Authentication required"}
	ErrForbidden    = &Error{Code: CodeForbidden, Message: "Access denied to this client"}
	ErrNotFound     = &Error{Code: CodeNotFound, Message: "Not found"}
)

// InvalidCredentials is shared by every login failure path
const InvalidCredentials = "Invalid credentials"

func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

func Validation(message string) *Error {
	return &Error{Code: CodeBadRequest, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

func Unavailable(message string, err error) *Error {
	return &Error{Code: CodeServiceUnavailable, Message: message, Err: err}
}

// Internal wraps a store or infrastructure failure. The message shown to
// callers is always generic.
func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "Internal server error", Err: err}
}

// FromStore maps gorm errors onto the application taxonomy
func FromStore(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(what + " not found")
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(fmt.Errorf("%s: %w", what, err))
}

// As extracts an *Error, converting unknown errors to internal ones
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// HTTPStatus maps an error code to the response status
func HTTPStatus(code Code) int {
	switch code {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
