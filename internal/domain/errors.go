package domain

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Error is a business-rule violation. Its message is part of the API
// contract: the HTTP layer returns it to clients verbatim.
type Error struct {
	kind    error
	message string
}

func (e *Error) Error() string { return e.message }

func (e *Error) Unwrap() error { return e.kind }

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{kind: ErrNotFound, message: fmt.Sprintf(format, args...)}
}

func Validation(message string) *Error {
	return &Error{kind: ErrValidation, message: message}
}

func Validationf(format string, args ...interface{}) *Error {
	return &Error{kind: ErrValidation, message: fmt.Sprintf(format, args...)}
}

func Conflict(message string) *Error {
	return &Error{kind: ErrConflict, message: message}
}

func Unauthorized(message string) *Error {
	return &Error{kind: ErrUnauthorized, message: message}
}

func Forbidden(message string) *Error {
	return &Error{kind: ErrForbidden, message: message}
}
