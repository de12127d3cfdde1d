package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of domain failure. Codes map to HTTP statuses at
// the transport edge but carry no transport detail themselves.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeValidation   Code = "validation_failed"
	CodeInvalidInput Code = "invalid_input"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeUnavailable  Code = "unavailable"
	CodeInternal     Code = "internal_error"
)

// Error is a coded domain error. The description is safe to show to API
// callers except for internal errors, which are redacted at the edge.
type Error struct {
	Code        Code
	Description string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is reports whether target carries the same code and description, so
// errors.Is works against sentinel-style comparisons in tests.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code && e.Description == other.Description
}

// Is reports whether err (or anything it wraps) is a domain error with the
// given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// New constructs a coded domain error.
func New(code Code, description string) *Error {
	return &Error{Code: code, Description: description}
}

// Newf constructs a coded domain error with a formatted description.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Description: fmt.Sprintf(format, args...)}
}
