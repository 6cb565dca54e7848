package errors

import (
	stdErrors "errors"
	"fmt"
)

// Error is a coded error. The message is public only when the code's
// metadata allows it.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches a code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func IsCode(err error, code Code) bool {
	return As(err).codeOr("") == code
}

func (e *Error) codeOr(fallback Code) Code {
	if e == nil {
		return fallback
	}
	return e.code
}

// FieldErrors maps a request field to the reason it was rejected.
type FieldErrors map[string]string

// Add keeps the first message recorded for a field.
func (f FieldErrors) Add(field, msg string) {
	if _, taken := f[field]; !taken {
		f[field] = msg
	}
}

// Err returns nil when no field failed.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return Validation(f)
}

func Validation(fields FieldErrors) *Error {
	return New(CodeValidation, "validation failed").WithDetails(map[string]string(fields))
}

func FieldError(field, msg string) *Error {
	return Validation(FieldErrors{field: msg})
}
