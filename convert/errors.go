package convert

import (
	"errors"
	"fmt"
)

// ErrorKind classifies conversion failures.
type ErrorKind string

// Conversion failure kinds.
const (
	ErrKindUnsupportedConstruct ErrorKind = "unsupported_construct"
	ErrKindMalformedInput       ErrorKind = "malformed_input"
	ErrKindSchemaViolation      ErrorKind = "schema_violation"
)

// Error is a typed conversion failure. Conversions never recover
// internally; every unmappable construct surfaces as one of these.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("convert: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("convert: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// AsError unwraps err to a conversion error if there is one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is a conversion error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

func errMalformed(format string, args ...any) *Error {
	return &Error{Kind: ErrKindMalformedInput, Message: fmt.Sprintf(format, args...)}
}

func errUnsupported(format string, args ...any) *Error {
	return &Error{Kind: ErrKindUnsupportedConstruct, Message: fmt.Sprintf(format, args...)}
}

func errSchema(format string, args ...any) *Error {
	return &Error{Kind: ErrKindSchemaViolation, Message: fmt.Sprintf(format, args...)}
}
