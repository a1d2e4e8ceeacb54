package wire

import "fmt"

// Code is a machine-readable identifier for a decode failure.
type Code string

const (
	MISSING_DISCRIMINATOR Code = "MISSING_DISCRIMINATOR"
	UNKNOWN_VARIANT       Code = "UNKNOWN_VARIANT"
	INVALID_FIELD         Code = "INVALID_FIELD"
)

// Error is the error type returned by the response decoder. Field carries
// the offending field name (INVALID_FIELD) or the unrecognized discriminator
// value (UNKNOWN_VARIANT) so callers can produce actionable diagnostics.
type Error struct {
	Code    Code
	Field   string
	Message string
}

// Error returns a formatted error string.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("wire: %s (%s): %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("wire: %s: %s", e.Code, e.Message)
}

// Is reports whether target is a wire.Error with the same code.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// NewMissingDiscriminator reports a payload whose "type" field is absent
// or not a string.
func NewMissingDiscriminator() *Error {
	return &Error{
		Code:    MISSING_DISCRIMINATOR,
		Message: "response payload has no string discriminator field \"type\"",
	}
}

// NewUnknownVariant reports a discriminator value outside the known set.
func NewUnknownVariant(value string) *Error {
	return &Error{
		Code:    UNKNOWN_VARIANT,
		Field:   value,
		Message: fmt.Sprintf("unrecognized response type %q", value),
	}
}

// NewInvalidField reports a required field that is missing or has the
// wrong type for the selected variant.
func NewInvalidField(name string) *Error {
	return &Error{
		Code:    INVALID_FIELD,
		Field:   name,
		Message: fmt.Sprintf("required field %q is missing or malformed", name),
	}
}
