package types

import (
	"errors"
	"fmt"
)

// Codec errors.
var (
	// ErrUnexpectedNull is returned when NULL is decoded into a non-optional target.
	ErrUnexpectedNull = errors.New("unexpected NULL")

	// ErrInvalidUTF8 is returned when a TEXT value is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("text is not valid UTF-8")

	// ErrTypeMismatch is returned when the storage class cannot convert to the target.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrOutOfRange is returned when a number does not fit the target type.
	ErrOutOfRange = errors.New("value out of range")

	// ErrUnsupportedTarget is returned for decode targets the codec does not know.
	ErrUnsupportedTarget = errors.New("unsupported decode target")

	// ErrUnsupportedType is returned for Go values the codec cannot encode.
	ErrUnsupportedType = errors.New("unsupported value type")

	// ErrColumnIndexOutOfBounds is returned for a column index past the row width.
	ErrColumnIndexOutOfBounds = errors.New("column index out of bounds")

	// ErrColumnNotFound is returned for an unknown column name.
	ErrColumnNotFound = errors.New("column not found")

	// ErrDriverConverted is returned for a column value the native driver
	// already converted away from its storage class.
	ErrDriverConverted = errors.New("value converted by the driver from its declared type")
)

// DecodeError reports a failed conversion from a database value.
type DecodeError struct {
	Column string
	Index  int
	Target string
	Kind   Kind
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("decode column %q (index %d) from %s into %s: %v", e.Column, e.Index, e.Kind, e.Target, e.Err)
	}
	return fmt.Sprintf("decode %s into %s: %v", e.Kind, e.Target, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError reports a Go value that cannot become a database value.
type EncodeError struct {
	Type string
	Err  error
}

// Error implements the error interface.
func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Type, e.Err)
}

// Unwrap returns the underlying error.
func (e *EncodeError) Unwrap() error {
	return e.Err
}

// ColumnError reports an invalid column reference.
type ColumnError struct {
	Index int
	Name  string
	Len   int
	Err   error
}

// Error implements the error interface.
func (e *ColumnError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%v: %q", e.Err, e.Name)
	}
	return fmt.Sprintf("%v: index %d, row has %d columns", e.Err, e.Index, e.Len)
}

// Unwrap returns the underlying error.
func (e *ColumnError) Unwrap() error {
	return e.Err
}

// IsDecodeError checks if an error is a decode error.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// IsUnexpectedNull checks if an error is a NULL decoded into a non-optional target.
func IsUnexpectedNull(err error) bool {
	return errors.Is(err, ErrUnexpectedNull)
}
