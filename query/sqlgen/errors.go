package sqlgen

import (
	"errors"
	"fmt"
)

// Protocol errors. They are never retried.
var (
	// ErrInvalidPlaceholder is returned for a malformed placeholder such as ?0 or $01.
	ErrInvalidPlaceholder = errors.New("invalid placeholder")

	// ErrUnboundPlaceholder is returned when a placeholder has no bound value.
	ErrUnboundPlaceholder = errors.New("unbound placeholder")

	// ErrNamedCollision is returned when two argument sets bind the same name.
	ErrNamedCollision = errors.New("named parameter collision")

	// ErrEncode is returned when a Go value cannot be bound.
	ErrEncode = errors.New("cannot encode argument")

	// ErrEmptyValues is returned when a fragment needs at least one column.
	ErrEmptyValues = errors.New("values are empty")

	// ErrUnsupportedOperator is returned for an unknown condition operator.
	ErrUnsupportedOperator = errors.New("unsupported operator")
)

// ProtocolError describes a placeholder or binding problem in a query.
type ProtocolError struct {
	Op          string
	Placeholder string
	Offset      int
	Err         error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Placeholder != "" {
		return fmt.Sprintf("%s: %v: %q at offset %d", e.Op, e.Err, e.Placeholder, e.Offset)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsProtocolError reports whether err is a *ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
