package types

// Null is an optional value. Decoding NULL leaves Valid false; encoding an
// invalid Null produces NULL.
type Null[T any] struct {
	V     T
	Valid bool
}

// Some returns a valid Null holding v.
func Some[T any](v T) Null[T] {
	return Null[T]{V: v, Valid: true}
}

// None returns an invalid Null.
func None[T any]() Null[T] {
	return Null[T]{}
}

// DecodeValue implements Decoder.
func (n *Null[T]) DecodeValue(v Value) error {
	if v.IsNull() {
		*n = Null[T]{}
		return nil
	}
	var out T
	if err := Decode(&out, v); err != nil {
		return err
	}
	n.V = out
	n.Valid = true
	return nil
}

// EncodeValue implements Encoder.
func (n Null[T]) EncodeValue() (Value, error) {
	if !n.Valid {
		return NullValue(), nil
	}
	return Encode(n.V)
}

// Ptr returns a pointer to the value, or nil when absent.
func (n Null[T]) Ptr() *T {
	if !n.Valid {
		return nil
	}
	v := n.V
	return &v
}
