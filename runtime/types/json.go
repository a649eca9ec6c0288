package types

import (
	"encoding/json"
	"unicode/utf8"
)

// JSON wraps a value stored as JSON text. It is the explicit opt-in for
// structured decoding; plain []byte and string targets never parse.
type JSON[T any] struct {
	V T
}

// DecodeValue implements Decoder. TEXT must be valid UTF-8; BLOB is read as
// JSON text bytes. Binary JSONB must be converted with json(col) in SQL first.
func (j *JSON[T]) DecodeValue(v Value) error {
	return DecodeJSON(v, &j.V)
}

// EncodeValue implements Encoder, storing the value as JSON text.
func (j JSON[T]) EncodeValue() (Value, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return Value{}, &EncodeError{Type: "json", Err: err}
	}
	return TextValue(string(b)), nil
}

// DecodeJSON unmarshals a TEXT or BLOB value into dest.
func DecodeJSON(v Value, dest any) error {
	var raw []byte
	switch v.kind {
	case KindNull:
		return decodeErr(dest, v, ErrUnexpectedNull)
	case KindText:
		if !utf8.ValidString(v.s) {
			return decodeErr(dest, v, ErrInvalidUTF8)
		}
		raw = []byte(v.s)
	case KindBlob:
		raw = v.b
	default:
		return decodeErr(dest, v, ErrTypeMismatch)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return decodeErr(dest, v, err)
	}
	return nil
}
