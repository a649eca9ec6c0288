// Package types provides the runtime value model: the five SQLite storage
// classes, conversion to and from Go values, and fetched rows.
package types

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"time"

)

// Kind is the storage class of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindText
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindInteger:
		return "INTEGER"
	case KindFloat:
		return "REAL"
	case KindText:
		return "TEXT"
	case KindBlob:
		return "BLOB"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single database value as stored by the engine.
// Text keeps the raw bytes the engine returned; UTF-8 validity is checked
// when the value is decoded into a Go string.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    []byte
}

// NullValue returns the NULL value.
func NullValue() Value { return Value{} }

// IntegerValue returns an INTEGER value.
func IntegerValue(v int64) Value { return Value{kind: KindInteger, i: v} }

// FloatValue returns a REAL value.
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }

// TextValue returns a TEXT value.
func TextValue(v string) Value { return Value{kind: KindText, s: v} }

// BlobValue returns a BLOB value. A nil slice is an empty blob, not NULL.
func BlobValue(v []byte) Value {
	if v == nil {
		v = []byte{}
	}
	return Value{kind: KindBlob, b: v}
}

// Kind returns the storage class.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Int64 returns the integer payload, or 0 for other kinds.
func (v Value) Int64() int64 { return v.i }

// Float64 returns the real payload, or 0 for other kinds.
func (v Value) Float64() float64 { return v.f }

// Text returns the text payload without validation, or "" for other kinds.
func (v Value) Text() string { return v.s }

// Blob returns the blob payload, or nil for other kinds.
func (v Value) Blob() []byte { return v.b }

// Equal reports whether both values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindText:
		return v.s == o.s
	case KindBlob:
		return bytes.Equal(v.b, o.b)
	default:
		return true
	}
}

// Driver converts v to the value bound on a native statement.
func (v Value) Driver() driver.Value {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindText:
		return v.s
	case KindBlob:
		if v.b == nil {
			return []byte{}
		}
		return v.b
	default:
		return nil
	}
}

// String renders v for logs.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return strconv.Quote(v.s)
	case KindBlob:
		return fmt.Sprintf("<blob %d bytes>", len(v.b))
	default:
		return "NULL"
	}
}

// FromDriver converts a value produced by the native driver. The driver
// turns columns declared DATE, DATETIME, TIMESTAMP or BOOLEAN into
// time.Time and bool, which loses the stored value, so those fail with
// ErrDriverConverted instead of being guessed back.
func FromDriver(x driver.Value) (Value, error) {
	switch v := x.(type) {
	case nil:
		return NullValue(), nil
	case int64:
		return IntegerValue(v), nil
	case float64:
		return FloatValue(v), nil
	case string:
		return TextValue(v), nil
	case []byte:
		return BlobValue(v), nil
	case bool, time.Time:
		return Value{}, fmt.Errorf("%w: got %T", ErrDriverConverted, x)
	default:
		return Value{}, &EncodeError{Type: fmt.Sprintf("%T", x), Err: ErrUnsupportedType}
	}
}
