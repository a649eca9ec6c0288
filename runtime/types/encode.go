package types

import (
	"database/sql/driver"
	"fmt"
	"math"
	"time"
)

// TimeFormat is the text layout used when encoding time.Time.
const TimeFormat = time.RFC3339Nano

// Encoder is implemented by types that know their database representation.
type Encoder interface {
	EncodeValue() (Value, error)
}

// Encode converts a Go value into a database value. Built-in types are
// resolved by a static type switch; other types must implement Encoder
// or driver.Valuer.
func Encode(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return x, nil
	case Encoder:
		return x.EncodeValue()
	case int:
		return IntegerValue(int64(x)), nil
	case int8:
		return IntegerValue(int64(x)), nil
	case int16:
		return IntegerValue(int64(x)), nil
	case int32:
		return IntegerValue(int64(x)), nil
	case int64:
		return IntegerValue(x), nil
	case uint:
		return encodeUint(uint64(x), "uint")
	case uint8:
		return IntegerValue(int64(x)), nil
	case uint16:
		return IntegerValue(int64(x)), nil
	case uint32:
		return IntegerValue(int64(x)), nil
	case uint64:
		return encodeUint(x, "uint64")
	case float32:
		return FloatValue(float64(x)), nil
	case float64:
		return FloatValue(x), nil
	case bool:
		if x {
			return IntegerValue(1), nil
		}
		return IntegerValue(0), nil
	case string:
		return TextValue(x), nil
	case []byte:
		return BlobValue(x), nil
	case time.Time:
		return TextValue(x.UTC().Format(TimeFormat)), nil
	case *int:
		return encodePtr(x)
	case *int32:
		return encodePtr(x)
	case *int64:
		return encodePtr(x)
	case *uint32:
		return encodePtr(x)
	case *float64:
		return encodePtr(x)
	case *bool:
		return encodePtr(x)
	case *string:
		return encodePtr(x)
	case *[]byte:
		return encodePtr(x)
	case *time.Time:
		return encodePtr(x)
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return Value{}, &EncodeError{Type: fmt.Sprintf("%T", v), Err: err}
		}
		switch dv.(type) {
		case bool, time.Time:
			return Encode(dv)
		}
		return FromDriver(dv)
	default:
		return Value{}, &EncodeError{Type: fmt.Sprintf("%T", v), Err: ErrUnsupportedType}
	}
}

// MustEncode is like Encode but panics on error. Intended for constants in tests
// and static tables.
func MustEncode(v any) Value {
	val, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return val
}

func encodePtr[T any](p *T) (Value, error) {
	if p == nil {
		return NullValue(), nil
	}
	return Encode(*p)
}

func encodeUint(x uint64, typ string) (Value, error) {
	if x > math.MaxInt64 {
		return Value{}, &EncodeError{Type: typ, Err: ErrOutOfRange}
	}
	return IntegerValue(int64(x)), nil
}
