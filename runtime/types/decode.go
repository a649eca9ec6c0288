package types

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-sqlite3"
)

// Decoder is implemented by decode targets that populate themselves from a
// database value. Implementations decide how NULL is handled.
type Decoder interface {
	DecodeValue(v Value) error
}

// Decode converts v into the value pointed to by dest.
//
// NULL is only accepted by targets that can represent absence: *Value, *any,
// Null[T] and other Decoder implementations. Every other target reports
// ErrUnexpectedNull.
func Decode(dest any, v Value) error {
	switch d := dest.(type) {
	case *Value:
		*d = v
		return nil
	case Decoder:
		return d.DecodeValue(v)
	case *any:
		return decodeAny(d, v)
	}

	if v.IsNull() {
		return decodeErr(dest, v, ErrUnexpectedNull)
	}

	switch d := dest.(type) {
	case *string:
		s, err := decodeText(dest, v)
		if err != nil {
			return err
		}
		*d = s
	case *[]byte:
		switch v.kind {
		case KindBlob:
			*d = append([]byte(nil), v.b...)
		case KindText:
			*d = []byte(v.s)
		default:
			return decodeErr(dest, v, ErrTypeMismatch)
		}
	case *int:
		n, err := decodeInt(dest, v, math.MinInt, math.MaxInt)
		if err != nil {
			return err
		}
		*d = int(n)
	case *int8:
		n, err := decodeInt(dest, v, math.MinInt8, math.MaxInt8)
		if err != nil {
			return err
		}
		*d = int8(n)
	case *int16:
		n, err := decodeInt(dest, v, math.MinInt16, math.MaxInt16)
		if err != nil {
			return err
		}
		*d = int16(n)
	case *int32:
		n, err := decodeInt(dest, v, math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		*d = int32(n)
	case *int64:
		n, err := decodeInt(dest, v, math.MinInt64, math.MaxInt64)
		if err != nil {
			return err
		}
		*d = n
	case *uint:
		n, err := decodeInt(dest, v, 0, math.MaxInt64)
		if err != nil {
			return err
		}
		*d = uint(n)
	case *uint8:
		n, err := decodeInt(dest, v, 0, math.MaxUint8)
		if err != nil {
			return err
		}
		*d = uint8(n)
	case *uint16:
		n, err := decodeInt(dest, v, 0, math.MaxUint16)
		if err != nil {
			return err
		}
		*d = uint16(n)
	case *uint32:
		n, err := decodeInt(dest, v, 0, math.MaxUint32)
		if err != nil {
			return err
		}
		*d = uint32(n)
	case *uint64:
		n, err := decodeInt(dest, v, 0, math.MaxInt64)
		if err != nil {
			return err
		}
		*d = uint64(n)
	case *float64:
		f, err := decodeFloat(dest, v)
		if err != nil {
			return err
		}
		*d = f
	case *float32:
		f, err := decodeFloat(dest, v)
		if err != nil {
			return err
		}
		*d = float32(f)
	case *bool:
		if v.kind != KindInteger {
			return decodeErr(dest, v, ErrTypeMismatch)
		}
		*d = v.i != 0
	case *time.Time:
		t, err := decodeTime(dest, v)
		if err != nil {
			return err
		}
		*d = t
	default:
		return decodeErr(dest, v, ErrUnsupportedTarget)
	}
	return nil
}

func decodeErr(dest any, v Value, err error) error {
	return &DecodeError{Index: -1, Target: targetName(dest), Kind: v.kind, Err: err}
}

func targetName(dest any) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", dest), "*")
}

func decodeAny(d *any, v Value) error {
	switch v.kind {
	case KindNull:
		*d = nil
	case KindInteger:
		*d = v.i
	case KindFloat:
		*d = v.f
	case KindText:
		if !utf8.ValidString(v.s) {
			return decodeErr(d, v, ErrInvalidUTF8)
		}
		*d = v.s
	case KindBlob:
		*d = append([]byte(nil), v.b...)
	}
	return nil
}

func decodeText(dest any, v Value) (string, error) {
	if v.kind != KindText {
		return "", decodeErr(dest, v, ErrTypeMismatch)
	}
	if !utf8.ValidString(v.s) {
		return "", decodeErr(dest, v, ErrInvalidUTF8)
	}
	return v.s, nil
}

func decodeInt(dest any, v Value, lo, hi int64) (int64, error) {
	if v.kind != KindInteger {
		return 0, decodeErr(dest, v, ErrTypeMismatch)
	}
	if v.i < lo || v.i > hi {
		return 0, decodeErr(dest, v, ErrOutOfRange)
	}
	return v.i, nil
}

func decodeFloat(dest any, v Value) (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInteger:
		return float64(v.i), nil
	default:
		return 0, decodeErr(dest, v, ErrTypeMismatch)
	}
}

func decodeTime(dest any, v Value) (time.Time, error) {
	switch v.kind {
	case KindInteger:
		return time.Unix(v.i, 0).UTC(), nil
	case KindText:
		s, err := decodeText(dest, v)
		if err != nil {
			return time.Time{}, err
		}
		if t, err := time.Parse(TimeFormat, s); err == nil {
			return t.UTC(), nil
		}
		trimmed := strings.TrimSuffix(s, "Z")
		for _, layout := range sqlite3.SQLiteTimestampFormats {
			if t, err := time.ParseInLocation(layout, trimmed, time.UTC); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, decodeErr(dest, v, fmt.Errorf("%w: unrecognized time %q", ErrTypeMismatch, s))
	default:
		return time.Time{}, decodeErr(dest, v, ErrTypeMismatch)
	}
}
