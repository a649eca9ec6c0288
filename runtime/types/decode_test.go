package types

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_NullIntoNonOptional(t *testing.T) {
	tests := []struct {
		name string
		dest any
	}{
		{"int32", new(int32)},
		{"int64", new(int64)},
		{"int", new(int)},
		{"string", new(string)},
		{"bytes", new([]byte)},
		{"float64", new(float64)},
		{"bool", new(bool)},
		{"time", new(time.Time)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Decode(tt.dest, NullValue())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnexpectedNull))
			assert.True(t, IsDecodeError(err))
		})
	}
}

func TestDecode_NullIntoOptional(t *testing.T) {
	t.Run("Null[int32]", func(t *testing.T) {
		n := Some[int32](5)
		require.NoError(t, Decode(&n, NullValue()))
		assert.False(t, n.Valid)
		assert.Nil(t, n.Ptr())
	})

	t.Run("Null[string]", func(t *testing.T) {
		var n Null[string]
		require.NoError(t, Decode(&n, NullValue()))
		assert.False(t, n.Valid)
	})

	t.Run("Null[[]byte]", func(t *testing.T) {
		var n Null[[]byte]
		require.NoError(t, Decode(&n, NullValue()))
		assert.False(t, n.Valid)
	})

	t.Run("present value", func(t *testing.T) {
		var n Null[int32]
		require.NoError(t, Decode(&n, IntegerValue(42)))
		assert.True(t, n.Valid)
		assert.Equal(t, int32(42), n.V)
	})

	t.Run("any receives nil", func(t *testing.T) {
		var v any = "stale"
		require.NoError(t, Decode(&v, NullValue()))
		assert.Nil(t, v)
	})
}

func TestDecode_InvalidUTF8(t *testing.T) {
	bad := TextValue(string([]byte{0xff, 0xfe, 'a'}))

	var s string
	err := Decode(&s, bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidUTF8))
	assert.Empty(t, s)

	var opt Null[string]
	err = Decode(&opt, bad)
	assert.True(t, errors.Is(err, ErrInvalidUTF8))

	// raw bytes stay available through the byte path
	var raw []byte
	require.NoError(t, Decode(&raw, bad))
	assert.Equal(t, []byte{0xff, 0xfe, 'a'}, raw)
}

func TestDecode_Conversions(t *testing.T) {
	t.Run("int range", func(t *testing.T) {
		var v int8
		err := Decode(&v, IntegerValue(300))
		assert.True(t, errors.Is(err, ErrOutOfRange))

		var u uint32
		err = Decode(&u, IntegerValue(-1))
		assert.True(t, errors.Is(err, ErrOutOfRange))

		var i32 int32
		require.NoError(t, Decode(&i32, IntegerValue(math.MaxInt32)))
		assert.Equal(t, int32(math.MaxInt32), i32)
	})

	t.Run("text into int mismatches", func(t *testing.T) {
		var v int64
		err := Decode(&v, TextValue("12"))
		assert.True(t, errors.Is(err, ErrTypeMismatch))
	})

	t.Run("integer into float", func(t *testing.T) {
		var f float64
		require.NoError(t, Decode(&f, IntegerValue(3)))
		assert.Equal(t, 3.0, f)
	})

	t.Run("bool", func(t *testing.T) {
		var b bool
		require.NoError(t, Decode(&b, IntegerValue(1)))
		assert.True(t, b)
	})

	t.Run("blob copies", func(t *testing.T) {
		src := []byte{1, 2, 3}
		var out []byte
		require.NoError(t, Decode(&out, BlobValue(src)))
		src[0] = 9
		assert.Equal(t, []byte{1, 2, 3}, out)
	})

	t.Run("blob into string mismatches", func(t *testing.T) {
		var s string
		err := Decode(&s, BlobValue([]byte("abc")))
		assert.True(t, errors.Is(err, ErrTypeMismatch))
	})

	t.Run("time formats", func(t *testing.T) {
		want := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
		for _, text := range []string{
			"2024-05-06T07:08:09Z",
			"2024-05-06 07:08:09",
			"2024-05-06 07:08:09+00:00",
		} {
			var got time.Time
			require.NoError(t, Decode(&got, TextValue(text)), text)
			assert.True(t, want.Equal(got), text)
		}
	})

	t.Run("unsupported target", func(t *testing.T) {
		var c complex128
		err := Decode(&c, FloatValue(1))
		assert.True(t, errors.Is(err, ErrUnsupportedTarget))
	})
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
		Tags []string `json:"tags"`
	}

	var j JSON[payload]
	require.NoError(t, Decode(&j, TextValue(`{"name":"a","tags":["x","y"]}`)))
	assert.Equal(t, payload{Name: "a", Tags: []string{"x", "y"}}, j.V)

	var fromBlob JSON[map[string]int]
	require.NoError(t, Decode(&fromBlob, BlobValue([]byte(`{"n":1}`))))
	assert.Equal(t, 1, fromBlob.V["n"])

	err := Decode(&j, NullValue())
	assert.True(t, errors.Is(err, ErrUnexpectedNull))

	v, err := Encode(JSON[payload]{V: payload{Name: "b"}})
	require.NoError(t, err)
	assert.Equal(t, KindText, v.Kind())
	assert.JSONEq(t, `{"name":"b","tags":null}`, v.Text())
}
