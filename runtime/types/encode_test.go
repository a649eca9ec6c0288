package types

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	name := "alice"
	var nilName *string
	ts := time.Date(2024, 1, 2, 3, 4, 5, 600, time.FixedZone("X", 3600))

	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, NullValue()},
		{"int", 7, IntegerValue(7)},
		{"int8", int8(-3), IntegerValue(-3)},
		{"uint32", uint32(9), IntegerValue(9)},
		{"float32", float32(1.5), FloatValue(1.5)},
		{"bool true", true, IntegerValue(1)},
		{"bool false", false, IntegerValue(0)},
		{"string", "x", TextValue("x")},
		{"bytes", []byte{1}, BlobValue([]byte{1})},
		{"nil bytes is empty blob", []byte(nil), BlobValue([]byte{})},
		{"time in UTC", ts, TextValue("2024-01-02T02:04:05.0000006Z")},
		{"pointer", &name, TextValue("alice")},
		{"nil pointer", nilName, NullValue()},
		{"some", Some(int64(4)), IntegerValue(4)},
		{"none", None[int64](), NullValue()},
		{"valuer", sql.NullString{String: "v", Valid: true}, TextValue("v")},
		{"invalid valuer", sql.NullInt64{}, NullValue()},
		{"value passthrough", FloatValue(2), FloatValue(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %v got %v", tt.want, got)
		})
	}
}

func TestEncode_Errors(t *testing.T) {
	_, err := Encode(uint64(math.MaxUint64))
	assert.True(t, errors.Is(err, ErrOutOfRange))

	_, err = Encode(struct{}{})
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestValue_Driver(t *testing.T) {
	assert.Nil(t, NullValue().Driver())
	assert.Equal(t, int64(3), IntegerValue(3).Driver())
	assert.Equal(t, "t", TextValue("t").Driver())
	assert.Equal(t, []byte{}, Value{kind: KindBlob}.Driver())
}

func TestFromDriver(t *testing.T) {
	v, err := FromDriver("2020-01-01")
	require.NoError(t, err)
	assert.True(t, TextValue("2020-01-01").Equal(v))

	v, err = FromDriver(int64(5))
	require.NoError(t, err)
	assert.True(t, IntegerValue(5).Equal(v))

	_, err = FromDriver(true)
	assert.True(t, errors.Is(err, ErrDriverConverted))

	_, err = FromDriver(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, ErrDriverConverted))

	_, err = FromDriver(struct{}{})
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

type valuer struct{ v driver.Value }

func (x valuer) Value() (driver.Value, error) { return x.v, nil }

func TestEncode_ValuerReturningBoolAndTime(t *testing.T) {
	v, err := Encode(valuer{true})
	require.NoError(t, err)
	assert.True(t, IntegerValue(1).Equal(v))

	v, err = Encode(valuer{time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, KindText, v.Kind())
}
