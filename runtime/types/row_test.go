package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRow() *Row {
	cols := NewColumns([]string{"id", "name", "deleted_at", "id"})
	return NewRow(cols, []Value{
		IntegerValue(1),
		TextValue("alice"),
		NullValue(),
		IntegerValue(2),
	})
}

func TestRow_Access(t *testing.T) {
	row := newTestRow()

	assert.Equal(t, 4, row.Len())
	assert.Equal(t, []string{"id", "name", "deleted_at", "id"}, row.Columns())

	id, err := GetNamed[int64](row, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id, "duplicate names resolve to the first column")

	name, err := Get[string](row, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	deleted, err := GetOptionalNamed[string](row, "deleted_at")
	require.NoError(t, err)
	assert.Nil(t, deleted)

	present, err := GetOptional[int64](row, 3)
	require.NoError(t, err)
	require.NotNil(t, present)
	assert.Equal(t, int64(2), *present)
}

func TestRow_Scan(t *testing.T) {
	row := newTestRow()

	var (
		id   int64
		name string
		del  Null[string]
	)
	require.NoError(t, row.Scan(&id, &name, &del))
	assert.Equal(t, int64(1), id)
	assert.Equal(t, "alice", name)
	assert.False(t, del.Valid)

	var extra [5]int64
	err := row.Scan(&extra[0], &extra[1], &extra[2], &extra[3], &extra[4])
	assert.True(t, errors.Is(err, ErrColumnIndexOutOfBounds))
}

func TestRow_Errors(t *testing.T) {
	row := newTestRow()

	_, err := row.Value(9)
	assert.True(t, errors.Is(err, ErrColumnIndexOutOfBounds))

	_, err = row.ValueByName("missing")
	assert.True(t, errors.Is(err, ErrColumnNotFound))

	var s string
	err = row.GetByName("deleted_at", &s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedNull))

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "deleted_at", de.Column)
	assert.Equal(t, 2, de.Index)
	assert.Contains(t, err.Error(), `"deleted_at"`)
}
