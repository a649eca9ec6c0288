package builder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/litecore/query/sqlgen"
	"github.com/satishbabariya/litecore/runtime/types"
)

func assertQuery(t *testing.T, q sqlgen.Query, wantSQL string, want ...any) {
	t.Helper()
	assert.Equal(t, wantSQL, q.SQL)

	got := q.Args.Values()
	require.Len(t, got, len(want))
	for i, w := range want {
		assert.True(t, types.MustEncode(w).Equal(got[i]), "argument %d: want %v, got %v", i, w, got[i])
	}
}

func TestSelect(t *testing.T) {
	t.Run("all columns", func(t *testing.T) {
		q, err := Select("users").Query()
		require.NoError(t, err)
		assertQuery(t, q, "SELECT * FROM users")
	})

	t.Run("filtered and paged", func(t *testing.T) {
		s := Select("users", "id", "name").Desc("id").Asc("name").Limit(10).Offset(20)
		s.Where().Equals("active", true).GreaterThan("score", 5)

		q, err := s.Query()
		require.NoError(t, err)
		assertQuery(t, q,
			"SELECT id, name FROM users WHERE active = ? AND score > ? ORDER BY id DESC, name ASC LIMIT ? OFFSET ?",
			true, 5, 10, 20)
	})

	t.Run("offset without limit", func(t *testing.T) {
		q, err := Select("users").Offset(5).Query()
		require.NoError(t, err)
		assertQuery(t, q, "SELECT * FROM users LIMIT -1 OFFSET ?", 5)
	})

	t.Run("quotes keywords", func(t *testing.T) {
		q, err := Select("order", "group", "*").Query()
		require.NoError(t, err)
		assertQuery(t, q, `SELECT "group", * FROM "order"`)
	})

	t.Run("invalid direction", func(t *testing.T) {
		_, err := Select("users").OrderBy("id", "sideways").Query()
		assert.Error(t, err)
	})
}

func TestWhere_Null(t *testing.T) {
	s := Select("users")
	s.Where().Equals("a", 1).Equals("b", nil).NotEquals("c", nil)

	q, err := s.Query()
	require.NoError(t, err)
	assertQuery(t, q, "SELECT * FROM users WHERE a = ? AND b IS NULL AND c IS NOT NULL", 1)
}

func TestWhere_Groups(t *testing.T) {
	w := NewWhereBuilder().
		Equals("a", 1).
		OR(NewWhereBuilder().Equals("b", 2), NewWhereBuilder().Like("c", "x%")).
		NOT(NewWhereBuilder().In("d", 3, 4))

	q, err := Select("t").Filter(w).Query()
	require.NoError(t, err)
	assertQuery(t, q,
		"SELECT * FROM t WHERE a = ? AND ((b = ?) OR (c LIKE ?)) AND (NOT (d IN (?, ?)))",
		1, 2, "x%", 3, 4)

	// Empty groups add nothing.
	q, err = Select("t").Filter(NewWhereBuilder().OR(NewWhereBuilder())).Query()
	require.NoError(t, err)
	assertQuery(t, q, "SELECT * FROM t")
}

func TestWhere_Match(t *testing.T) {
	v := sqlgen.NewValues().Val("tenant", "acme").Val("deleted_at", nil)

	s := Select("users")
	s.Where().Match(v)
	q, err := s.Query()
	require.NoError(t, err)
	assertQuery(t, q, "SELECT * FROM users WHERE tenant = ? AND deleted_at IS NULL", "acme")
}

func TestWhere_EmptyIn(t *testing.T) {
	d := DeleteFrom("users")
	d.Where().In("id")

	q, err := d.Query()
	require.NoError(t, err)
	assertQuery(t, q, "DELETE FROM users WHERE 1=0")
}

func TestUpdate(t *testing.T) {
	u := Update("users").Set("name", "bob").Set("updated_at", sqlgen.Now()).Returning("id")
	u.Where().Equals("id", 7)

	q, err := u.Query()
	require.NoError(t, err)
	assert.Contains(t, q.SQL, "UPDATE users SET name = ?, updated_at = ")
	assert.Contains(t, q.SQL, " WHERE id = ? RETURNING id")

	sql, values, err := q.Compile()
	require.NoError(t, err)
	assert.NotEmpty(t, sql)
	require.Len(t, values, 2)
	assert.Equal(t, "bob", values[0].Text())
	assert.Equal(t, int64(7), values[1].Int64())

	_, err = Update("users").Query()
	assert.True(t, errors.Is(err, sqlgen.ErrEmptyValues))
}

func TestDelete(t *testing.T) {
	q, err := DeleteFrom("users").Query()
	require.NoError(t, err)
	assertQuery(t, q, "DELETE FROM users")

	d := DeleteFrom("users").Returning("id", "name")
	d.Where().LessThan("score", 1.5).IsNotNull("email")
	q, err = d.Query()
	require.NoError(t, err)
	assertQuery(t, q, "DELETE FROM users WHERE score < ? AND email IS NOT NULL RETURNING id, name", 1.5)
}
