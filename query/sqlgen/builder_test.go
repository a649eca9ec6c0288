package sqlgen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBuilder(t *testing.T) {
	q, err := NewQueryBuilder().
		PushSQL("SELECT * FROM ").
		PushIdentifier(`my "table"`).
		PushSQL(" WHERE id IN (").
		PushValues(1, 2, 3).
		PushSQL(") AND owner = ").
		PushBindNamed("owner", "bob").
		Build()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "my ""table""" WHERE id IN (?, ?, ?) AND owner = :owner`, q.SQL)
	assert.Equal(t, 4, q.Args.Len())
	assert.False(t, q.Tainted)

	sql, vals, err := q.Compile()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "my ""table""" WHERE id IN (?1, ?2, ?3) AND owner = ?4`, sql)
	assertValues(t, values(1, 2, 3, "bob"), vals)
}

func TestQueryBuilder_ExplicitIndexes(t *testing.T) {
	q, err := NewQueryBuilder().
		PushQuery(Must(New("a = ?2 AND b = ?1", "x", "y"))).
		PushSQL(" AND c = ").
		PushBind("z").
		Build()
	require.NoError(t, err)
	assert.Equal(t, "a = ?2 AND b = ?1 AND c = ?3", q.SQL)

	_, vals, err := q.Compile()
	require.NoError(t, err)
	assertValues(t, values("x", "y", "z"), vals)
}

func TestQueryBuilder_Errors(t *testing.T) {
	_, err := NewQueryBuilder().PushBindNamed("a", 1).PushSQL(", ").PushBindNamed("a", 2).Build()
	assert.True(t, errors.Is(err, ErrNamedCollision))

	_, err = NewQueryBuilder().PushSQL("SELECT ").PushValues().Build()
	assert.True(t, errors.Is(err, ErrEmptyValues))

	_, err = NewQueryBuilder().PushIdents().Build()
	assert.True(t, errors.Is(err, ErrEmptyValues))

	_, err = NewQueryBuilder().PushSQL("SELECT ?0").Build()
	assert.True(t, errors.Is(err, ErrInvalidPlaceholder))

	b := NewQueryBuilder().PushBind(struct{}{})
	assert.True(t, errors.Is(b.Err(), ErrEncode))
}

func TestQueryBuilder_Fragments(t *testing.T) {
	vals := NewValues().Val("name", "n").Val("age", 3)

	q, err := NewQueryBuilder().
		PushSQL("UPDATE users SET ").
		PushSet(vals).
		PushSQL(" WHERE ").
		PushWhere(NewValues().Val("id", 9)).
		Build()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE users SET name = ?, age = ? WHERE id = ?", q.SQL)
	assertValues(t, values("n", 3, 9), q.Args.Values())

	raw, err := NewQueryBuilder().PushSQL("SELECT ").PushRaw("random()").Build()
	require.NoError(t, err)
	assert.True(t, raw.Tainted)

	from, err := FromQuery(Must(New("SELECT ?", 1))).PushSQL(" + ").PushBind(2).Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT ? + ?", from.SQL)
}

func TestInsertInto(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		q, err := InsertInto("users").
			Value("name", "a").
			Value("email", nil).
			Returning("id").
			Query()
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "users" (name, email) VALUES (?, ?) RETURNING id`, q.SQL)
		assert.Equal(t, 2, q.Args.Len())
	})

	t.Run("upsert", func(t *testing.T) {
		q, err := InsertInto("kv").
			Value("k", "a").
			Value("v", 1).
			OnConflictUpdate([]string{"k"}).
			Query()
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "kv" (k, v) VALUES (?, ?) ON CONFLICT ("k") DO UPDATE SET v = excluded.v`, q.SQL)
	})

	t.Run("upsert with nothing to update", func(t *testing.T) {
		q, err := InsertInto("kv").Value("k", "a").OnConflictUpdate([]string{"k"}).Query()
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "kv" (k) VALUES (?) ON CONFLICT ("k") DO NOTHING`, q.SQL)
	})

	t.Run("values and expressions", func(t *testing.T) {
		q, err := InsertInto("events").
			Values(NewValues().Val("kind", "login")).
			Value("at", Now()).
			Returning("*").
			Query()
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "events" (kind, at) VALUES (?, STRFTIME('%Y-%m-%dT%H:%M:%fZ', 'now')) RETURNING *`, q.SQL)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := InsertInto("users").Query()
		assert.True(t, errors.Is(err, ErrEmptyValues))
	})
}

func TestWhereClause(t *testing.T) {
	group := NewWhereClause()
	group.SetOperator("OR")
	group.Where("role", "=", "admin").Where("role", "=", "owner")

	w := NewWhereClause().
		Where("age", ">=", 18).
		Where("status", "in", []any{"a", "b"}).
		Where("deleted_at", "=", nil).
		Where("email", "!=", nil)
	w.AddGroup(group)

	q, err := w.Query()
	require.NoError(t, err)
	assert.Equal(t, "age >= ? AND status IN (?, ?) AND deleted_at IS NULL AND email IS NOT NULL AND (role = ? OR role = ?)", q.SQL)
	assertValues(t, values(18, "a", "b", "admin", "owner"), q.Args.Values())

	w.SetNot(true)
	q, err = w.Query()
	require.NoError(t, err)
	assert.Equal(t, "NOT (age >= ? AND status IN (?, ?) AND deleted_at IS NULL AND email IS NOT NULL AND (role = ? OR role = ?))", q.SQL)
}

func TestWhereClause_Edges(t *testing.T) {
	q, err := NewWhereClause().Query()
	require.NoError(t, err)
	assert.Equal(t, "1=1", q.SQL)

	q, err = NewWhereClause().Where("id", "IN", []any{}).Query()
	require.NoError(t, err)
	assert.Equal(t, "1=0", q.SQL)

	q, err = NewWhereClause().Where("id", "NOT IN", []any{}).Query()
	require.NoError(t, err)
	assert.Equal(t, "1=1", q.SQL)

	q, err = NewWhereClause().Where("created_at", "<", Now()).Query()
	require.NoError(t, err)
	assert.Equal(t, "created_at < STRFTIME('%Y-%m-%dT%H:%M:%fZ', 'now')", q.SQL)

	_, err = NewWhereClause().Where("id", "BETWEEN", 1).Query()
	assert.True(t, errors.Is(err, ErrUnsupportedOperator))

	_, err = NewWhereClause().Where("id", "IN", 1).Query()
	assert.Error(t, err)

	q, err = NewQueryBuilder().PushSQL("DELETE FROM t WHERE ").
		PushCondition(NewWhereClause().Where("id", "=", 4)).Build()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM t WHERE id = ?", q.SQL)
}

func TestIdentifier(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"name", "name"},
		{"user_id2", "user_id2"},
		{"select", `"select"`},
		{"Order", `"Order"`},
		{"2col", `"2col"`},
		{"first name", `"first name"`},
		{`we"ird`, `"we""ird"`},
		{"", `""`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Identifier(tt.in))
		})
	}
}
