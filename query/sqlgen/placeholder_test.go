package sqlgen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/litecore/runtime/types"
)

func values(vs ...any) []types.Value {
	out := make([]types.Value, len(vs))
	for i, v := range vs {
		out[i] = types.MustEncode(v)
	}
	return out
}

func assertValues(t *testing.T, want []types.Value, got []types.Value) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "value %d: want %v got %v", i, want[i], got[i])
	}
}

func TestCompile_InvalidPlaceholders(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"dollar zero", "SELECT $0"},
		{"question zero", "SELECT ?0"},
		{"leading zero", "SELECT ?01"},
		{"double zero", "SELECT $00"},
		{"too large", "SELECT ?32767"},
		{"digit-led name", "SELECT $1abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Must(New(tt.sql, 1))
			_, _, err := q.Compile()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPlaceholder))
			assert.True(t, IsProtocolError(err))
			assert.Error(t, q.Validate())
		})
	}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		args    []any
		wantSQL string
		want    []types.Value
	}{
		{
			name:    "anonymous passes through",
			sql:     "SELECT ?, ?",
			args:    []any{1, 2},
			wantSQL: "SELECT ?, ?",
			want:    values(1, 2),
		},
		{
			name:    "dollar one binds the first argument",
			sql:     "SELECT $1, ?1",
			args:    []any{7},
			wantSQL: "SELECT ?1, ?1",
			want:    values(7),
		},
		{
			name:    "explicit index moves the cursor",
			sql:     "SELECT ?2, ?",
			args:    []any{1, 2, 3},
			wantSQL: "SELECT ?2, ?3",
			want:    values(1, 2, 3),
		},
		{
			name:    "excess arguments are dropped",
			sql:     "SELECT ?",
			args:    []any{1, 2},
			wantSQL: "SELECT ?1",
			want:    values(1),
		},
		{
			name:    "unregistered names take positional slots",
			sql:     "SELECT :x, :x, ?",
			args:    []any{1, 2},
			wantSQL: "SELECT ?1, ?1, ?2",
			want:    values(1, 2),
		},
		{
			name:    "no placeholders",
			sql:     "SELECT 1",
			args:    []any{1},
			wantSQL: "SELECT 1",
			want:    nil,
		},
		{
			name:    "literals and comments are not placeholders",
			sql:     "SELECT '?', 'it''s ?', \"a?\", [b?], `c?` -- ?\n/* :x ? */ ?",
			args:    []any{"v"},
			wantSQL: "SELECT '?', 'it''s ?', \"a?\", [b?], `c?` -- ?\n/* :x ? */ ?",
			want:    values("v"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Must(New(tt.sql, tt.args...))
			sql, vals, err := q.Compile()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assertValues(t, tt.want, vals)
		})
	}
}

func TestCompile_Unbound(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		args []any
	}{
		{"too few anonymous", "SELECT ?, ?", []any{1}},
		{"explicit out of range", "SELECT ?3", []any{1, 2}},
		{"no arguments", "SELECT :missing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Must(New(tt.sql, tt.args...)).Compile()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnboundPlaceholder))

			var pe *ProtocolError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "bind", pe.Op)
		})
	}
}

func TestCompile_Named(t *testing.T) {
	t.Run("first registration wins", func(t *testing.T) {
		args := &Arguments{}
		require.NoError(t, args.AddNamed("a", 1))
		require.NoError(t, args.AddNamed(":a", 2))

		sql, vals, err := NewWith("SELECT :a, @a, $a", args).Compile()
		require.NoError(t, err)
		assert.Equal(t, "SELECT ?1, ?1, ?1", sql)
		assertValues(t, values(1), vals)
	})

	t.Run("positional skips named values", func(t *testing.T) {
		args := &Arguments{}
		require.NoError(t, args.Add(10))
		require.NoError(t, args.AddNamed("n", 20))
		require.NoError(t, args.Add(30))

		sql, vals, err := NewWith("SELECT ?, :n, ?", args).Compile()
		require.NoError(t, err)
		assert.Equal(t, "SELECT ?1, ?2, ?3", sql)
		assertValues(t, values(10, 20, 30), vals)
	})
}

func TestArguments(t *testing.T) {
	args := &Arguments{}
	require.NoError(t, args.Add("p"))
	require.NoError(t, args.AddNamed("@id", 5))
	require.NoError(t, args.AddNamed("id", 6))
	require.NoError(t, args.AddNamed("name", "n"))

	assert.Equal(t, 4, args.Len())
	assert.Equal(t, []string{"id", "name"}, args.Names())

	v, ok := args.Lookup("$id")
	require.True(t, ok)
	assert.Equal(t, int64(5), v.Int64())

	_, ok = args.Lookup("missing")
	assert.False(t, ok)

	err := args.AddNamed("1bad", 1)
	assert.True(t, errors.Is(err, ErrInvalidPlaceholder))

	err = args.Add(struct{}{})
	assert.True(t, errors.Is(err, ErrEncode))

	other := &Arguments{}
	require.NoError(t, other.AddNamed("name", "m"))
	err = args.Extend(other)
	assert.True(t, errors.Is(err, ErrNamedCollision))
	assert.Equal(t, 4, args.Len(), "failed extend leaves arguments untouched")

	fresh := &Arguments{}
	require.NoError(t, fresh.AddNamed("other", 1))
	require.NoError(t, fresh.Add(2))
	require.NoError(t, args.Extend(fresh))
	assert.Equal(t, 6, args.Len())

	var nilArgs *Arguments
	assert.Equal(t, 0, nilArgs.Len())
	assert.Nil(t, nilArgs.Values())
}
