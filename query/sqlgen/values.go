package sqlgen

import (
	"fmt"

	"github.com/satishbabariya/litecore/runtime/types"
)

type valueEntry struct {
	column string
	value  types.Value
	expr   *Expr
}

// Values is an ordered column to value mapping rendered into INSERT, SET,
// WHERE and upsert fragments. Columns render in insertion order; setting an
// existing column replaces its value in place.
type Values struct {
	entries []valueEntry
	index   map[string]int
	err     error
}

// NewValues creates an empty set.
func NewValues() *Values {
	return &Values{index: make(map[string]int)}
}

// Set stores v under column. v may be an Expr, a Query (used as an
// expression) or anything types.Encode accepts.
func (v *Values) Set(column string, value any) error {
	e := valueEntry{column: column}
	switch x := value.(type) {
	case Expr:
		e.expr = &x
	case Query:
		ex := ExprQuery(x)
		e.expr = &ex
	default:
		val, err := types.Encode(value)
		if err != nil {
			return fmt.Errorf("%w for column %q: %w", ErrEncode, column, err)
		}
		e.value = val
	}
	v.put(e)
	return nil
}

// Val is Set for chaining. The first error is kept and returned by the
// render methods and Err.
func (v *Values) Val(column string, value any) *Values {
	if err := v.Set(column, value); err != nil && v.err == nil {
		v.err = err
	}
	return v
}

// Err returns the first error recorded by Val.
func (v *Values) Err() error {
	if v == nil {
		return nil
	}
	return v.err
}

func (v *Values) put(e valueEntry) {
	if v.index == nil {
		v.index = make(map[string]int)
	}
	if i, ok := v.index[e.column]; ok {
		v.entries[i] = e
		return
	}
	v.index[e.column] = len(v.entries)
	v.entries = append(v.entries, e)
}

// Extend copies every entry of other. Existing columns keep their position
// and take the new value; new columns are appended.
func (v *Values) Extend(other *Values) *Values {
	if other == nil {
		return v
	}
	for _, e := range other.entries {
		v.put(e)
	}
	if v.err == nil {
		v.err = other.err
	}
	return v
}

// Len returns the number of columns.
func (v *Values) Len() int {
	if v == nil {
		return 0
	}
	return len(v.entries)
}

// Keys returns the columns in order.
func (v *Values) Keys() []string {
	if v == nil {
		return nil
	}
	keys := make([]string, len(v.entries))
	for i, e := range v.entries {
		keys[i] = e.column
	}
	return keys
}

// Get returns the entry for column: a types.Value or an Expr.
func (v *Values) Get(column string) (any, bool) {
	if v == nil {
		return nil, false
	}
	i, ok := v.index[column]
	if !ok {
		return nil, false
	}
	if e := v.entries[i]; e.expr != nil {
		return *e.expr, true
	}
	return v.entries[i].value, true
}

// Delete removes column and reports whether it was present.
func (v *Values) Delete(column string) bool {
	if v == nil {
		return false
	}
	i, ok := v.index[column]
	if !ok {
		return false
	}
	v.entries = append(v.entries[:i], v.entries[i+1:]...)
	delete(v.index, column)
	for j := i; j < len(v.entries); j++ {
		v.index[v.entries[j].column] = j
	}
	return true
}

// RenderInsert renders "(a, b) VALUES (?, ?)". NULL values are bound. An
// empty set renders "DEFAULT VALUES".
func (v *Values) RenderInsert() (Query, error) {
	if v.Err() != nil {
		return Query{}, v.err
	}
	if v.Len() == 0 {
		return Query{SQL: "DEFAULT VALUES"}, nil
	}

	b := NewQueryBuilder()
	b.PushSQL("(")
	for i, e := range v.entries {
		if i > 0 {
			b.PushSQL(", ")
		}
		b.PushSQL(Identifier(e.column))
	}
	b.PushSQL(") VALUES (")
	for i, e := range v.entries {
		if i > 0 {
			b.PushSQL(", ")
		}
		v.pushValue(b, e)
	}
	b.PushSQL(")")
	return b.Build()
}

// RenderSet renders "a = ?, b = ?". A NULL value renders as "b = NULL"
// without a bound parameter.
func (v *Values) RenderSet() (Query, error) {
	if v.Err() != nil {
		return Query{}, v.err
	}
	if v.Len() == 0 {
		return Query{}, &ProtocolError{Op: "render set", Err: ErrEmptyValues}
	}

	b := NewQueryBuilder()
	for i, e := range v.entries {
		if i > 0 {
			b.PushSQL(", ")
		}
		b.PushSQL(Identifier(e.column))
		if e.expr == nil && e.value.IsNull() {
			b.PushSQL(" = NULL")
			continue
		}
		b.PushSQL(" = ")
		v.pushValue(b, e)
	}
	return b.Build()
}

// RenderWhere renders "a = ? AND b IS NULL". NULL values never bind, since
// "b = NULL" matches nothing. An empty set renders "1=1".
func (v *Values) RenderWhere() (Query, error) {
	if v.Err() != nil {
		return Query{}, v.err
	}
	if v.Len() == 0 {
		return Query{SQL: "1=1"}, nil
	}

	b := NewQueryBuilder()
	for i, e := range v.entries {
		if i > 0 {
			b.PushSQL(" AND ")
		}
		b.PushSQL(Identifier(e.column))
		if e.expr == nil && e.value.IsNull() {
			b.PushSQL(" IS NULL")
			continue
		}
		b.PushSQL(" = ")
		v.pushValue(b, e)
	}
	return b.Build()
}

// RenderUpsert renders "a = excluded.a, ..." for every column not in exclude,
// for use after ON CONFLICT (...) DO UPDATE SET.
func (v *Values) RenderUpsert(exclude ...string) (Query, error) {
	if v.Err() != nil {
		return Query{}, v.err
	}
	if v.Len() == 0 {
		return Query{}, &ProtocolError{Op: "render upsert", Err: ErrEmptyValues}
	}
	skip := make(map[string]bool, len(exclude))
	for _, c := range exclude {
		skip[c] = true
	}

	b := NewQueryBuilder()
	n := 0
	for _, e := range v.entries {
		if skip[e.column] {
			continue
		}
		if n > 0 {
			b.PushSQL(", ")
		}
		col := Identifier(e.column)
		b.PushSQL(col + " = excluded." + col)
		n++
	}
	if n == 0 {
		return Query{}, &ProtocolError{Op: "render upsert", Err: ErrEmptyValues}
	}
	return b.Build()
}

func (v *Values) pushValue(b *QueryBuilder, e valueEntry) {
	if e.expr != nil {
		b.PushExpr(*e.expr)
		return
	}
	b.PushBind(e.value)
}
