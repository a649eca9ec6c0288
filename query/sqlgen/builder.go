package sqlgen

import (
	"strconv"
	"strings"
)

// QueryBuilder assembles a Query piece by piece. Errors are deferred: the
// first failure is kept and returned by Build.
type QueryBuilder struct {
	sql     strings.Builder
	args    *Arguments
	tainted bool

	// explicit is set once the text holds ?N placeholders; later binds are
	// then written as ?N as well.
	explicit bool
	err      error
}

// NewQueryBuilder creates an empty builder.
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{args: &Arguments{}}
}

// FromQuery starts a builder from an existing query.
func FromQuery(q Query) *QueryBuilder {
	b := NewQueryBuilder()
	b.PushQuery(q)
	return b
}

// PushSQL appends trusted SQL text.
func (b *QueryBuilder) PushSQL(sql string) *QueryBuilder {
	if b.err != nil {
		return b
	}
	t, err := scanTemplate(sql)
	if err != nil {
		b.err = err
		return b
	}
	if len(t.params) > 0 {
		b.explicit = true
	}
	b.sql.WriteString(sql)
	return b
}

// PushRaw appends SQL text and marks the query tainted.
func (b *QueryBuilder) PushRaw(sql string) *QueryBuilder {
	b.tainted = true
	return b.PushSQL(sql)
}

// PushIdentifier appends a quoted identifier.
func (b *QueryBuilder) PushIdentifier(name string) *QueryBuilder {
	b.sql.WriteString(QuoteIdentifier(name))
	return b
}

// PushIdents appends a comma separated list of quoted identifiers.
func (b *QueryBuilder) PushIdents(names ...string) *QueryBuilder {
	if len(names) == 0 {
		b.fail(&ProtocolError{Op: "push idents", Err: ErrEmptyValues})
		return b
	}
	for i, n := range names {
		if i > 0 {
			b.sql.WriteString(", ")
		}
		b.PushIdentifier(n)
	}
	return b
}

// PushBind appends a placeholder bound to v.
func (b *QueryBuilder) PushBind(v any) *QueryBuilder {
	if b.err != nil {
		return b
	}
	if err := b.args.Add(v); err != nil {
		b.err = err
		return b
	}
	b.writePlaceholder()
	return b
}

// PushBindNamed appends :name bound to v.
func (b *QueryBuilder) PushBindNamed(name string, v any) *QueryBuilder {
	if b.err != nil {
		return b
	}
	name = trimPrefix(name)
	if _, ok := b.args.index(name); ok {
		b.err = &ProtocolError{Op: "bind", Placeholder: name, Err: ErrNamedCollision}
		return b
	}
	if err := b.args.AddNamed(name, v); err != nil {
		b.err = err
		return b
	}
	b.sql.WriteByte(':')
	b.sql.WriteString(name)
	return b
}

// PushValues appends a comma separated placeholder list bound to vs.
func (b *QueryBuilder) PushValues(vs ...any) *QueryBuilder {
	if len(vs) == 0 {
		b.fail(&ProtocolError{Op: "push values", Err: ErrEmptyValues})
		return b
	}
	for i, v := range vs {
		if i > 0 {
			b.sql.WriteString(", ")
		}
		b.PushBind(v)
	}
	return b
}

// PushQuery appends q, merging its arguments.
func (b *QueryBuilder) PushQuery(q Query) *QueryBuilder {
	if b.err != nil {
		return b
	}
	cur := Query{SQL: b.sql.String(), Args: b.args, Tainted: b.tainted}
	merged, explicit, err := joinQueries(cur, q, "")
	if err != nil {
		b.err = err
		return b
	}
	b.sql.Reset()
	b.sql.WriteString(merged.SQL)
	b.args = merged.Args
	b.tainted = merged.Tainted
	b.explicit = b.explicit || explicit
	return b
}

// PushExpr appends an expression with its arguments.
func (b *QueryBuilder) PushExpr(e Expr) *QueryBuilder {
	return b.PushQuery(e.query)
}

// PushInsert appends the INSERT column and VALUES lists of v.
func (b *QueryBuilder) PushInsert(v *Values) *QueryBuilder {
	return b.pushRendered(v.RenderInsert())
}

// PushSet appends the SET assignments of v.
func (b *QueryBuilder) PushSet(v *Values) *QueryBuilder {
	return b.pushRendered(v.RenderSet())
}

// PushWhere appends the WHERE conditions of v.
func (b *QueryBuilder) PushWhere(v *Values) *QueryBuilder {
	return b.pushRendered(v.RenderWhere())
}

// PushUpsert appends the ON CONFLICT assignments of v.
func (b *QueryBuilder) PushUpsert(v *Values, exclude ...string) *QueryBuilder {
	return b.pushRendered(v.RenderUpsert(exclude...))
}

// PushCondition appends a rendered condition tree.
func (b *QueryBuilder) PushCondition(w *WhereClause) *QueryBuilder {
	return b.pushRendered(w.Query())
}

func (b *QueryBuilder) pushRendered(q Query, err error) *QueryBuilder {
	if err != nil {
		b.fail(err)
		return b
	}
	return b.PushQuery(q)
}

// Err returns the first deferred error.
func (b *QueryBuilder) Err() error {
	return b.err
}

// Build returns the assembled query.
func (b *QueryBuilder) Build() (Query, error) {
	if b.err != nil {
		return Query{}, b.err
	}
	return Query{SQL: b.sql.String(), Args: b.args.Clone(), Tainted: b.tainted}, nil
}

func (b *QueryBuilder) writePlaceholder() {
	if !b.explicit {
		b.sql.WriteByte('?')
		return
	}
	b.sql.WriteByte('?')
	b.sql.WriteString(strconv.Itoa(b.args.Len()))
}

func (b *QueryBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
