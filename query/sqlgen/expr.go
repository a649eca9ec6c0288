package sqlgen

import (
	"encoding/json"
	"fmt"
)

// Expr is a SQL fragment, possibly with its own bound arguments, used in
// place of a bound value inside Values. It is rendered inline and never
// bound as a single value.
type Expr struct {
	query Query
}

// SQL returns the fragment text.
func (e Expr) SQL() string { return e.query.SQL }

// Tainted reports whether the fragment contains raw SQL.
func (e Expr) Tainted() bool { return e.query.Tainted }

// Query returns the fragment as a query.
func (e Expr) Query() Query { return e.query }

// Now is the current UTC time as RFC 3339 text with milliseconds.
func Now() Expr {
	return Expr{query: Query{SQL: "STRFTIME('%Y-%m-%dT%H:%M:%fZ', 'now')"}}
}

// JSONB binds JSON text and stores it in SQLite's binary JSON encoding.
func JSONB(text string) Expr {
	args := &Arguments{}
	_ = args.Add(text)
	return Expr{query: Query{SQL: "jsonb(?)", Args: args}}
}

// JSONBOf marshals v to JSON and wraps it like JSONB.
func JSONBOf(v any) (Expr, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Expr{}, fmt.Errorf("%w: json: %w", ErrEncode, err)
	}
	return JSONB(string(b)), nil
}

// ExprQuery uses a query, such as a subselect, as an expression.
func ExprQuery(q Query) Expr {
	return Expr{query: q}
}

// Raw embeds sql verbatim. Any query built with it is tainted.
func Raw(sql string) Expr {
	return Expr{query: Query{SQL: sql, Tainted: true}}
}
