// Package builder provides a fluent API for SELECT, UPDATE and DELETE
// statements on top of sqlgen. Every builder ends in Query, which returns
// a sqlgen.Query ready to run on a client connection.
package builder

import (
	"github.com/satishbabariya/litecore/query/sqlgen"
)

// WhereBuilder builds WHERE clauses
type WhereBuilder struct {
	conditions  []sqlgen.Condition
	operator    string
	whereClause *sqlgen.WhereClause // For nested AND/OR/NOT groups
}

// NewWhereBuilder creates a new WHERE builder
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{
		conditions: []sqlgen.Condition{},
		operator:   "AND",
	}
}

func (w *WhereBuilder) add(field, op string, value any) *WhereBuilder {
	w.conditions = append(w.conditions, sqlgen.Condition{
		Field:    field,
		Operator: op,
		Value:    value,
	})
	return w
}

// Equals adds an equality condition. A nil value renders IS NULL.
func (w *WhereBuilder) Equals(field string, value any) *WhereBuilder {
	return w.add(field, "=", value)
}

// NotEquals adds a not-equals condition. A nil value renders IS NOT NULL.
func (w *WhereBuilder) NotEquals(field string, value any) *WhereBuilder {
	return w.add(field, "!=", value)
}

// GreaterThan adds a greater-than condition
func (w *WhereBuilder) GreaterThan(field string, value any) *WhereBuilder {
	return w.add(field, ">", value)
}

// LessThan adds a less-than condition
func (w *WhereBuilder) LessThan(field string, value any) *WhereBuilder {
	return w.add(field, "<", value)
}

// GreaterOrEqual adds a greater-or-equal condition
func (w *WhereBuilder) GreaterOrEqual(field string, value any) *WhereBuilder {
	return w.add(field, ">=", value)
}

// LessOrEqual adds a less-or-equal condition
func (w *WhereBuilder) LessOrEqual(field string, value any) *WhereBuilder {
	return w.add(field, "<=", value)
}

// In adds an IN condition. An empty list matches nothing.
func (w *WhereBuilder) In(field string, values ...any) *WhereBuilder {
	return w.add(field, "IN", values)
}

// NotIn adds a NOT IN condition
func (w *WhereBuilder) NotIn(field string, values ...any) *WhereBuilder {
	return w.add(field, "NOT IN", values)
}

// Like adds a LIKE condition
func (w *WhereBuilder) Like(field string, pattern string) *WhereBuilder {
	return w.add(field, "LIKE", pattern)
}

// Glob adds a GLOB condition
func (w *WhereBuilder) Glob(field string, pattern string) *WhereBuilder {
	return w.add(field, "GLOB", pattern)
}

// IsNull adds an IS NULL condition
func (w *WhereBuilder) IsNull(field string) *WhereBuilder {
	return w.add(field, "IS NULL", nil)
}

// IsNotNull adds an IS NOT NULL condition
func (w *WhereBuilder) IsNotNull(field string) *WhereBuilder {
	return w.add(field, "IS NOT NULL", nil)
}

// Match adds an equality condition for every column of v, in v's order.
func (w *WhereBuilder) Match(v *sqlgen.Values) *WhereBuilder {
	for _, col := range v.Keys() {
		val, _ := v.Get(col)
		w.Equals(col, val)
	}
	return w
}

// SetOperator sets the logical operator (AND or OR)
func (w *WhereBuilder) SetOperator(op string) *WhereBuilder {
	w.operator = op
	return w
}

// Build builds the WHERE clause. It returns nil when there are no
// conditions.
func (w *WhereBuilder) Build() *sqlgen.WhereClause {
	if w == nil {
		return nil
	}
	if w.whereClause != nil && !w.whereClause.IsEmpty() {
		clause := &sqlgen.WhereClause{
			Conditions: append([]sqlgen.Condition(nil), w.conditions...),
			Groups:     append([]*sqlgen.WhereClause(nil), w.whereClause.Groups...),
			Operator:   w.operator,
		}
		return clause
	}

	if len(w.conditions) == 0 {
		return nil
	}

	clause := sqlgen.NewWhereClause()
	clause.SetOperator(w.operator)
	for _, cond := range w.conditions {
		clause.AddCondition(cond)
	}
	return clause
}

// pushWhere appends " WHERE <clause>" when w has conditions.
func pushWhere(b *sqlgen.QueryBuilder, w *WhereBuilder) {
	clause := w.Build()
	if clause.IsEmpty() {
		return
	}
	b.PushSQL(" WHERE ").PushCondition(clause)
}

func pushColumns(b *sqlgen.QueryBuilder, columns []string) {
	for i, c := range columns {
		if i > 0 {
			b.PushSQL(", ")
		}
		if c == "*" {
			b.PushSQL(c)
			continue
		}
		b.PushSQL(sqlgen.Identifier(c))
	}
}
