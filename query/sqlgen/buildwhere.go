package sqlgen

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/litecore/runtime/types"
)

// buildWhereRecursive builds a WHERE clause with support for nested conditions
func buildWhereRecursive(where *WhereClause) (Query, error) {
	if where.IsEmpty() {
		return Query{}, nil
	}

	var parts []Query

	for _, cond := range where.Conditions {
		q, err := buildCondition(cond)
		if err != nil {
			return Query{}, err
		}
		if q.SQL != "" {
			parts = append(parts, q)
		}
	}

	for _, group := range where.Groups {
		q, err := buildWhereRecursive(group)
		if err != nil {
			return Query{}, err
		}
		if q.SQL != "" {
			q.SQL = "(" + q.SQL + ")"
			parts = append(parts, q)
		}
	}

	if len(parts) == 0 {
		return Query{}, nil
	}

	op := "AND"
	if strings.EqualFold(where.Operator, "OR") {
		op = "OR"
	}

	b := NewQueryBuilder()
	if where.IsNot {
		b.PushSQL("NOT (")
	}
	for i, p := range parts {
		if i > 0 {
			b.PushSQL(" " + op + " ")
		}
		b.PushQuery(p)
	}
	if where.IsNot {
		b.PushSQL(")")
	}
	return b.Build()
}

// buildCondition builds a single condition
func buildCondition(cond Condition) (Query, error) {
	field := Identifier(cond.Field)
	op := strings.ToUpper(strings.TrimSpace(cond.Operator))
	b := NewQueryBuilder()

	switch op {
	case "=", "!=", "<>", ">", "<", ">=", "<=", "LIKE", "GLOB":
		if e, ok := cond.Value.(Expr); ok {
			b.PushSQL(field + " " + op + " ").PushExpr(e)
			break
		}
		val, err := types.Encode(cond.Value)
		if err != nil {
			return Query{}, fmt.Errorf("%w for %s: %w", ErrEncode, cond.Field, err)
		}
		switch {
		case val.IsNull() && op == "=":
			b.PushSQL(field + " IS NULL")
		case val.IsNull() && (op == "!=" || op == "<>"):
			b.PushSQL(field + " IS NOT NULL")
		default:
			b.PushSQL(field + " " + op + " ").PushBind(val)
		}

	case "IN", "NOT IN":
		values, ok := cond.Value.([]any)
		if !ok {
			return Query{}, fmt.Errorf("%s %s: value must be []any, got %T", cond.Field, op, cond.Value)
		}
		if len(values) == 0 {
			// nothing is IN an empty set
			if op == "IN" {
				return Query{SQL: "1=0"}, nil
			}
			return Query{SQL: "1=1"}, nil
		}
		b.PushSQL(field + " " + op + " (").PushValues(values...).PushSQL(")")

	case "IS NULL", "IS NOT NULL":
		b.PushSQL(field + " " + op)

	default:
		return Query{}, fmt.Errorf("%w: %q", ErrUnsupportedOperator, cond.Operator)
	}

	return b.Build()
}
