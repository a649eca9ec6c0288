package builder

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/litecore/query/sqlgen"
)

// OrderBy is one ORDER BY term.
type OrderBy struct {
	Field     string
	Direction string // "ASC" or "DESC"
}

// SelectBuilder builds SELECT statements
type SelectBuilder struct {
	table   string
	columns []string
	where   *WhereBuilder
	orderBy []OrderBy
	limit   *int64
	offset  *int64
}

// Select starts a SELECT from table. With no columns it selects *.
func Select(table string, columns ...string) *SelectBuilder {
	return &SelectBuilder{table: table, columns: columns}
}

// Columns replaces the selected columns
func (s *SelectBuilder) Columns(columns ...string) *SelectBuilder {
	s.columns = columns
	return s
}

// Where returns the WHERE builder for the statement.
func (s *SelectBuilder) Where() *WhereBuilder {
	if s.where == nil {
		s.where = NewWhereBuilder()
	}
	return s.where
}

// Filter replaces the WHERE builder.
func (s *SelectBuilder) Filter(w *WhereBuilder) *SelectBuilder {
	s.where = w
	return s
}

// OrderBy adds an ORDER BY term
func (s *SelectBuilder) OrderBy(field string, direction string) *SelectBuilder {
	s.orderBy = append(s.orderBy, OrderBy{Field: field, Direction: direction})
	return s
}

// Asc adds an ascending ORDER BY term
func (s *SelectBuilder) Asc(field string) *SelectBuilder {
	return s.OrderBy(field, "ASC")
}

// Desc adds a descending ORDER BY term
func (s *SelectBuilder) Desc(field string) *SelectBuilder {
	return s.OrderBy(field, "DESC")
}

// Limit sets the LIMIT
func (s *SelectBuilder) Limit(limit int64) *SelectBuilder {
	s.limit = &limit
	return s
}

// Offset sets the OFFSET
func (s *SelectBuilder) Offset(offset int64) *SelectBuilder {
	s.offset = &offset
	return s
}

// Query builds the statement. LIMIT and OFFSET are bound values.
func (s *SelectBuilder) Query() (sqlgen.Query, error) {
	b := sqlgen.NewQueryBuilder()
	b.PushSQL("SELECT ")
	if len(s.columns) == 0 {
		b.PushSQL("*")
	} else {
		pushColumns(b, s.columns)
	}
	b.PushSQL(" FROM ").PushSQL(sqlgen.Identifier(s.table))
	pushWhere(b, s.where)

	for i, o := range s.orderBy {
		dir := strings.ToUpper(strings.TrimSpace(o.Direction))
		if dir == "" {
			dir = "ASC"
		}
		if dir != "ASC" && dir != "DESC" {
			return sqlgen.Query{}, fmt.Errorf("order by %s: invalid direction %q", o.Field, o.Direction)
		}
		if i == 0 {
			b.PushSQL(" ORDER BY ")
		} else {
			b.PushSQL(", ")
		}
		b.PushSQL(sqlgen.Identifier(o.Field) + " " + dir)
	}

	switch {
	case s.limit != nil:
		b.PushSQL(" LIMIT ").PushBind(*s.limit)
	case s.offset != nil:
		// SQLite only accepts OFFSET after a LIMIT.
		b.PushSQL(" LIMIT -1")
	}
	if s.offset != nil {
		b.PushSQL(" OFFSET ").PushBind(*s.offset)
	}
	return b.Build()
}
