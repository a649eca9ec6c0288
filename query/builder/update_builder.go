package builder

import (
	"github.com/satishbabariya/litecore/query/sqlgen"
)

// UpdateBuilder builds UPDATE queries
type UpdateBuilder struct {
	table     string
	set       *sqlgen.Values
	where     *WhereBuilder
	returning []string
}

// Update starts an UPDATE of table.
func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table, set: sqlgen.NewValues()}
}

// Set sets a column value. value may be an sqlgen.Expr.
func (u *UpdateBuilder) Set(field string, value any) *UpdateBuilder {
	u.set.Val(field, value)
	return u
}

// SetValues sets every column of v.
func (u *UpdateBuilder) SetValues(v *sqlgen.Values) *UpdateBuilder {
	u.set.Extend(v)
	return u
}

// Where returns the WHERE builder for the statement.
func (u *UpdateBuilder) Where() *WhereBuilder {
	if u.where == nil {
		u.where = NewWhereBuilder()
	}
	return u.where
}

// Returning adds a RETURNING clause.
func (u *UpdateBuilder) Returning(columns ...string) *UpdateBuilder {
	u.returning = append(u.returning, columns...)
	return u
}

// Query builds the statement. An update with no columns is an error.
func (u *UpdateBuilder) Query() (sqlgen.Query, error) {
	b := sqlgen.NewQueryBuilder()
	b.PushSQL("UPDATE ").PushSQL(sqlgen.Identifier(u.table)).PushSQL(" SET ").PushSet(u.set)
	pushWhere(b, u.where)
	pushReturning(b, u.returning)
	return b.Build()
}

// DeleteBuilder builds DELETE queries
type DeleteBuilder struct {
	table     string
	where     *WhereBuilder
	returning []string
}

// DeleteFrom starts a DELETE from table. Without conditions every row is
// deleted.
func DeleteFrom(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

// Where returns the WHERE builder for the statement.
func (d *DeleteBuilder) Where() *WhereBuilder {
	if d.where == nil {
		d.where = NewWhereBuilder()
	}
	return d.where
}

// Returning adds a RETURNING clause.
func (d *DeleteBuilder) Returning(columns ...string) *DeleteBuilder {
	d.returning = append(d.returning, columns...)
	return d
}

// Query builds the statement.
func (d *DeleteBuilder) Query() (sqlgen.Query, error) {
	b := sqlgen.NewQueryBuilder()
	b.PushSQL("DELETE FROM ").PushSQL(sqlgen.Identifier(d.table))
	pushWhere(b, d.where)
	pushReturning(b, d.returning)
	return b.Build()
}

func pushReturning(b *sqlgen.QueryBuilder, columns []string) {
	if len(columns) == 0 {
		return
	}
	b.PushSQL(" RETURNING ")
	pushColumns(b, columns)
}
