package builder

import (
	"github.com/satishbabariya/litecore/query/sqlgen"
)

// AND adds a group that holds when every builder holds.
func (w *WhereBuilder) AND(builders ...*WhereBuilder) *WhereBuilder {
	return w.group("AND", builders)
}

// OR adds a group that holds when any builder holds.
func (w *WhereBuilder) OR(builders ...*WhereBuilder) *WhereBuilder {
	return w.group("OR", builders)
}

func (w *WhereBuilder) group(op string, builders []*WhereBuilder) *WhereBuilder {
	group := sqlgen.NewWhereClause()
	group.SetOperator(op)

	for _, builder := range builders {
		subClause := builder.Build()
		if !subClause.IsEmpty() {
			group.AddGroup(subClause)
		}
	}
	if group.IsEmpty() {
		return w
	}

	w.clause().AddGroup(group)
	return w
}

// NOT adds the negation of builder.
func (w *WhereBuilder) NOT(builder *WhereBuilder) *WhereBuilder {
	subClause := builder.Build()
	if subClause.IsEmpty() {
		return w
	}
	subClause.SetNot(true)
	w.clause().AddGroup(subClause)
	return w
}

func (w *WhereBuilder) clause() *sqlgen.WhereClause {
	if w.whereClause == nil {
		w.whereClause = sqlgen.NewWhereClause()
	}
	return w.whereClause
}
