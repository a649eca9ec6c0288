package sqlgen

// InsertBuilder builds an INSERT INTO statement.
type InsertBuilder struct {
	table     string
	values    *Values
	returning []string
	conflict  []string
	exclude   []string
	upsert    bool
}

// InsertInto starts an INSERT for table.
func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table, values: NewValues()}
}

// Value adds a column. Adding a column twice keeps the last value.
func (i *InsertBuilder) Value(column string, value any) *InsertBuilder {
	i.values.Val(column, value)
	return i
}

// Values adds every column of vals.
func (i *InsertBuilder) Values(vals *Values) *InsertBuilder {
	i.values.Extend(vals)
	return i
}

// OnConflictUpdate turns the insert into an upsert on the target columns,
// updating every inserted column except the targets and exclude.
func (i *InsertBuilder) OnConflictUpdate(target []string, exclude ...string) *InsertBuilder {
	i.upsert = true
	i.conflict = target
	i.exclude = append(append([]string(nil), target...), exclude...)
	return i
}

// Returning adds a RETURNING clause.
func (i *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	i.returning = append(i.returning, columns...)
	return i
}

// Query builds the statement. An insert with no columns is an error.
func (i *InsertBuilder) Query() (Query, error) {
	if err := i.values.Err(); err != nil {
		return Query{}, err
	}
	if i.values.Len() == 0 {
		return Query{}, &ProtocolError{Op: "insert into " + i.table, Err: ErrEmptyValues}
	}

	b := NewQueryBuilder()
	b.PushSQL("INSERT INTO ").PushIdentifier(i.table).PushSQL(" ").PushInsert(i.values)
	if i.upsert {
		b.PushSQL(" ON CONFLICT")
		if len(i.conflict) > 0 {
			b.PushSQL(" (").PushIdents(i.conflict...).PushSQL(")")
		}
		upd, err := i.values.RenderUpsert(i.exclude...)
		if err != nil {
			b.PushSQL(" DO NOTHING")
		} else {
			b.PushSQL(" DO UPDATE SET ").PushQuery(upd)
		}
	}
	if len(i.returning) > 0 {
		b.PushSQL(" RETURNING ")
		for n, c := range i.returning {
			if n > 0 {
				b.PushSQL(", ")
			}
			if c == "*" {
				b.PushSQL(c)
				continue
			}
			b.PushSQL(Identifier(c))
		}
	}
	return b.Build()
}
