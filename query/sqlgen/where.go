package sqlgen

// WhereClause represents a WHERE condition (can be nested)
type WhereClause struct {
	Conditions []Condition
	Groups     []*WhereClause // Nested WHERE clauses for AND/OR/NOT
	Operator   string         // "AND" or "OR"
	IsNot      bool           // true for NOT conditions
}

// Condition represents a single filter condition
type Condition struct {
	Field    string
	Operator string // "=", "!=", "<>", ">", "<", ">=", "<=", "LIKE", "GLOB", "IN", "NOT IN", "IS NULL", "IS NOT NULL"
	Value    any    // a bound value, an Expr, or []any for IN
}

// NewWhereClause creates a new WHERE clause
func NewWhereClause() *WhereClause {
	return &WhereClause{
		Conditions: []Condition{},
		Groups:     []*WhereClause{},
		Operator:   "AND",
	}
}

// AddCondition adds a condition to the WHERE clause
func (w *WhereClause) AddCondition(condition Condition) {
	w.Conditions = append(w.Conditions, condition)
}

// Where adds a condition and returns w for chaining.
func (w *WhereClause) Where(field, op string, value any) *WhereClause {
	w.AddCondition(Condition{Field: field, Operator: op, Value: value})
	return w
}

// AddGroup adds a nested WHERE clause
func (w *WhereClause) AddGroup(group *WhereClause) {
	w.Groups = append(w.Groups, group)
}

// SetOperator sets the logical operator
func (w *WhereClause) SetOperator(op string) {
	w.Operator = op
}

// SetNot sets the NOT flag
func (w *WhereClause) SetNot(isNot bool) {
	w.IsNot = isNot
}

// IsEmpty returns true if the WHERE clause is empty
func (w *WhereClause) IsEmpty() bool {
	return w == nil || (len(w.Conditions) == 0 && len(w.Groups) == 0)
}

// Query renders the clause without the WHERE keyword. An empty clause
// renders "1=1".
func (w *WhereClause) Query() (Query, error) {
	q, err := buildWhereRecursive(w)
	if err != nil {
		return Query{}, err
	}
	if q.SQL == "" {
		return Query{SQL: "1=1"}, nil
	}
	return q, nil
}
