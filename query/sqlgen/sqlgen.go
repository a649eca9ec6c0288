// Package sqlgen builds SQLite statements with bound arguments.
//
// A Query is SQL text plus its Arguments. Queries are built by hand, from
// Values fragments, or with QueryBuilder, and can be joined into larger
// statements. Compile turns a Query into native text where every
// placeholder is an explicit ?N.
package sqlgen

import (
	"strconv"

	"github.com/satishbabariya/litecore/runtime/types"
)

// Query represents a SQL query with arguments
type Query struct {
	SQL  string
	Args *Arguments

	// Tainted is set when the query contains raw SQL that bypassed the
	// structural helpers.
	Tainted bool
}

// New creates a query binding args positionally.
func New(sql string, args ...any) (Query, error) {
	a, err := NewArguments(args...)
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sql, Args: a}, nil
}

// NewWith creates a query over an existing argument set.
func NewWith(sql string, args *Arguments) Query {
	return Query{SQL: sql, Args: args}
}

// Must panics if err is non-nil. It is meant for static queries.
func Must(q Query, err error) Query {
	if err != nil {
		panic(err)
	}
	return q
}

// Compile validates the placeholders against the bound arguments and returns
// native SQL with explicit ?N placeholders and the values they refer to.
// Values past the highest referenced index are dropped.
func (q Query) Compile() (string, []types.Value, error) {
	t, err := parseTemplate(q.SQL)
	if err != nil {
		return "", nil, err
	}
	return t.compile(q.Args)
}

// Validate reports the first placeholder error without compiling.
func (q Query) Validate() error {
	t, err := parseTemplate(q.SQL)
	if err != nil {
		return err
	}
	_, err = t.resolve(q.Args)
	return err
}

// Join concatenates queries separated by a single space.
//
// Positional placeholders of later queries continue after the arguments of
// earlier ones. Names share one namespace; when a later query binds a name
// that is already bound, the later name is renamed to name_1 (or the next
// free suffix) and its references are rewritten, so both bindings stay
// resolvable.
func (q Query) Join(others ...Query) (Query, error) {
	out := q
	for _, o := range others {
		var err error
		out, _, err = joinQueries(out, o, " ")
		if err != nil {
			return Query{}, err
		}
	}
	return out, nil
}

// joinQueries merges r into l. It reports whether the texts had to be
// rewritten with explicit indexes.
func joinQueries(l, r Query, sep string) (Query, bool, error) {
	// The left side is usually a prefix that grows with every push, so it
	// is scanned without entering the template cache.
	lt, err := scanTemplate(l.SQL)
	if err != nil {
		return Query{}, false, err
	}
	rt, err := parseTemplate(r.SQL)
	if err != nil {
		return Query{}, false, err
	}

	renames := collisionRenames(l.Args, r.Args)
	args := l.Args.Clone()
	args.appendRenamed(r.Args, renames)

	var lsql, rsql string
	canonical := !(lt.sequential(l.Args) && rt.sequential(r.Args))
	if canonical {
		if lsql, err = lt.canonical(l.Args, 0, nil); err != nil {
			return Query{}, false, err
		}
		if rsql, err = rt.canonical(r.Args, l.Args.Len(), renames); err != nil {
			return Query{}, false, err
		}
	} else {
		lsql = l.SQL
		rsql = rt.rename(r.Args, renames)
	}

	sql := lsql
	switch {
	case lsql == "":
		sql = rsql
	case rsql != "":
		sql = lsql + sep + rsql
	}
	return Query{SQL: sql, Args: args, Tainted: l.Tainted || r.Tainted}, canonical, nil
}

// collisionRenames picks a fresh name for every name bound by both sides.
func collisionRenames(l, r *Arguments) map[string]string {
	var renames map[string]string
	taken := make(map[string]bool)
	for _, n := range l.Names() {
		taken[n] = true
	}
	for _, n := range r.Names() {
		taken[n] = true
	}
	for _, n := range r.Names() {
		if _, ok := l.index(n); !ok {
			continue
		}
		for k := 1; ; k++ {
			candidate := n + "_" + strconv.Itoa(k)
			if !taken[candidate] {
				taken[candidate] = true
				if renames == nil {
					renames = make(map[string]string)
				}
				renames[n] = candidate
				break
			}
		}
	}
	return renames
}

// String returns the SQL text.
func (q Query) String() string {
	return q.SQL
}
