package client

import (
	"context"
	"fmt"

	"github.com/satishbabariya/litecore/query/sqlgen"
	"github.com/satishbabariya/litecore/runtime/types"
)

// Statement is a statement prepared and cached on one connection. It is
// executed with positional arguments bound to the native parameter
// numbers, without placeholder rewriting.
type Statement struct {
	conn     *Conn
	sql      string
	columns  []string
	params   int
	readonly bool
}

// SQL returns the statement text.
func (s *Statement) SQL() string { return s.sql }

// Columns returns the result column names; empty for statements that
// produce no rows.
func (s *Statement) Columns() []string { return append([]string(nil), s.columns...) }

// NumParams returns the number of parameters the statement takes.
func (s *Statement) NumParams() int { return s.params }

// ReadOnly reports whether the statement leaves the database unchanged.
func (s *Statement) ReadOnly() bool { return s.readonly }

func (s *Statement) bind(args []any) ([]types.Value, error) {
	if len(args) != s.params {
		return nil, &sqlgen.ProtocolError{
			Op:  "bind",
			Err: fmt.Errorf("%w: statement has %d parameters, got %d values", sqlgen.ErrUnboundPlaceholder, s.params, len(args)),
		}
	}
	values := make([]types.Value, len(args))
	for i, a := range args {
		v, err := types.Encode(a)
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d: %w", sqlgen.ErrEncode, i+1, err)
		}
		values[i] = v
	}
	return values, nil
}

// Execute runs the statement with args.
func (s *Statement) Execute(ctx context.Context, args ...any) (Result, error) {
	values, err := s.bind(args)
	if err != nil {
		return Result{}, err
	}
	return s.conn.execute(ctx, s.sql, values, false)
}

// Fetch runs the statement with args and streams its rows.
func (s *Statement) Fetch(ctx context.Context, args ...any) (*Rows, error) {
	values, err := s.bind(args)
	if err != nil {
		return nil, err
	}
	return s.conn.fetchRows(ctx, s.sql, values, false)
}

// FetchAll runs the statement with args and collects every row.
func (s *Statement) FetchAll(ctx context.Context, args ...any) ([]*types.Row, error) {
	rows, err := s.Fetch(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Row
	for rows.Next() {
		out = append(out, rows.Row())
	}
	return out, rows.Err()
}
