// Package client runs SQLite connections on dedicated worker goroutines.
//
// A Conn owns one native handle and serializes every call to it through a
// single goroutine. A Pool multiplexes callers over a bounded set of Conns
// and hands them out in FIFO order. Transactions nest through savepoints.
package client

import (
	"context"
	"errors"

	"github.com/satishbabariya/litecore/query/sqlgen"
	"github.com/satishbabariya/litecore/runtime/types"
)

// Result describes the outcome of an executed statement.
type Result struct {
	// RowsAffected is zero for read-only statements.
	RowsAffected    int64
	LastInsertRowID int64
}

// Executor runs queries. It is implemented by *Conn, *PoolConn, *Tx and *Pool.
type Executor interface {
	Execute(ctx context.Context, q sqlgen.Query) (Result, error)
	Fetch(ctx context.Context, q sqlgen.Query) (*Rows, error)
	FetchAll(ctx context.Context, q sqlgen.Query) ([]*types.Row, error)
	FetchOne(ctx context.Context, q sqlgen.Query) (*types.Row, error)
	FetchOptional(ctx context.Context, q sqlgen.Query) (*types.Row, error)
}

var (
	_ Executor = (*Conn)(nil)
	_ Executor = (*PoolConn)(nil)
	_ Executor = (*Tx)(nil)
	_ Executor = (*Pool)(nil)
)

type fetchFunc func(ctx context.Context, q sqlgen.Query) (*Rows, error)

func fetchAll(ctx context.Context, fetch fetchFunc, q sqlgen.Query) ([]*types.Row, error) {
	rows, err := fetch(ctx, q)
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

func fetchOne(ctx context.Context, fetch fetchFunc, q sqlgen.Query) (*types.Row, error) {
	row, err := fetchOptional(ctx, fetch, q)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrNoRows
	}
	return row, nil
}

func fetchOptional(ctx context.Context, fetch fetchFunc, q sqlgen.Query) (*types.Row, error) {
	rows, err := fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if rows.Next() {
		return rows.Row(), nil
	}
	return nil, rows.Err()
}

// ExecuteSQL is a shorthand for building a Query from sql and args and
// executing it on ex.
func ExecuteSQL(ctx context.Context, ex Executor, sql string, args ...any) (Result, error) {
	q, err := sqlgen.New(sql, args...)
	if err != nil {
		return Result{}, err
	}
	return ex.Execute(ctx, q)
}

// FetchAllSQL is a shorthand for building a Query from sql and args and
// fetching every row on ex.
func FetchAllSQL(ctx context.Context, ex Executor, sql string, args ...any) ([]*types.Row, error) {
	q, err := sqlgen.New(sql, args...)
	if err != nil {
		return nil, err
	}
	return ex.FetchAll(ctx, q)
}

// IsNoRows reports whether err means a query returned no rows.
func IsNoRows(err error) bool {
	return errors.Is(err, ErrNoRows)
}
