package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/satishbabariya/litecore/query/sqlgen"
	"github.com/satishbabariya/litecore/runtime/types"
)

// The worker keeps the transaction depth. Depth 0 is autocommit, depth 1
// is the outer transaction and depth n > 1 has savepoints sp1..sp(n-1)
// open. Depth only changes once the native statements succeeded.

func (w *worker) begin() error {
	depth := w.depth.Load()
	sql := "BEGIN"
	if depth > 0 {
		sql = fmt.Sprintf("SAVEPOINT sp%d", depth)
	}
	if err := w.exec(sql); err != nil {
		return err
	}
	w.depth.Store(depth + 1)
	return nil
}

func (w *worker) commit() error {
	depth := w.depth.Load()
	switch depth {
	case 0:
		return &TransactionStateError{Op: "commit", Err: ErrNoTransaction}
	case 1:
		if err := w.exec("COMMIT"); err != nil {
			return err
		}
	default:
		if err := w.exec(fmt.Sprintf("RELEASE SAVEPOINT sp%d", depth-1)); err != nil {
			return err
		}
	}
	w.depth.Store(depth - 1)
	return nil
}

func (w *worker) rollback() error {
	depth := w.depth.Load()
	switch depth {
	case 0:
		return &TransactionStateError{Op: "rollback", Err: ErrNoTransaction}
	case 1:
		if err := w.exec("ROLLBACK"); err != nil {
			return err
		}
	default:
		// ROLLBACK TO leaves the savepoint on the stack; it has to be
		// released as well or the next SAVEPOINT nests inside it.
		sp := fmt.Sprintf("sp%d", depth-1)
		if err := w.exec("ROLLBACK TO SAVEPOINT " + sp); err != nil {
			return err
		}
		if err := w.exec("RELEASE SAVEPOINT " + sp); err != nil {
			return err
		}
	}
	w.depth.Store(depth - 1)
	return nil
}

// Tx is one level of a transaction on a connection. The outermost level
// is a real transaction; nested levels are savepoints.
type Tx struct {
	conn  *Conn
	level uint

	mu   sync.Mutex
	done bool

	// release runs once the outermost level of a pooled transaction ends.
	release func()
}

// Begin starts a transaction, or a savepoint when one is already open.
func (c *Conn) Begin(ctx context.Context) (*Tx, error) {
	if _, err := c.send(ctx, &command{kind: cmdBegin}); err != nil {
		return nil, err
	}
	return &Tx{conn: c, level: c.Depth()}, nil
}

// TransactionFunc is a function that runs within a transaction.
type TransactionFunc func(tx *Tx) error

// Transaction runs fn in a transaction. It rolls back if fn returns an
// error or panics and commits otherwise. It nests when the connection is
// already in a transaction.
func (c *Conn) Transaction(ctx context.Context, fn TransactionFunc) error {
	tx, err := c.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx.run(ctx, fn)
}

func (tx *Tx) run(ctx context.Context, fn TransactionFunc) error {
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Depth returns the level this Tx controls.
func (tx *Tx) Depth() uint {
	return tx.level
}

// Conn returns the connection the transaction runs on.
func (tx *Tx) Conn() *Conn {
	return tx.conn
}

// Begin opens a savepoint nested in tx.
func (tx *Tx) Begin(ctx context.Context) (*Tx, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.conn.Begin(ctx)
}

// Transaction runs fn in a savepoint nested in tx.
func (tx *Tx) Transaction(ctx context.Context, fn TransactionFunc) error {
	nested, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}
	return nested.run(ctx, fn)
}

// Commit commits the transaction, or releases the savepoint for a nested
// level.
func (tx *Tx) Commit(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if err := tx.finishable("commit"); err != nil {
		return err
	}
	if _, err := tx.conn.send(ctx, &command{kind: cmdCommit}); err != nil {
		return err
	}
	tx.finish()
	return nil
}

// Rollback rolls the level back. Rolling back a finished Tx is a no-op,
// so Rollback can be deferred right after Begin.
func (tx *Tx) Rollback(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if err := tx.finishable("rollback"); err != nil {
		if err == ErrTxDone {
			return nil
		}
		return err
	}
	_, err := tx.conn.send(ctx, &command{kind: cmdRollback})
	// A pooled outer level hands the lease back even on failure; the pool
	// retries the rollback and drops the connection if that fails too.
	if err == nil || tx.conn.Depth() < tx.level || tx.release != nil {
		tx.finish()
	}
	return err
}

// finishable checks that tx is still open and is the innermost level.
// A level whose depth was already unwound, for example by a commit whose
// caller gave up waiting, counts as done.
func (tx *Tx) finishable(op string) error {
	if tx.done {
		return ErrTxDone
	}
	depth := tx.conn.Depth()
	switch {
	case depth < tx.level:
		tx.finish()
		return ErrTxDone
	case depth > tx.level:
		return &TransactionStateError{Op: op, Depth: depth, Err: ErrTxNotInnermost}
	}
	return nil
}

func (tx *Tx) finish() {
	tx.done = true
	if tx.release != nil {
		tx.release()
		tx.release = nil
	}
}

func (tx *Tx) check() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return ErrTxDone
	}
	if tx.conn.Depth() < tx.level {
		tx.finish()
		return ErrTxDone
	}
	return nil
}

// Execute runs q inside the transaction.
func (tx *Tx) Execute(ctx context.Context, q sqlgen.Query) (Result, error) {
	if err := tx.check(); err != nil {
		return Result{}, err
	}
	return tx.conn.Execute(ctx, q)
}

// Fetch runs q inside the transaction and streams its rows.
func (tx *Tx) Fetch(ctx context.Context, q sqlgen.Query) (*Rows, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.conn.Fetch(ctx, q)
}

// FetchAll runs q inside the transaction and collects every row.
func (tx *Tx) FetchAll(ctx context.Context, q sqlgen.Query) ([]*types.Row, error) {
	return fetchAll(ctx, tx.Fetch, q)
}

// FetchOne runs q inside the transaction and returns its first row.
func (tx *Tx) FetchOne(ctx context.Context, q sqlgen.Query) (*types.Row, error) {
	return fetchOne(ctx, tx.Fetch, q)
}

// FetchOptional runs q inside the transaction and returns its first row
// or nil.
func (tx *Tx) FetchOptional(ctx context.Context, q sqlgen.Query) (*types.Row, error) {
	return fetchOptional(ctx, tx.Fetch, q)
}

// rollbackAll unwinds every open level on c.
func (c *Conn) rollbackAll(ctx context.Context) error {
	for c.Depth() > 0 {
		if _, err := c.send(ctx, &command{kind: cmdRollback}); err != nil {
			return err
		}
	}
	return nil
}
