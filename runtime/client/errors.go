package client

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Error types for connection, transaction and pool operations.
var (
	// ErrEngineBusy matches native SQLITE_BUSY errors that outlived the retry policy.
	ErrEngineBusy = errors.New("database is busy")

	// ErrEngineLocked matches native SQLITE_LOCKED errors that outlived the retry policy.
	ErrEngineLocked = errors.New("database table is locked")

	// ErrNoTransaction is returned by commit or rollback at depth 0.
	ErrNoTransaction = errors.New("no transaction is active")

	// ErrTxNotInnermost is returned when a transaction level is finished
	// while a nested level opened from it is still active.
	ErrTxNotInnermost = errors.New("a nested transaction is still active")

	// ErrTxDone is returned when a finished transaction is used.
	ErrTxDone = errors.New("transaction has already been committed or rolled back")

	// ErrPoolTimedOut is returned when no connection became available in time.
	ErrPoolTimedOut = errors.New("timed out waiting for a connection")

	// ErrPoolClosed is returned by a closed pool.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrWorkerCrashed is returned when a command panicked on the worker.
	ErrWorkerCrashed = errors.New("connection worker crashed")

	// ErrConnClosed is returned by a closed connection.
	ErrConnClosed = errors.New("connection is closed")

	// ErrNoRows is returned by FetchOne when the query produced no rows.
	ErrNoRows = errors.New("no rows in result set")

	// ErrInvalidConfig is returned for configuration that cannot be opened.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// EngineError is an error reported by the native SQLite library.
type EngineError struct {
	Code         int
	ExtendedCode int
	Message      string
	SQL          string
	Cause        error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.SQL != "" {
		return fmt.Sprintf("sqlite error %d (extended %d): %s [sql: %s]", e.Code, e.ExtendedCode, e.Message, e.SQL)
	}
	return fmt.Sprintf("sqlite error %d (extended %d): %s", e.Code, e.ExtendedCode, e.Message)
}

// Unwrap returns the native error.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is matches ErrEngineBusy and ErrEngineLocked by primary result code.
func (e *EngineError) Is(target error) bool {
	switch target {
	case ErrEngineBusy:
		return e.Code == int(sqlite3.ErrBusy)
	case ErrEngineLocked:
		return e.Code == int(sqlite3.ErrLocked)
	}
	return false
}

// engineError converts native errors into *EngineError. Other errors pass
// through unchanged.
func engineError(err error, sql string) error {
	if err == nil {
		return nil
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return err
	}
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return err
	}
	return &EngineError{
		Code:         int(se.Code),
		ExtendedCode: int(se.ExtendedCode),
		Message:      se.Error(),
		SQL:          sql,
		Cause:        se,
	}
}

// TransactionStateError is returned when a transaction command does not
// fit the connection's current depth.
type TransactionStateError struct {
	Op    string
	Depth uint
	Err   error
}

// Error implements the error interface.
func (e *TransactionStateError) Error() string {
	return fmt.Sprintf("%s at depth %d: %v", e.Op, e.Depth, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransactionStateError) Unwrap() error {
	return e.Err
}

// PoolError wraps a pool failure with the operation that hit it.
type PoolError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *PoolError) Error() string {
	return fmt.Sprintf("pool %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *PoolError) Unwrap() error {
	return e.Err
}

// IsBusy reports whether err is a busy or locked error from the engine.
func IsBusy(err error) bool {
	return errors.Is(err, ErrEngineBusy) || errors.Is(err, ErrEngineLocked)
}

// IsNoTransaction reports whether err was caused by finishing a
// transaction that was never started.
func IsNoTransaction(err error) bool {
	return errors.Is(err, ErrNoTransaction)
}

// IsPoolClosed reports whether err came from a closed pool.
func IsPoolClosed(err error) bool {
	return errors.Is(err, ErrPoolClosed)
}
