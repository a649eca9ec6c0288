package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/satishbabariya/litecore/runtime/types"
)

// StatementEvent describes a statement passing through the middleware chain.
type StatementEvent struct {
	Op       string // "execute" or "fetch"
	SQL      string
	Args     []types.Value
	Tainted  bool
	Result   Result
	Duration time.Duration
	Error    error
	Start    time.Time
	End      time.Time
}

// Middleware intercepts statements. It must call next exactly once to run
// the statement, and may inspect the event before and after.
type Middleware func(ctx context.Context, event *StatementEvent, next func() error) error

// intercept runs exec through the middleware chain.
func intercept(ctx context.Context, mws []Middleware, event *StatementEvent, exec func() error) error {
	if len(mws) == 0 {
		return exec()
	}

	event.Start = time.Now()
	index := 0

	var next func() error
	next = func() error {
		if index >= len(mws) {
			err := exec()
			event.End = time.Now()
			event.Duration = event.End.Sub(event.Start)
			event.Error = err
			return err
		}
		mw := mws[index]
		index++
		return mw(ctx, event, next)
	}

	return next()
}

// LoggingMiddleware logs every statement at debug level and failures at
// warn level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(ctx context.Context, event *StatementEvent, next func() error) error {
		logger.DebugContext(ctx, "running statement", "op", event.Op, "sql", event.SQL, "args", len(event.Args), "tainted", event.Tainted)
		err := next()
		if err != nil {
			logger.WarnContext(ctx, "statement failed", "op", event.Op, "sql", event.SQL, "error", err)
		} else {
			logger.DebugContext(ctx, "statement completed", "op", event.Op, "duration", event.Duration, "rows_affected", event.Result.RowsAffected)
		}
		return err
	}
}

// TimingMiddleware reports how long each statement took. For fetches the
// duration covers the time until the first row is ready.
func TimingMiddleware(onTiming func(op, sql string, duration time.Duration)) Middleware {
	return func(ctx context.Context, event *StatementEvent, next func() error) error {
		err := next()
		if onTiming != nil {
			onTiming(event.Op, event.SQL, event.Duration)
		}
		return err
	}
}

// ErrorMiddleware reports failed statements.
func ErrorMiddleware(onError func(sql string, err error)) Middleware {
	return func(ctx context.Context, event *StatementEvent, next func() error) error {
		err := next()
		if err != nil && onError != nil {
			onError(event.SQL, err)
		}
		return err
	}
}
