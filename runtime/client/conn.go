package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/satishbabariya/litecore/query/sqlgen"
	"github.com/satishbabariya/litecore/runtime/types"
)

// Conn is a single SQLite connection driven by its own worker goroutine.
// Its methods are safe for concurrent use; commands run in the order they
// are received.
type Conn struct {
	cfg *Config
	w   *worker
	log *slog.Logger

	opened time.Time

	closeOnce sync.Once
	closeErr  error
}

// Connect opens a standalone connection.
func Connect(ctx context.Context, opts ...Option) (*Conn, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	return connect(ctx, cfg)
}

func connect(ctx context.Context, cfg *Config) (*Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	native, err := openNative(cfg)
	if err != nil {
		return nil, err
	}
	w := newWorker(native, cfg)
	go w.run()

	cfg.Logger.Debug("connection opened", "database", cfg.describe())
	return &Conn{cfg: cfg, w: w, log: cfg.Logger, opened: time.Now()}, nil
}

// send hands cmd to the worker and waits for its reply. When ctx ends
// first the worker still runs the command and its reply is discarded.
func (c *Conn) send(ctx context.Context, cmd *command) (reply, error) {
	cmd.reply = make(chan reply, 1)
	if err := c.enqueue(ctx, cmd); err != nil {
		return reply{}, err
	}
	select {
	case r := <-cmd.reply:
		return r, r.err
	case <-ctx.Done():
		return reply{}, ctx.Err()
	case <-c.w.exited:
		select {
		case r := <-cmd.reply:
			return r, r.err
		default:
			return reply{}, ErrConnClosed
		}
	}
}

func (c *Conn) enqueue(ctx context.Context, cmd *command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-c.w.exited:
		return ErrConnClosed
	default:
	}
	select {
	case c.w.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.w.exited:
		return ErrConnClosed
	}
}

// Execute runs q and returns its result. Rows produced by q are stepped
// through and dropped.
func (c *Conn) Execute(ctx context.Context, q sqlgen.Query) (Result, error) {
	sql, values, err := q.Compile()
	if err != nil {
		return Result{}, err
	}
	return c.execute(ctx, sql, values, q.Tainted)
}

func (c *Conn) execute(ctx context.Context, sql string, values []types.Value, tainted bool) (Result, error) {
	ev := &StatementEvent{Op: "execute", SQL: sql, Args: values, Tainted: tainted}
	err := intercept(ctx, c.cfg.Middlewares, ev, func() error {
		r, err := c.send(ctx, &command{kind: cmdExecute, sql: sql, args: values})
		ev.Result = r.result
		return err
	})
	return ev.Result, err
}

// Fetch runs q and streams its rows. The caller must close the returned
// Rows unless it reads them to the end.
//
// The worker stays busy with the statement until its rows are consumed.
// Once more than RowBufferSize rows are pending, a further command on the
// same Conn from the goroutine holding the Rows blocks until its context
// ends, since the worker never gets to it. Read or close the Rows first,
// or use FetchAll.
func (c *Conn) Fetch(ctx context.Context, q sqlgen.Query) (*Rows, error) {
	sql, values, err := q.Compile()
	if err != nil {
		return nil, err
	}
	return c.fetchRows(ctx, sql, values, q.Tainted)
}

func (c *Conn) fetchRows(ctx context.Context, sql string, values []types.Value, tainted bool) (*Rows, error) {
	var rows *Rows
	ev := &StatementEvent{Op: "fetch", SQL: sql, Args: values, Tainted: tainted}
	err := intercept(ctx, c.cfg.Middlewares, ev, func() error {
		var err error
		rows, err = c.fetch(ctx, sql, values)
		return err
	})
	return rows, err
}

func (c *Conn) fetch(ctx context.Context, sql string, values []types.Value) (*Rows, error) {
	s := newStream(c.cfg.RowBufferSize)
	if err := c.enqueue(ctx, &command{kind: cmdExecute, sql: sql, args: values, stream: s}); err != nil {
		return nil, err
	}

	select {
	case ev, ok := <-s.events:
		if !ok {
			return nil, ErrConnClosed
		}
		if ev.final {
			if ev.err != nil {
				close(s.stop)
				return nil, ev.err
			}
			rows := newRows(ctx, s, types.NewColumns(nil))
			rows.result = ev.result
			rows.finish(nil)
			return rows, nil
		}
		return newRows(ctx, s, ev.columns), nil
	case <-ctx.Done():
		close(s.stop)
		return nil, ctx.Err()
	case <-c.w.exited:
		return nil, ErrConnClosed
	}
}

// FetchAll runs q and collects every row.
func (c *Conn) FetchAll(ctx context.Context, q sqlgen.Query) ([]*types.Row, error) {
	return fetchAll(ctx, c.Fetch, q)
}

// FetchOne runs q and returns its first row, or ErrNoRows.
func (c *Conn) FetchOne(ctx context.Context, q sqlgen.Query) (*types.Row, error) {
	return fetchOne(ctx, c.Fetch, q)
}

// FetchOptional runs q and returns its first row, or nil when there is none.
func (c *Conn) FetchOptional(ctx context.Context, q sqlgen.Query) (*types.Row, error) {
	return fetchOptional(ctx, c.Fetch, q)
}

// Prepare prepares sql, caching it on the connection, and describes it.
func (c *Conn) Prepare(ctx context.Context, sql string) (*Statement, error) {
	r, err := c.send(ctx, &command{kind: cmdPrepare, sql: sql})
	if err != nil {
		return nil, err
	}
	return &Statement{
		conn:     c,
		sql:      sql,
		columns:  r.desc.columns,
		params:   r.desc.params,
		readonly: r.desc.readonly,
	}, nil
}

// ExecScript runs sql, which may hold several statements, without
// arguments. Scripts must not open or close transactions.
func (c *Conn) ExecScript(ctx context.Context, sql string) error {
	_, err := c.send(ctx, &command{kind: cmdScript, sql: sql})
	return err
}

// Ping checks that the native connection is open.
func (c *Conn) Ping(ctx context.Context) error {
	_, err := c.send(ctx, &command{kind: cmdPing})
	return err
}

// ClearStatementCache finalizes every cached statement.
func (c *Conn) ClearStatementCache(ctx context.Context) error {
	_, err := c.send(ctx, &command{kind: cmdClearCache})
	return err
}

// CachedStatements returns the number of cached prepared statements.
func (c *Conn) CachedStatements() int {
	return c.w.stmts.Len()
}

// Depth returns the transaction depth: 0 outside a transaction, 1 in the
// outer transaction, and one more per active savepoint.
func (c *Conn) Depth() uint {
	return uint(c.w.depth.Load())
}

// WithNative runs fn on the worker goroutine with the native connection.
// fn must not keep the connection after returning.
func (c *Conn) WithNative(ctx context.Context, fn func(*sqlite3.SQLiteConn) error) error {
	_, err := c.send(ctx, &command{kind: cmdNative, native: fn})
	return err
}

// Closed returns a channel that is closed once the worker has stopped.
func (c *Conn) Closed() <-chan struct{} {
	return c.w.exited
}

// Close finalizes cached statements and closes the native connection.
// It waits for commands already queued to finish.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		_, err := c.send(context.Background(), &command{kind: cmdShutdown})
		if err == ErrConnClosed {
			err = nil
		}
		<-c.w.exited
		c.closeErr = err
		c.log.Debug("connection closed", "database", c.cfg.describe())
	})
	return c.closeErr
}
