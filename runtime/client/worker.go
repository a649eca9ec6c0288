package client

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/satishbabariya/litecore/query/cache"
	"github.com/satishbabariya/litecore/query/sqlgen"
	"github.com/satishbabariya/litecore/runtime/types"
)

type commandKind uint8

const (
	cmdPrepare commandKind = iota
	cmdExecute
	cmdBegin
	cmdCommit
	cmdRollback
	cmdScript
	cmdClearCache
	cmdPing
	cmdNative
	cmdShutdown
)

func (k commandKind) String() string {
	switch k {
	case cmdPrepare:
		return "prepare"
	case cmdExecute:
		return "execute"
	case cmdBegin:
		return "begin"
	case cmdCommit:
		return "commit"
	case cmdRollback:
		return "rollback"
	case cmdScript:
		return "script"
	case cmdClearCache:
		return "clear cache"
	case cmdPing:
		return "ping"
	case cmdNative:
		return "native"
	case cmdShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// command is one unit of work for a worker. Every command gets exactly
// one reply, either on reply or, for streamed executions, as the final
// event on stream.
type command struct {
	kind   commandKind
	sql    string
	args   []types.Value
	native func(*sqlite3.SQLiteConn) error
	stream *stream
	reply  chan reply
}

type reply struct {
	result Result
	desc   description
	err    error
}

// description is what a prepared statement reports about itself.
type description struct {
	columns  []string
	params   int
	readonly bool
}

// rowEvent is one message of a streamed execution: the column header
// first, then rows, then a final event carrying the result or error.
type rowEvent struct {
	columns *types.Columns
	values  []types.Value
	result  Result
	err     error
	final   bool
}

// stream carries rows from the worker to a Rows reader. The reader closes
// stop to tell the worker to abandon the statement.
type stream struct {
	events chan rowEvent
	stop   chan struct{}
	ended  bool
}

func newStream(size int) *stream {
	return &stream{
		events: make(chan rowEvent, size),
		stop:   make(chan struct{}),
	}
}

// send blocks until the reader takes ev or goes away.
func (s *stream) send(ev rowEvent) bool {
	select {
	case <-s.stop:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.stop:
		return false
	}
}

func (s *stream) finish(res Result, err error) {
	if s.ended {
		return
	}
	s.ended = true
	s.send(rowEvent{result: res, err: err, final: true})
	close(s.events)
}

var errStreamStopped = errors.New("row stream stopped by reader")

// statement is a prepared native statement and what it describes.
type statement struct {
	sql      string
	stmt     *sqlite3.SQLiteStmt
	columns  *types.Columns
	params   int
	readonly bool
}

func (s *statement) close() error {
	return s.stmt.Close()
}

// worker owns a native connection. Only the goroutine running run touches
// conn, the statement cache and depth writes.
type worker struct {
	conn     *sqlite3.SQLiteConn
	cfg      *Config
	log      *slog.Logger
	policy   RetryPolicy
	stmts    *cache.LRU[string, *statement]
	changes  *statement
	depth    atomic.Uint64
	commands chan *command
	exited   chan struct{}
}

func newWorker(conn *sqlite3.SQLiteConn, cfg *Config) *worker {
	w := &worker{
		conn:     conn,
		cfg:      cfg,
		log:      cfg.Logger,
		policy:   cfg.Retry,
		commands: make(chan *command, cfg.CommandBufferSize),
		exited:   make(chan struct{}),
	}
	w.stmts = cache.New[string, *statement](cfg.StatementCacheCapacity, func(sql string, s *statement) {
		if err := s.close(); err != nil {
			w.log.Warn("failed to finalize evicted statement", "sql", sql, "error", err)
		}
	})
	return w
}

// openNative opens the native handle and applies the configured pragmas.
func openNative(cfg *Config) (*sqlite3.SQLiteConn, error) {
	drv := &sqlite3.SQLiteDriver{}
	dc, err := drv.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.describe(), engineError(err, ""))
	}
	conn, ok := dc.(*sqlite3.SQLiteConn)
	if !ok {
		_ = dc.Close()
		return nil, fmt.Errorf("unexpected driver connection %T", dc)
	}
	for _, pragma := range cfg.pragmas() {
		if _, err := conn.ExecContext(context.Background(), pragma, nil); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, engineError(err, pragma))
		}
	}
	return conn, nil
}

func (w *worker) run() {
	defer close(w.exited)
	for cmd := range w.commands {
		if cmd.kind == cmdShutdown {
			cmd.reply <- reply{err: w.shutdown()}
			return
		}
		w.handle(cmd)
	}
}

func (w *worker) handle(cmd *command) {
	defer func() {
		if p := recover(); p != nil {
			w.log.Error("connection worker recovered from panic",
				"command", cmd.kind.String(), "panic", p, "stack", string(debug.Stack()))
			err := fmt.Errorf("%w: %v", ErrWorkerCrashed, p)
			if cmd.stream != nil {
				cmd.stream.finish(Result{}, err)
				return
			}
			cmd.reply <- reply{err: err}
		}
	}()

	switch cmd.kind {
	case cmdExecute:
		w.execute(cmd)
	case cmdPrepare:
		st, cached, err := w.prepare(cmd.sql)
		if err != nil {
			cmd.reply <- reply{err: err}
			return
		}
		desc := description{columns: st.columns.Names(), params: st.params, readonly: st.readonly}
		if !cached {
			_ = st.close()
		}
		cmd.reply <- reply{desc: desc}
	case cmdBegin:
		cmd.reply <- reply{err: w.begin()}
	case cmdCommit:
		cmd.reply <- reply{err: w.commit()}
	case cmdRollback:
		cmd.reply <- reply{err: w.rollback()}
	case cmdScript:
		// Scripts are not retried by the RetryPolicy: a script that failed
		// part way may have already applied its earlier statements. Only
		// busy_timeout waits on locks here.
		_, err := w.conn.ExecContext(context.Background(), cmd.sql, nil)
		cmd.reply <- reply{err: engineError(err, cmd.sql)}
	case cmdClearCache:
		w.stmts.Clear()
		cmd.reply <- reply{}
	case cmdPing:
		cmd.reply <- reply{err: w.conn.Ping(context.Background())}
	case cmdNative:
		cmd.reply <- reply{err: cmd.native(w.conn)}
	default:
		cmd.reply <- reply{err: fmt.Errorf("unknown command %d", cmd.kind)}
	}
}

// prepare returns the statement for sql, from the cache when possible.
// When the statement is not cached the caller must close it.
func (w *worker) prepare(sql string) (*statement, bool, error) {
	if st, ok := w.stmts.Get(sql); ok {
		return st, true, nil
	}

	var ds driver.Stmt
	err := w.policy.retry(func() error {
		var err error
		ds, err = w.conn.Prepare(sql)
		return engineError(err, sql)
	})
	if err != nil {
		return nil, false, err
	}
	native := ds.(*sqlite3.SQLiteStmt)

	st := &statement{
		sql:      sql,
		stmt:     native,
		params:   native.NumInput(),
		readonly: native.Readonly(),
	}
	// Querying without arguments binds nothing and does not step, which
	// is enough to read the result column names.
	rows, err := native.QueryContext(context.Background(), nil)
	if err != nil {
		_ = native.Close()
		return nil, false, engineError(err, sql)
	}
	st.columns = types.NewColumns(rows.Columns())
	converted := convertedColumns(rows)
	_ = rows.Close()

	if converted {
		// Read the same rows through a wrapper whose columns carry no
		// declared type. Statements that cannot be wrapped keep the native
		// form and fail on the converted values.
		if raw, err := w.conn.Prepare(rawSelect(sql, st.columns.Len())); err == nil {
			_ = native.Close()
			st.stmt = raw.(*sqlite3.SQLiteStmt)
		} else {
			w.log.Debug("cannot read declared columns raw", "sql", sql, "error", err)
		}
	}

	if w.stmts.Capacity() == 0 {
		return st, false, nil
	}
	w.stmts.Set(sql, st)
	return st, true, nil
}

// convertedColumns reports whether the driver would convert any result
// column from its declared type.
func convertedColumns(rows driver.Rows) bool {
	sr, ok := rows.(*sqlite3.SQLiteRows)
	if !ok {
		return false
	}
	for _, decl := range sr.DeclTypes() {
		switch strings.ToLower(decl) {
		case "date", "datetime", "timestamp", "boolean":
			return true
		}
	}
	return false
}

// rawSelect wraps a query so that each result column is a plain
// expression. Unary plus keeps the value and storage class but drops the
// declared type.
func rawSelect(sql string, n int) string {
	body := strings.TrimRight(strings.TrimSpace(sql), "; \t\r\n")
	names := make([]string, n)
	exprs := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("c%d", i)
		exprs[i] = "+" + names[i]
	}
	return "WITH _litecore_raw(" + strings.Join(names, ", ") + ") AS (\n" + body +
		"\n) SELECT " + strings.Join(exprs, ", ") + " FROM _litecore_raw"
}

func (w *worker) execute(cmd *command) {
	start := time.Now()
	res, err := w.executeStatement(cmd)
	if !errors.Is(err, errStreamStopped) {
		w.logStatement(cmd.sql, time.Since(start), err)
	}

	if cmd.stream != nil {
		if errors.Is(err, errStreamStopped) {
			cmd.stream.ended = true
			close(cmd.stream.events)
			return
		}
		cmd.stream.finish(res, err)
		return
	}
	cmd.reply <- reply{result: res, err: err}
}

func (w *worker) executeStatement(cmd *command) (Result, error) {
	if strings.TrimSpace(cmd.sql) == "" {
		if cmd.stream != nil && !cmd.stream.send(rowEvent{columns: types.NewColumns(nil)}) {
			return Result{}, errStreamStopped
		}
		return Result{}, nil
	}

	st, cached, err := w.prepare(cmd.sql)
	if err != nil {
		return Result{}, err
	}
	if !cached {
		defer st.close()
	}

	if len(cmd.args) < st.params {
		return Result{}, &sqlgen.ProtocolError{
			Op:  "bind",
			Err: fmt.Errorf("%w: statement has %d parameters, got %d values", sqlgen.ErrUnboundPlaceholder, st.params, len(cmd.args)),
		}
	}
	args := namedValues(cmd.args, st.params)

	var (
		res     Result
		emitted int
	)
	for attempt := 1; ; attempt++ {
		res, emitted, err = w.step(st, args, cmd.stream)
		if err == nil || emitted > 0 || !IsBusy(err) || attempt >= w.policy.MaxAttempts {
			return res, err
		}
		w.log.Debug("retrying busy statement", "sql", cmd.sql, "attempt", attempt, "error", err)
		time.Sleep(w.policy.delay(attempt))
	}
}

// step runs the statement to completion. Rows are sent to s when it is
// not nil and dropped otherwise. emitted counts the rows sent, since a
// statement that already produced rows cannot be retried.
func (w *worker) step(st *statement, args []driver.NamedValue, s *stream) (Result, int, error) {
	if st.columns.Len() == 0 {
		r, err := st.stmt.ExecContext(context.Background(), args)
		if err != nil {
			return Result{}, 0, engineError(err, st.sql)
		}
		if s != nil && !s.send(rowEvent{columns: st.columns}) {
			return Result{}, 0, errStreamStopped
		}
		if st.readonly {
			return Result{}, 0, nil
		}
		n, _ := r.RowsAffected()
		id, _ := r.LastInsertId()
		return Result{RowsAffected: n, LastInsertRowID: id}, 0, nil
	}

	rows, err := st.stmt.QueryContext(context.Background(), args)
	if err != nil {
		return Result{}, 0, engineError(err, st.sql)
	}
	emitted := 0
	dest := make([]driver.Value, st.columns.Len())
	for {
		err := rows.Next(dest)
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = rows.Close()
			return Result{}, emitted, engineError(err, st.sql)
		}
		if s == nil {
			continue
		}
		if emitted == 0 && !s.send(rowEvent{columns: st.columns}) {
			_ = rows.Close()
			return Result{}, 0, errStreamStopped
		}
		values, err := convertRow(dest)
		if err != nil {
			_ = rows.Close()
			return Result{}, emitted, err
		}
		emitted++
		if !s.send(rowEvent{values: values}) {
			_ = rows.Close()
			return Result{}, emitted, errStreamStopped
		}
	}
	if err := rows.Close(); err != nil {
		return Result{}, emitted, engineError(err, st.sql)
	}
	if s != nil && emitted == 0 && !s.send(rowEvent{columns: st.columns}) {
		return Result{}, 0, errStreamStopped
	}

	if st.readonly {
		return Result{}, emitted, nil
	}
	res, err := w.lastChanges()
	return res, emitted, err
}

// lastChanges reads the change counter and rowid left by the statement
// that just finished.
func (w *worker) lastChanges() (Result, error) {
	const sql = "SELECT changes(), last_insert_rowid()"
	if w.changes == nil {
		ds, err := w.conn.Prepare(sql)
		if err != nil {
			return Result{}, engineError(err, sql)
		}
		w.changes = &statement{sql: sql, stmt: ds.(*sqlite3.SQLiteStmt)}
	}
	rows, err := w.changes.stmt.QueryContext(context.Background(), nil)
	if err != nil {
		return Result{}, engineError(err, sql)
	}
	defer rows.Close()

	dest := make([]driver.Value, 2)
	if err := rows.Next(dest); err != nil {
		return Result{}, engineError(err, sql)
	}
	n, _ := dest[0].(int64)
	id, _ := dest[1].(int64)
	return Result{RowsAffected: n, LastInsertRowID: id}, nil
}

func convertRow(columns *types.Columns, dest []driver.Value) ([]types.Value, error) {
	values := make([]types.Value, len(dest))
	for i, d := range dest {
		v, err := types.FromDriver(d)
		if err != nil {
			return nil, fmt.Errorf("column %q (index %d): %w", columns.Names()[i], i, err)
		}
		values[i] = v
	}
	return values, nil
}

func namedValues(values []types.Value, n int) []driver.NamedValue {
	if len(values) > n {
		values = values[:n]
	}
	out := make([]driver.NamedValue, len(values))
	for i, v := range values {
		out[i] = driver.NamedValue{Ordinal: i + 1, Value: v.Driver()}
	}
	return out
}

// exec runs a statement that takes no arguments and returns no rows,
// retrying busy errors.
func (w *worker) exec(sql string) error {
	start := time.Now()
	err := w.policy.retry(func() error {
		_, err := w.conn.ExecContext(context.Background(), sql, nil)
		return engineError(err, sql)
	})
	w.logStatement(sql, time.Since(start), err)
	return err
}

func (w *worker) logStatement(sql string, elapsed time.Duration, err error) {
	if !w.cfg.LogStatements {
		return
	}
	if err != nil {
		w.log.Debug("statement failed", "sql", sql, "elapsed", elapsed, "error", err)
		return
	}
	if w.cfg.SlowStatementThreshold > 0 && elapsed >= w.cfg.SlowStatementThreshold {
		w.log.Warn("slow statement", "sql", sql, "elapsed", elapsed, "threshold", w.cfg.SlowStatementThreshold)
		return
	}
	w.log.Debug("statement executed", "sql", sql, "elapsed", elapsed)
}

func (w *worker) shutdown() error {
	if w.cfg.OptimizeOnClose && !w.cfg.ReadOnly {
		if w.cfg.AnalysisLimit > 0 {
			if err := w.exec(fmt.Sprintf("PRAGMA analysis_limit = %d", w.cfg.AnalysisLimit)); err != nil {
				w.log.Warn("failed to set analysis limit", "error", err)
			}
		}
		if err := w.exec("PRAGMA optimize"); err != nil {
			w.log.Warn("failed to optimize on close", "error", err)
		}
	}
	if w.changes != nil {
		_ = w.changes.close()
		w.changes = nil
	}
	w.stmts.Clear()
	return w.conn.Close()
}
