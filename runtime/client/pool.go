package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/satishbabariya/litecore/query/sqlgen"
	"github.com/satishbabariya/litecore/runtime/types"
)

// releaseTimeout bounds the rollback run on a connection returned with an
// open transaction.
const releaseTimeout = 10 * time.Second

// Pool hands out connections to one database. Waiters are served in the
// order they called Acquire.
type Pool struct {
	cfg *Config
	log *slog.Logger
	sem *semaphore.Weighted

	mu      sync.Mutex
	idle    []idleConn
	size    int
	leased  int
	closed  bool
	drained chan struct{}
	signal  bool

	closeCtx    context.Context
	closeCancel context.CancelFunc

	waiting  atomic.Int64
	acquired atomic.Int64
	timeouts atomic.Int64
	leaked   atomic.Int64
}

type idleConn struct {
	conn  *Conn
	since time.Time
}

// PoolStats is a snapshot of pool counters.
type PoolStats struct {
	MaxConnections int
	Size           int
	Idle           int
	Leased         int
	Waiting        int64
	Acquired       int64
	Timeouts       int64
	Leaked         int64
}

// Open creates a pool and opens its first connection, so a bad
// configuration fails here rather than on first use.
func Open(ctx context.Context, opts ...Option) (*Pool, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	p := newPool(cfg)

	pc, err := p.Acquire(ctx)
	if err != nil {
		_ = p.Close(context.Background())
		return nil, err
	}
	pc.Release()

	p.log.Debug("pool opened", "database", cfg.describe(), "max_connections", cfg.MaxConnections)
	return p, nil
}

func newPool(cfg *Config) *Pool {
	closeCtx, closeCancel := context.WithCancel(context.Background())
	return &Pool{
		cfg:         cfg,
		log:         cfg.Logger,
		sem:         semaphore.NewWeighted(int64(cfg.MaxConnections)),
		drained:     make(chan struct{}),
		closeCtx:    closeCtx,
		closeCancel: closeCancel,
	}
}

// Acquire waits for a connection. It fails with ErrPoolTimedOut once the
// acquire timeout passes, with ErrPoolClosed when the pool closes, and
// with ctx's error when ctx ends first.
func (p *Pool) Acquire(ctx context.Context) (*PoolConn, error) {
	if p.IsClosed() {
		return nil, &PoolError{Op: "acquire", Err: ErrPoolClosed}
	}

	var (
		wctx   context.Context
		cancel context.CancelFunc
	)
	if p.cfg.AcquireTimeout > 0 {
		wctx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
	} else {
		wctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()
	stop := context.AfterFunc(p.closeCtx, cancel)
	defer stop()

	p.waiting.Add(1)
	err := p.sem.Acquire(wctx, 1)
	p.waiting.Add(-1)
	if err != nil {
		switch {
		case p.IsClosed():
			return nil, &PoolError{Op: "acquire", Err: ErrPoolClosed}
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			p.timeouts.Add(1)
			return nil, &PoolError{Op: "acquire", Err: ErrPoolTimedOut}
		}
	}

	conn, err := p.take(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}
	return p.lease(conn), nil
}

// TryAcquire returns an idle connection without waiting. It never opens
// a new connection.
func (p *Pool) TryAcquire() (*PoolConn, bool) {
	if p.IsClosed() || !p.sem.TryAcquire(1) {
		return nil, false
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		return nil, false
	}
	conn, expired := p.popIdleLocked()
	if conn != nil {
		p.leased++
	}
	p.mu.Unlock()

	p.closeExpired(expired)
	if conn == nil {
		p.sem.Release(1)
		return nil, false
	}
	return p.lease(conn), true
}

// take returns an idle connection or opens a new one. The caller holds a
// permit.
func (p *Pool) take(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, &PoolError{Op: "acquire", Err: ErrPoolClosed}
	}
	conn, expired := p.popIdleLocked()
	if conn == nil {
		p.size++
	}
	p.leased++
	p.mu.Unlock()

	p.closeExpired(expired)
	if conn != nil {
		return conn, nil
	}

	conn, err := connect(ctx, p.cfg)
	if err != nil {
		p.mu.Lock()
		p.size--
		p.leased--
		p.signalDrainedLocked()
		p.mu.Unlock()
		return nil, &PoolError{Op: "connect", Err: err}
	}
	return conn, nil
}

// popIdleLocked takes the longest-idle usable connection. Connections past
// the idle timeout or the max lifetime, or whose worker has stopped, are
// returned for closing.
func (p *Pool) popIdleLocked() (*Conn, []*Conn) {
	var expired []*Conn
	for len(p.idle) > 0 {
		ic := p.idle[0]
		p.idle[0] = idleConn{}
		p.idle = p.idle[1:]

		stale := p.cfg.IdleTimeout > 0 && time.Since(ic.since) > p.cfg.IdleTimeout || p.expired(ic.conn)
		select {
		case <-ic.conn.Closed():
			stale = true
		default:
		}
		if stale {
			p.size--
			expired = append(expired, ic.conn)
			continue
		}
		return ic.conn, expired
	}
	return nil, expired
}

func (p *Pool) expired(conn *Conn) bool {
	return p.cfg.MaxLifetime > 0 && time.Since(conn.opened) > p.cfg.MaxLifetime
}

func (p *Pool) closeExpired(conns []*Conn) {
	for _, c := range conns {
		if err := c.Close(); err != nil {
			p.log.Warn("failed to close idle connection", "error", err)
		}
	}
}

func (p *Pool) lease(conn *Conn) *PoolConn {
	p.acquired.Add(1)
	pc := &PoolConn{Conn: conn, pool: p}
	trackLease(pc)
	return pc
}

// release returns a leased connection. An open transaction is rolled back
// first; a connection that cannot be rolled back is closed.
func (p *Pool) release(conn *Conn) {
	reuse := true
	if conn.Depth() > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		if err := conn.rollbackAll(ctx); err != nil {
			p.log.Warn("failed to roll back released connection; closing it", "error", err)
			reuse = false
		}
		cancel()
	}
	select {
	case <-conn.Closed():
		reuse = false
	default:
	}
	if p.expired(conn) {
		reuse = false
	}

	p.mu.Lock()
	closing := p.closed || !reuse
	if !closing {
		p.idle = append(p.idle, idleConn{conn: conn, since: time.Now()})
	}
	p.mu.Unlock()

	if closing {
		if err := conn.Close(); err != nil {
			p.log.Warn("failed to close released connection", "error", err)
		}
	}
	p.finishLease(closing)
}

// detach closes a leased connection instead of returning it.
func (p *Pool) detach(conn *Conn) error {
	err := conn.Close()
	p.finishLease(true)
	return err
}

func (p *Pool) finishLease(closed bool) {
	p.mu.Lock()
	if closed {
		p.size--
	}
	p.leased--
	p.signalDrainedLocked()
	p.mu.Unlock()
	p.sem.Release(1)
}

func (p *Pool) signalDrainedLocked() {
	if p.closed && p.leased == 0 && !p.signal {
		p.signal = true
		close(p.drained)
	}
}

// Close stops handing out connections, fails every waiter with
// ErrPoolClosed, closes idle connections, and waits until leased ones are
// released and closed or ctx ends.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return p.waitDrained(ctx)
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.size -= len(idle)
	p.signalDrainedLocked()
	p.mu.Unlock()

	p.closeCancel()

	var errs []error
	for _, ic := range idle {
		if err := ic.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.waitDrained(ctx); err != nil {
		errs = append(errs, err)
	}
	p.log.Debug("pool closed", "database", p.cfg.describe())
	return errors.Join(errs...)
}

func (p *Pool) waitDrained(ctx context.Context) error {
	select {
	case <-p.drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsClosed reports whether Close has been called.
func (p *Pool) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// CloseEvent returns a channel closed when the pool starts closing.
func (p *Pool) CloseEvent() <-chan struct{} {
	return p.closeCtx.Done()
}

// Size returns the number of open connections, idle and leased.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// NumIdle returns the number of idle connections.
func (p *Pool) NumIdle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Config returns the pool configuration.
func (p *Pool) Config() Config {
	return *p.cfg
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		MaxConnections: p.cfg.MaxConnections,
		Size:           p.size,
		Idle:           len(p.idle),
		Leased:         p.leased,
		Waiting:        p.waiting.Load(),
		Acquired:       p.acquired.Load(),
		Timeouts:       p.timeouts.Load(),
		Leaked:         p.leaked.Load(),
	}
}

// Execute acquires a connection, runs q, and releases the connection.
func (p *Pool) Execute(ctx context.Context, q sqlgen.Query) (Result, error) {
	pc, err := p.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer pc.Release()
	return pc.Execute(ctx, q)
}

// Fetch acquires a connection and streams q's rows. The connection is
// released when the rows are closed or read to the end.
func (p *Pool) Fetch(ctx context.Context, q sqlgen.Query) (*Rows, error) {
	pc, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := pc.Fetch(ctx, q)
	if err != nil {
		pc.Release()
		return nil, err
	}
	rows.onClose = pc.Release
	return rows, nil
}

// FetchAll runs q on a pooled connection and collects every row.
func (p *Pool) FetchAll(ctx context.Context, q sqlgen.Query) ([]*types.Row, error) {
	return fetchAll(ctx, p.Fetch, q)
}

// FetchOne runs q on a pooled connection and returns its first row.
func (p *Pool) FetchOne(ctx context.Context, q sqlgen.Query) (*types.Row, error) {
	return fetchOne(ctx, p.Fetch, q)
}

// FetchOptional runs q on a pooled connection and returns its first row
// or nil.
func (p *Pool) FetchOptional(ctx context.Context, q sqlgen.Query) (*types.Row, error) {
	return fetchOptional(ctx, p.Fetch, q)
}

// Begin acquires a connection and starts a transaction on it. The
// connection goes back to the pool when the transaction ends.
func (p *Pool) Begin(ctx context.Context) (*Tx, error) {
	pc, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := pc.Begin(ctx)
	if err != nil {
		pc.Release()
		return nil, err
	}
	tx.release = pc.Release
	return tx, nil
}

// Transaction runs fn in a transaction on a pooled connection.
func (p *Pool) Transaction(ctx context.Context, fn TransactionFunc) error {
	tx, err := p.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx.run(ctx, fn)
}
