package client

import (
	"runtime"
	"sync/atomic"
)

// PoolConn is a connection leased from a Pool. Release it when done; a
// lease that is garbage collected without being released is closed.
type PoolConn struct {
	*Conn
	pool     *Pool
	released atomic.Bool
}

func trackLease(pc *PoolConn) {
	runtime.SetFinalizer(pc, (*PoolConn).leak)
}

// Release returns the connection to the pool. It is safe to call more
// than once.
func (pc *PoolConn) Release() {
	if !pc.released.CompareAndSwap(false, true) {
		return
	}
	runtime.SetFinalizer(pc, nil)
	pc.pool.release(pc.Conn)
}

// Close closes the connection and removes it from the pool.
func (pc *PoolConn) Close() error {
	if !pc.released.CompareAndSwap(false, true) {
		return nil
	}
	runtime.SetFinalizer(pc, nil)
	return pc.pool.detach(pc.Conn)
}

// leak closes a lease that was dropped without Release. It runs on the
// finalizer goroutine and closes the connection before returning.
func (pc *PoolConn) leak() {
	if !pc.released.CompareAndSwap(false, true) {
		return
	}
	pc.pool.leaked.Add(1)
	pc.pool.log.Warn("pooled connection was dropped without being released; closing it",
		"database", pc.pool.cfg.describe(), "depth", pc.Conn.Depth())
	if err := pc.pool.detach(pc.Conn); err != nil {
		pc.pool.log.Warn("failed to close leaked connection", "error", err)
	}
}
