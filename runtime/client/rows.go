package client

import (
	"context"
	"runtime"
	"sync"

	"github.com/satishbabariya/litecore/runtime/types"
)

// Rows is a stream of rows produced by a worker. Rows must be closed
// unless Next has returned false; closing early stops the worker.
type Rows struct {
	ctx     context.Context
	s       *stream
	columns *types.Columns
	row     *types.Row
	result  Result
	err     error
	done    bool

	closeOnce sync.Once
	onClose   func()
}

func newRows(ctx context.Context, s *stream, columns *types.Columns) *Rows {
	r := &Rows{ctx: ctx, s: s, columns: columns}
	// An abandoned stream would keep its worker blocked on the next row.
	runtime.SetFinalizer(r, (*Rows).Close)
	return r
}

// Columns returns the result column names.
func (r *Rows) Columns() []string {
	return r.columns.Names()
}

// Next advances to the next row. It returns false at the end of the
// stream or on error; check Err afterwards.
func (r *Rows) Next() bool {
	if r.done {
		return false
	}
	select {
	case ev, ok := <-r.s.events:
		if !ok {
			r.finish(nil)
			return false
		}
		if ev.final {
			r.result = ev.result
			r.finish(ev.err)
			return false
		}
		r.row = types.NewRow(r.columns, ev.values)
		return true
	case <-r.ctx.Done():
		r.finish(r.ctx.Err())
		return false
	}
}

// Row returns the current row.
func (r *Rows) Row() *types.Row {
	return r.row
}

// Scan decodes the current row into dest.
func (r *Rows) Scan(dest ...any) error {
	if r.row == nil {
		return ErrNoRows
	}
	return r.row.Scan(dest...)
}

// Err returns the error that ended the stream, if any.
func (r *Rows) Err() error {
	return r.err
}

// Result returns the statement result once Next has returned false.
func (r *Rows) Result() Result {
	return r.result
}

// Close stops the stream. It is safe to call more than once.
func (r *Rows) Close() error {
	r.finish(nil)
	return nil
}

func (r *Rows) finish(err error) {
	if !r.done {
		r.done = true
		r.err = err
	}
	r.closeOnce.Do(func() {
		runtime.SetFinalizer(r, nil)
		close(r.s.stop)
		if r.onClose != nil {
			r.onClose()
		}
	})
}
