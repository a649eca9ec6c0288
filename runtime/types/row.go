package types

import "errors"

// Columns is the column metadata shared by every row of one result set.
type Columns struct {
	names []string
	index map[string]int
}

// NewColumns builds column metadata. When names repeat, lookups by name
// resolve to the first occurrence.
func NewColumns(names []string) *Columns {
	index := make(map[string]int, len(names))
	for i, n := range names {
		if _, ok := index[n]; !ok {
			index[n] = i
		}
	}
	return &Columns{names: append([]string(nil), names...), index: index}
}

// Len returns the number of columns.
func (c *Columns) Len() int { return len(c.names) }

// Names returns the column names in result order.
func (c *Columns) Names() []string { return append([]string(nil), c.names...) }

// Index returns the position of the named column.
func (c *Columns) Index(name string) (int, bool) {
	i, ok := c.index[name]
	return i, ok
}

// Row is one fetched record.
type Row struct {
	cols   *Columns
	values []Value
}

// NewRow creates a row over shared column metadata.
func NewRow(cols *Columns, values []Value) *Row {
	return &Row{cols: cols, values: values}
}

// Len returns the number of columns in the row.
func (r *Row) Len() int { return len(r.values) }

// Columns returns the column names.
func (r *Row) Columns() []string { return r.cols.Names() }

// Values returns a copy of the raw values.
func (r *Row) Values() []Value { return append([]Value(nil), r.values...) }

// Value returns the raw value at idx.
func (r *Row) Value(idx int) (Value, error) {
	if idx < 0 || idx >= len(r.values) {
		return Value{}, &ColumnError{Index: idx, Len: len(r.values), Err: ErrColumnIndexOutOfBounds}
	}
	return r.values[idx], nil
}

// ValueByName returns the raw value of the named column.
func (r *Row) ValueByName(name string) (Value, error) {
	idx, err := r.indexOf(name)
	if err != nil {
		return Value{}, err
	}
	return r.values[idx], nil
}

// Get decodes the column at idx into dest.
func (r *Row) Get(idx int, dest any) error {
	v, err := r.Value(idx)
	if err != nil {
		return err
	}
	return r.annotate(idx, Decode(dest, v))
}

// GetByName decodes the named column into dest.
func (r *Row) GetByName(name string, dest any) error {
	idx, err := r.indexOf(name)
	if err != nil {
		return err
	}
	return r.annotate(idx, Decode(dest, r.values[idx]))
}

// Scan decodes the leading columns into dest in order.
func (r *Row) Scan(dest ...any) error {
	if len(dest) > len(r.values) {
		return &ColumnError{Index: len(r.values), Len: len(r.values), Err: ErrColumnIndexOutOfBounds}
	}
	for i, d := range dest {
		if err := r.Get(i, d); err != nil {
			return err
		}
	}
	return nil
}

func (r *Row) indexOf(name string) (int, error) {
	idx, ok := r.cols.Index(name)
	if !ok || idx >= len(r.values) {
		return 0, &ColumnError{Name: name, Len: len(r.values), Err: ErrColumnNotFound}
	}
	return idx, nil
}

func (r *Row) annotate(idx int, err error) error {
	if err == nil {
		return nil
	}
	var de *DecodeError
	if errors.As(err, &de) && de.Column == "" {
		de.Index = idx
		if idx < len(r.cols.names) {
			de.Column = r.cols.names[idx]
		}
	}
	return err
}

// Get decodes the column at idx as T.
func Get[T any](r *Row, idx int) (T, error) {
	var out T
	err := r.Get(idx, &out)
	return out, err
}

// GetNamed decodes the named column as T.
func GetNamed[T any](r *Row, name string) (T, error) {
	var out T
	err := r.GetByName(name, &out)
	return out, err
}

// GetOptional decodes the column at idx, returning nil for NULL.
func GetOptional[T any](r *Row, idx int) (*T, error) {
	var out Null[T]
	if err := r.Get(idx, &out); err != nil {
		return nil, err
	}
	return out.Ptr(), nil
}

// GetOptionalNamed decodes the named column, returning nil for NULL.
func GetOptionalNamed[T any](r *Row, name string) (*T, error) {
	var out Null[T]
	if err := r.GetByName(name, &out); err != nil {
		return nil, err
	}
	return out.Ptr(), nil
}
