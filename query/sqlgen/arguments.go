package sqlgen

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/litecore/runtime/types"
)

// Arguments is an ordered list of bound values. A value may also be
// registered under a name; when a name is registered more than once,
// lookups resolve to the first registration.
//
// The zero value is ready to use, and a nil *Arguments reads as empty.
type Arguments struct {
	values []types.Value
	keys   []string // "" for positional values
	names  map[string]int
}

// NewArguments binds vs as positional values.
func NewArguments(vs ...any) (*Arguments, error) {
	a := &Arguments{}
	for _, v := range vs {
		if err := a.Add(v); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Add binds a positional value.
func (a *Arguments) Add(v any) error {
	val, err := types.Encode(v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	a.push("", val)
	return nil
}

// AddNamed binds a value under name. A leading ':', '@' or '$' is ignored.
func (a *Arguments) AddNamed(name string, v any) error {
	name = trimPrefix(name)
	if !validName(name) {
		return &ProtocolError{Op: "bind", Placeholder: name, Err: ErrInvalidPlaceholder}
	}
	val, err := types.Encode(v)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrEncode, name, err)
	}
	a.push(name, val)
	return nil
}

func (a *Arguments) push(name string, v types.Value) {
	a.values = append(a.values, v)
	a.keys = append(a.keys, name)
	if name == "" {
		return
	}
	if a.names == nil {
		a.names = make(map[string]int)
	}
	if _, ok := a.names[name]; !ok {
		a.names[name] = len(a.values) - 1
	}
}

// Len returns the number of bound values.
func (a *Arguments) Len() int {
	if a == nil {
		return 0
	}
	return len(a.values)
}

// Values returns a copy of the bound values in order.
func (a *Arguments) Values() []types.Value {
	if a == nil || len(a.values) == 0 {
		return nil
	}
	return append([]types.Value(nil), a.values...)
}

// Names returns the registered names in registration order, without duplicates.
func (a *Arguments) Names() []string {
	if a == nil {
		return nil
	}
	var out []string
	for i, k := range a.keys {
		if k != "" && a.names[k] == i {
			out = append(out, k)
		}
	}
	return out
}

// Lookup returns the first value registered under name.
func (a *Arguments) Lookup(name string) (types.Value, bool) {
	i, ok := a.index(trimPrefix(name))
	if !ok {
		return types.Value{}, false
	}
	return a.values[i], true
}

// Extend appends the values of other. Binding a name that is already
// registered here is a collision.
func (a *Arguments) Extend(other *Arguments) error {
	for _, name := range other.Names() {
		if _, ok := a.index(name); ok {
			return &ProtocolError{Op: "extend", Placeholder: name, Err: ErrNamedCollision}
		}
	}
	for i := 0; i < other.Len(); i++ {
		a.push(other.keys[i], other.values[i])
	}
	return nil
}

// Clone returns an independent copy.
func (a *Arguments) Clone() *Arguments {
	out := &Arguments{}
	for i := 0; i < a.Len(); i++ {
		out.push(a.keys[i], a.values[i])
	}
	return out
}

func (a *Arguments) index(name string) (int, bool) {
	if a == nil || name == "" {
		return 0, false
	}
	i, ok := a.names[name]
	return i, ok
}

func (a *Arguments) isNamed(i int) bool {
	return a.keys[i] != ""
}

func (a *Arguments) hasNames() bool {
	return a != nil && len(a.names) > 0
}

func (a *Arguments) positional() int {
	n := 0
	for i := 0; i < a.Len(); i++ {
		if a.keys[i] == "" {
			n++
		}
	}
	return n
}

// appendRenamed copies other into a, renaming its keys.
func (a *Arguments) appendRenamed(other *Arguments, renames map[string]string) {
	for i := 0; i < other.Len(); i++ {
		key := other.keys[i]
		if key != "" {
			key = renamed(renames, key)
		}
		a.push(key, other.values[i])
	}
}

func trimPrefix(name string) string {
	return strings.TrimLeft(name, ":@$")
}

func validName(name string) bool {
	return isPlainIdent(name)
}
