package sqlgen

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/satishbabariya/litecore/query/cache"
	"github.com/satishbabariya/litecore/runtime/types"
)

// MaxParameterIndex is the largest explicit placeholder index SQLite accepts
// with its default SQLITE_MAX_VARIABLE_NUMBER.
const MaxParameterIndex = 32766

// sqlLexer splits SQL into the tokens that matter for parameter binding.
// Literals, quoted identifiers and comments are separate tokens so that a
// "?" inside them is never treated as a placeholder.
var sqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "LineComment", Pattern: `--[^\n]*`},
	{Name: "BlockComment", Pattern: `/\*(?s:.*?)\*/`},
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "QuotedIdent", Pattern: `"(?:[^"]|"")*"|` + "`(?:[^`]|``)*`" + `|\[[^\]]*\]`},
	{Name: "Param", Pattern: `\?[0-9]*|[:@$][A-Za-z0-9_]+`},
	{Name: "Text", Pattern: "[^-/'\"`\\[?:@$]+"},
	{Name: "Char", Pattern: `(?s:.)`},
})

var paramToken = sqlLexer.Symbols()["Param"]

// templates memoizes parsed SQL text.
var templates = cache.New[string, *template](512, nil)

type placeholderKind uint8

const (
	anonymous placeholderKind = iota
	indexed
	named
)

type placeholder struct {
	kind   placeholderKind
	index  int    // 1-based, indexed only
	name   string // without prefix, named only
	raw    string
	offset int
}

// template is SQL text split around its placeholders:
// chunks[0] params[0] chunks[1] ... params[n-1] chunks[n].
type template struct {
	sql    string
	chunks []string
	params []placeholder
}

func parseTemplate(sql string) (*template, error) {
	if t, ok := templates.Get(sql); ok {
		return t, nil
	}
	t, err := scanTemplate(sql)
	if err != nil {
		return nil, err
	}
	templates.Set(sql, t)
	return t, nil
}

func scanTemplate(sql string) (*template, error) {
	lex, err := sqlLexer.LexString("", sql)
	if err != nil {
		return nil, &ProtocolError{Op: "parse", Err: err}
	}

	t := &template{sql: sql}
	last := 0
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, &ProtocolError{Op: "parse", Err: err}
		}
		if tok.EOF() {
			break
		}
		if tok.Type != paramToken {
			continue
		}
		p, err := parsePlaceholder(tok.Value, tok.Pos.Offset)
		if err != nil {
			return nil, err
		}
		t.chunks = append(t.chunks, sql[last:tok.Pos.Offset])
		t.params = append(t.params, p)
		last = tok.Pos.Offset + len(tok.Value)
	}
	t.chunks = append(t.chunks, sql[last:])
	return t, nil
}

func parsePlaceholder(raw string, offset int) (placeholder, error) {
	p := placeholder{raw: raw, offset: offset}
	body := raw[1:]

	switch {
	case raw == "?":
		p.kind = anonymous
	case raw[0] == '?' || (raw[0] == '$' && isDigits(body)):
		n, ok := parseIndex(body)
		if !ok {
			return p, &ProtocolError{Op: "parse", Placeholder: raw, Offset: offset, Err: ErrInvalidPlaceholder}
		}
		p.kind = indexed
		p.index = n
	case raw[0] == '$' && isDigit(body[0]):
		return p, &ProtocolError{Op: "parse", Placeholder: raw, Offset: offset, Err: ErrInvalidPlaceholder}
	default:
		p.kind = named
		p.name = body
	}
	return p, nil
}

// parseIndex accepts a 1-based index with no leading zeros.
func parseIndex(s string) (int, bool) {
	if s == "" || s[0] == '0' || !isDigits(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > MaxParameterIndex {
		return 0, false
	}
	return n, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// resolve maps every placeholder to a 0-based index into args.
//
// Anonymous placeholders and names that are not registered in args take the
// next positional slot, skipping values bound by name. An explicit ?N moves
// the positional cursor past N, the way SQLite numbers parameters.
func (t *template) resolve(args *Arguments) ([]int, error) {
	n := args.Len()
	refs := make([]int, len(t.params))
	cursor := 0
	slots := make(map[string]int)

	next := func() int {
		for cursor < n && args.isNamed(cursor) {
			cursor++
		}
		i := cursor
		cursor++
		return i
	}

	for i, p := range t.params {
		var idx int
		switch p.kind {
		case anonymous:
			idx = next()
		case indexed:
			idx = p.index - 1
			if p.index > cursor {
				cursor = p.index
			}
		case named:
			if j, ok := args.index(p.name); ok {
				idx = j
			} else if j, ok := slots[p.name]; ok {
				idx = j
			} else {
				idx = next()
				slots[p.name] = idx
			}
		}
		if idx >= n {
			return nil, &ProtocolError{Op: "bind", Placeholder: p.raw, Offset: p.offset, Err: ErrUnboundPlaceholder}
		}
		refs[i] = idx
	}
	return refs, nil
}

// sequential reports whether the text is positional-only and consumes every
// positional value in order. Such text can be concatenated with another
// sequential text without renumbering.
func (t *template) sequential(args *Arguments) bool {
	anon := 0
	for _, p := range t.params {
		switch p.kind {
		case indexed:
			return false
		case named:
			if _, ok := args.index(p.name); !ok {
				return false
			}
		default:
			anon++
		}
	}
	return anon == args.positional()
}

// compile rewrites every placeholder as ?k and returns the values the
// rewritten text refers to.
func (t *template) compile(args *Arguments) (string, []types.Value, error) {
	refs, err := t.resolve(args)
	if err != nil {
		return "", nil, err
	}
	if len(t.params) == 0 {
		return t.sql, nil, nil
	}

	values := args.Values()
	if len(t.params) == len(values) && !args.hasNames() && t.allAnonymous() {
		return t.sql, values, nil
	}

	var sb strings.Builder
	sb.Grow(len(t.sql) + 2*len(t.params))
	highest := 0
	for i := range t.params {
		sb.WriteString(t.chunks[i])
		sb.WriteByte('?')
		sb.WriteString(strconv.Itoa(refs[i] + 1))
		if refs[i]+1 > highest {
			highest = refs[i] + 1
		}
	}
	sb.WriteString(t.chunks[len(t.params)])
	return sb.String(), values[:highest], nil
}

// canonical renders the text with positional references as explicit ?k,
// shifted by offset, and registered names kept as names after renaming.
func (t *template) canonical(args *Arguments, offset int, renames map[string]string) (string, error) {
	refs, err := t.resolve(args)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for i, p := range t.params {
		sb.WriteString(t.chunks[i])
		if _, ok := args.index(p.name); p.kind == named && ok {
			sb.WriteString(p.raw[:1])
			sb.WriteString(renamed(renames, p.name))
			continue
		}
		sb.WriteByte('?')
		sb.WriteString(strconv.Itoa(refs[i] + offset + 1))
	}
	sb.WriteString(t.chunks[len(t.params)])
	return sb.String(), nil
}

// rename rewrites registered names only and leaves every other token as written.
func (t *template) rename(args *Arguments, renames map[string]string) string {
	if len(renames) == 0 {
		return t.sql
	}
	var sb strings.Builder
	for i, p := range t.params {
		sb.WriteString(t.chunks[i])
		if _, ok := args.index(p.name); p.kind == named && ok {
			sb.WriteString(p.raw[:1])
			sb.WriteString(renamed(renames, p.name))
			continue
		}
		sb.WriteString(p.raw)
	}
	sb.WriteString(t.chunks[len(t.params)])
	return sb.String()
}

func (t *template) allAnonymous() bool {
	for _, p := range t.params {
		if p.kind != anonymous {
			return false
		}
	}
	return true
}

func renamed(renames map[string]string, name string) string {
	if r, ok := renames[name]; ok {
		return r
	}
	return name
}
