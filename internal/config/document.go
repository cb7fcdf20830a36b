package config

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2/unstable"
)

// position is a 1-based line and column within the configuration file.
type position struct {
	line   int
	column int
}

func (p position) String() string {
	return fmt.Sprintf("line %d column %d", p.line, p.column)
}

// documentValue is what the index knows about a single key.
type documentValue struct {
	kind  unstable.Kind
	elems []unstable.Kind // element kinds when kind is an array
	pos   position
	found bool // pos is known
}

// documentIndex maps dotted keys of a TOML document to the kind and
// position of their values, in document order.
type documentIndex struct {
	doc    []byte
	values map[string]documentValue
	order  []string
}

// indexDocument walks doc with the go-toml parser. It fails on syntax
// errors, which the decoder reports in more detail.
func indexDocument(doc []byte) (*documentIndex, error) {
	ix := &documentIndex{
		doc:    doc,
		values: make(map[string]documentValue),
	}

	var p unstable.Parser
	p.Reset(doc)

	var table []string
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			path, pos, found := ix.keyPath(nil, expr.Key())
			ix.add(path, documentValue{kind: expr.Kind, pos: pos, found: found})
			table = path
		case unstable.KeyValue:
			ix.addKeyValue(table, expr)
		}
	}
	if err := p.Error(); err != nil {
		return nil, err
	}
	return ix, nil
}

func (ix *documentIndex) addKeyValue(prefix []string, kv *unstable.Node) {
	path, keyPos, keyFound := ix.keyPath(prefix, kv.Key())
	value := kv.Value()

	v := documentValue{kind: value.Kind}
	v.pos, v.found = ix.positionOf(value)
	if !v.found {
		v.pos, v.found = keyPos, keyFound
	}

	switch value.Kind {
	case unstable.Array:
		it := value.Children()
		for it.Next() {
			v.elems = append(v.elems, it.Node().Kind)
		}
	case unstable.InlineTable:
		it := value.Children()
		for it.Next() {
			ix.addKeyValue(path, it.Node())
		}
	}

	ix.add(path, v)
}

func (ix *documentIndex) add(path []string, v documentValue) {
	key := strings.Join(path, ".")
	if _, ok := ix.values[key]; !ok {
		ix.order = append(ix.order, key)
	}
	ix.values[key] = v
}

// keyPath appends the parts of a (possibly dotted) key to prefix and
// returns the position of its first part.
func (ix *documentIndex) keyPath(prefix []string, it unstable.Iterator) ([]string, position, bool) {
	path := slices.Clone(prefix)
	var pos position
	found := false
	for it.Next() {
		n := it.Node()
		if !found {
			pos, found = ix.positionOf(n)
		}
		path = append(path, string(n.Data))
	}
	return path, pos, found
}

// positionOf locates a parser node in the document. Strings carry their raw
// range; scalars such as integers and booleans point straight into doc.
func (ix *documentIndex) positionOf(n *unstable.Node) (position, bool) {
	if n.Raw.Length > 0 {
		return ix.positionAt(int(n.Raw.Offset)), true
	}
	if len(n.Data) == 0 {
		return position{}, false
	}
	off := cap(ix.doc) - cap(n.Data)
	if off < 0 || off+len(n.Data) > len(ix.doc) || !bytes.Equal(ix.doc[off:off+len(n.Data)], n.Data) {
		return position{}, false
	}
	return ix.positionAt(off), true
}

func (ix *documentIndex) positionAt(off int) position {
	before := ix.doc[:off]
	return position{
		line:   bytes.Count(before, []byte("\n")) + 1,
		column: off - bytes.LastIndexByte(before, '\n'),
	}
}

// lookup returns the value indexed under key. It is safe on a nil index.
func (ix *documentIndex) lookup(key string) (documentValue, bool) {
	if ix == nil {
		return documentValue{}, false
	}
	v, ok := ix.values[key]
	return v, ok
}

// keyAt returns the key whose value starts at line and column.
func (ix *documentIndex) keyAt(line, column int) (string, bool) {
	if ix == nil {
		return "", false
	}
	for _, key := range ix.order {
		v := ix.values[key]
		if v.found && v.pos.line == line && v.pos.column == column {
			return key, true
		}
	}
	return "", false
}

// expectation describes the value a known key must hold.
type expectation struct {
	desc  string
	kinds []unstable.Kind
	elem  unstable.Kind // required element kind for arrays
}

var (
	expectString  = expectation{desc: "a string", kinds: []unstable.Kind{unstable.String}}
	expectInteger = expectation{desc: "an integer", kinds: []unstable.Kind{unstable.Integer}}
	expectBool    = expectation{desc: "a boolean", kinds: []unstable.Kind{unstable.Bool}}
	expectNumber  = expectation{desc: "a number of seconds", kinds: []unstable.Kind{unstable.Integer, unstable.Float}}
	expectTable   = expectation{desc: "a table", kinds: []unstable.Kind{unstable.Table, unstable.InlineTable}}
	expectStrings = expectation{desc: "an array of strings", kinds: []unstable.Kind{unstable.Array}, elem: unstable.String}
)

// documentSchema lists every key the loader decodes.
var documentSchema = map[string]expectation{
	"host":                   expectString,
	"port":                   expectInteger,
	"verbose":                expectBool,
	"root_dir":               expectString,
	"tls":                    expectTable,
	"tls.cert":               expectString,
	"tls.key":                expectString,
	"tls.key_algorithm":      expectString,
	"cors":                   expectTable,
	"cors.allow_credentials": expectBool,
	"cors.allow_headers":     expectStrings,
	"cors.allow_methods":     expectStrings,
	"cors.allow_origin":      expectString,
	"cors.expose_headers":    expectStrings,
	"cors.max_age":           expectNumber,
	"cors.request_headers":   expectStrings,
	"cors.request_method":    expectString,
}

// checkTypes reports the first known key, in document order, whose value
// has the wrong type. Unknown keys are ignored.
func (ix *documentIndex) checkTypes() error {
	for _, key := range ix.order {
		want, ok := documentSchema[key]
		if !ok {
			continue
		}
		v := ix.values[key]
		if !slices.Contains(want.kinds, v.kind) {
			return ix.invalidType(key, kindName(v.kind), want.desc)
		}
		if v.kind != unstable.Array {
			continue
		}
		for _, elem := range v.elems {
			if elem != want.elem {
				return ix.invalidType(key, "array containing "+kindName(elem), want.desc)
			}
		}
	}
	return nil
}

func (ix *documentIndex) invalidType(key, found, expected string) error {
	return fmt.Errorf("invalid type: %s, expected %s%s", found, expected, ix.locate(key))
}

func (ix *documentIndex) invalidValue(key, found, expected string) error {
	return fmt.Errorf("invalid value: %s, expected %s%s", found, expected, ix.locate(key))
}

// locate renders the " for key `k` at line R column C" suffix.
func (ix *documentIndex) locate(key string) string {
	suffix := fmt.Sprintf(" for key `%s`", key)
	if v, ok := ix.lookup(key); ok && v.found {
		suffix += " at " + v.pos.String()
	}
	return suffix
}

func kindName(k unstable.Kind) string {
	switch k {
	case unstable.String:
		return "string"
	case unstable.Integer:
		return "integer"
	case unstable.Float:
		return "float"
	case unstable.Bool:
		return "boolean"
	case unstable.Array:
		return "array"
	case unstable.Table, unstable.InlineTable:
		return "table"
	case unstable.ArrayTable:
		return "array of tables"
	case unstable.LocalDate, unstable.LocalTime, unstable.LocalDateTime, unstable.DateTime:
		return "datetime"
	default:
		return "value"
	}
}
