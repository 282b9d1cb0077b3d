// Package structure converts FatturaPA XML into an ordered mapping tree.
//
// Elements become keys, attributes become "@_name" keys, repeated siblings
// become sequences and text-only elements become strings. Key order follows
// document order, so the tree serialises back to JSON in the same order.
package structure

// Key conventions
const (
	AttrPrefix  = "@_"
	TextKey     = "#text"
	DeclKey     = "?xml"
	nsSeparator = ':'
)

// Map is an insertion-ordered mapping. Values are string, *Map or []any.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap creates an empty map
func NewMap() *Map {
	return &Map{
		keys:   make([]string, 0),
		values: make(map[string]any),
	}
}

// Keys returns the keys in insertion order
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Get returns the value stored under key
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// set stores a value, keeping the original position for existing keys
func (m *Map) set(key string, value any) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// add appends a child value; a repeated key turns into a sequence at the
// position of its first occurrence
func (m *Map) add(key string, value any) {
	existing, ok := m.values[key]
	if !ok {
		m.set(key, value)
		return
	}
	if seq, isSeq := existing.([]any); isSeq {
		m.values[key] = append(seq, value)
		return
	}
	m.values[key] = []any{existing, value}
}
