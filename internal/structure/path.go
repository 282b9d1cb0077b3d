package structure

import "strings"

// Root returns the name and content of the document element
func (m *Map) Root() (string, any) {
	for _, key := range m.Keys() {
		if strings.HasPrefix(key, "?") || strings.HasPrefix(key, "#") {
			continue
		}
		return key, m.values[key]
	}
	return "", nil
}

// Lookup follows path from m matching keys by local name (namespace prefixes
// are ignored). Sequences along the way resolve to their first element.
func (m *Map) Lookup(path ...string) (any, bool) {
	var cur any = m
	for _, name := range path {
		cur = first(cur)
		node, ok := cur.(*Map)
		if !ok {
			return nil, false
		}
		cur, ok = node.getLocal(name)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Node follows path like Lookup and returns the element found there, or false
// when the path ends on text
func (m *Map) Node(path ...string) (*Map, bool) {
	v, ok := m.Lookup(path...)
	if !ok {
		return nil, false
	}
	node, ok := first(v).(*Map)
	return node, ok
}

// All follows path like Lookup but fans out across every sequence element,
// returning every value found at the end of the path
func (m *Map) All(path ...string) []any {
	current := []any{m}
	for _, name := range path {
		next := make([]any, 0)
		for _, v := range current {
			for _, item := range flatten(v) {
				node, ok := item.(*Map)
				if !ok {
					continue
				}
				if child, found := node.getLocal(name); found {
					next = append(next, child)
				}
			}
		}
		current = next
	}

	out := make([]any, 0, len(current))
	for _, v := range current {
		out = append(out, flatten(v)...)
	}
	return out
}

// Text returns the text at path, using "#text" for elements with attributes
func (m *Map) Text(path ...string) string {
	v, ok := m.Lookup(path...)
	if !ok {
		return ""
	}
	return TextOf(v)
}

// TextOf returns the text content of a tree value
func TextOf(v any) string {
	switch t := first(v).(type) {
	case string:
		return t
	case *Map:
		if s, ok := t.values[TextKey].(string); ok {
			return s
		}
	}
	return ""
}

func (m *Map) getLocal(name string) (any, bool) {
	if v, ok := m.values[name]; ok {
		return v, true
	}
	for _, key := range m.keys {
		if localName(key) == name {
			return m.values[key], true
		}
	}
	return nil, false
}

func localName(key string) string {
	if idx := strings.IndexByte(key, nsSeparator); idx >= 0 && !strings.HasPrefix(key, AttrPrefix) {
		return key[idx+1:]
	}
	return key
}

func first(v any) any {
	if seq, ok := v.([]any); ok {
		if len(seq) == 0 {
			return nil
		}
		return seq[0]
	}
	return v
}

func flatten(v any) []any {
	if seq, ok := v.([]any); ok {
		return seq
	}
	return []any{v}
}
