// Package envfile converts between dotenv style text and an ordered
// key/value mapping.
//
// The accepted format is one assignment per line, written as
// [export ]KEY=VALUE. Blank lines and lines starting with '#' are ignored,
// lines without '=' are ignored, and a value wrapped in a matching pair of
// single or double quotes is unwrapped. Serialization emits KEY=VALUE lines
// in insertion order without adding quotes or comments.
package envfile

import (
	"strings"
)

const exportPrefix = "export "

// Pair is a single key/value assignment
type Pair struct {
	Key   string
	Value string
}

// Map is an insertion ordered key/value mapping. The zero value is ready to use.
type Map struct {
	pairs []Pair
	index map[string]int
}

// NewMap builds a Map from pairs, later duplicates replacing earlier values
func NewMap(pairs ...Pair) *Map {
	m := &Map{}
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m
}

// Set inserts or replaces key. A replaced key keeps its original position.
func (m *Map) Set(key, value string) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		m.pairs[i].Value = value
		return
	}
	m.index[key] = len(m.pairs)
	m.pairs = append(m.pairs, Pair{Key: key, Value: value})
}

// Get returns the value for key
func (m *Map) Get(key string) (string, bool) {
	if m == nil || m.index == nil {
		return "", false
	}
	i, ok := m.index[key]
	if !ok {
		return "", false
	}
	return m.pairs[i].Value, true
}

// Len returns the number of keys
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.pairs)
}

// Pairs returns a copy of the assignments in insertion order
func (m *Map) Pairs() []Pair {
	if m == nil {
		return nil
	}
	return append([]Pair(nil), m.pairs...)
}

// Keys returns the keys in insertion order
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m.pairs))
	for _, p := range m.pairs {
		keys = append(keys, p.Key)
	}
	return keys
}

// Equal reports whether both maps hold the same pairs in the same order
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	for i, p := range m.Pairs() {
		if other.pairs[i] != p {
			return false
		}
	}
	return true
}

// Parse reads dotenv text into a Map
func Parse(text string) *Map {
	m := &Map{}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}

		key := strings.TrimSpace(line[:eq])
		if strings.HasPrefix(key, exportPrefix) {
			key = strings.TrimSpace(strings.TrimPrefix(key, exportPrefix))
		}
		if key == "" {
			continue
		}

		m.Set(key, unquote(strings.TrimSpace(line[eq+1:])))
	}
	return m
}

// Serialize renders m as KEY=VALUE lines, each terminated by a newline
func Serialize(m *Map) string {
	var b strings.Builder
	for _, p := range m.Pairs() {
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.Value)
		b.WriteByte('\n')
	}
	return b.String()
}

func unquote(value string) string {
	if len(value) < 2 {
		return value
	}
	first, last := value[0], value[len(value)-1]
	if first == last && (first == '"' || first == '\'') {
		return value[1 : len(value)-1]
	}
	return value
}
