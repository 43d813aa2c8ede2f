package querycache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key is the canonical signature of a read operation and its parameters.
type Key string

// Tag labels query results for group invalidation.
type Tag string

// NewKey builds a canonical key from an operation name and its
// parameters. Parameters are sorted by name, so the same logical query
// always yields the same key regardless of map order:
//
//	NewKey("todos.page", map[string]any{"page": 1, "limit": 10})
//	// "todos.page?limit=10&page=1"
func NewKey(op string, params map[string]any) Key {
	if len(params) == 0 {
		return Key(op)
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(op)
	b.WriteByte('?')
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(fmt.Sprint(params[name])))
	}
	return Key(b.String())
}

// Op returns the operation name part of the key.
func (k Key) Op() string {
	op, _, _ := strings.Cut(string(k), "?")
	return op
}
