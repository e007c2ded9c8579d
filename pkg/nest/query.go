package nest

import (
	"strconv"
	"strings"
)

// QueryMap is the value a keyless Query() binding receives. A handler
// parameter of any other type gets the flattened form decoded into it.
type QueryMap struct {
	values map[string][]string
}

// NewQueryMap wraps raw query values
func NewQueryMap(values map[string][]string) QueryMap {
	if values == nil {
		values = map[string][]string{}
	}
	return QueryMap{values: values}
}

// Get returns the first value of key
func (q QueryMap) Get(key string) string {
	if vs := q.values[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Int parses the first value of key, returning def when it is missing or
// not a number
func (q QueryMap) Int(key string, def int) int {
	n, err := strconv.Atoi(q.Get(key))
	if err != nil {
		return def
	}
	return n
}

// Bool treats true, 1, yes and on as true, ignoring case
func (q QueryMap) Bool(key string) bool {
	switch strings.ToLower(q.Get(key)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// All returns every value of key
func (q QueryMap) All(key string) []string {
	return q.values[key]
}

func (q QueryMap) Has(key string) bool {
	_, ok := q.values[key]
	return ok
}

// Values returns the underlying map
func (q QueryMap) Values() map[string][]string {
	return q.values
}

// flatten turns single-valued keys into plain strings, the shape struct
// decoding expects
func (q QueryMap) flatten() map[string]any {
	flat := make(map[string]any, len(q.values))
	for key, vs := range q.values {
		if len(vs) == 1 {
			flat[key] = vs[0]
		} else {
			flat[key] = vs
		}
	}
	return flat
}
