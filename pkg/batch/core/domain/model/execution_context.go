package model

import (
	"strings"

	logger "github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

// ExecutionContext is a key-value store for sharing state across job and step executions.
// Keys may be dot-separated paths (e.g. "fetch.rawPath") when accessed with the *Nested methods.
type ExecutionContext map[string]interface{}

// NewExecutionContext creates an empty ExecutionContext.
func NewExecutionContext() ExecutionContext {
	return make(ExecutionContext)
}

// Put stores value under key.
func (ec ExecutionContext) Put(key string, value interface{}) {
	ec[key] = value
}

// Get returns the value stored under key.
func (ec ExecutionContext) Get(key string) (interface{}, bool) {
	v, ok := ec[key]
	return v, ok
}

// GetString returns the string stored under key, resolving dotted paths.
func (ec ExecutionContext) GetString(key string) (string, bool) {
	v, ok := ec.GetNested(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt returns the integer stored under key, resolving dotted paths.
// Integral float64 values, as produced by JSON decoding, are accepted.
func (ec ExecutionContext) GetInt(key string) (int, bool) {
	v, ok := ec.GetNested(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

// Copy returns a shallow copy of the context.
func (ec ExecutionContext) Copy() ExecutionContext {
	out := make(ExecutionContext, len(ec))
	for k, v := range ec {
		out[k] = v
	}
	return out
}

// GetNested retrieves a value by dot-separated key. A literal top-level key wins over a path.
func (ec ExecutionContext) GetNested(key string) (interface{}, bool) {
	if val, ok := ec[key]; ok {
		return val, true
	}

	var current interface{} = ec
	for _, part := range strings.Split(key, ".") {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		if current, ok = m[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

// PutNested sets a value by dot-separated key, creating intermediate maps.
func (ec ExecutionContext) PutNested(key string, value interface{}) {
	parts := strings.Split(key, ".")
	current := ec
	for i, part := range parts[:len(parts)-1] {
		next, ok := asMap(current[part])
		if !ok {
			if _, exists := current[part]; exists {
				logger.Warnf("ExecutionContext.PutNested: overwriting non-map value at '%s'.", strings.Join(parts[:i+1], "."))
			}
			next = NewExecutionContext()
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// Remove removes the specified key from the ExecutionContext.
func (ec ExecutionContext) Remove(key string) {
	delete(ec, key)
}

func asMap(v interface{}) (ExecutionContext, bool) {
	switch m := v.(type) {
	case ExecutionContext:
		return m, true
	case map[string]interface{}:
		return ExecutionContext(m), true
	default:
		return nil, false
	}
}
