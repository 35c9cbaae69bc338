// Package scenario carries state shared between the steps of one scenario.
package scenario

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kuitang/authflow-e2e/internal/errs"
)

// Context is a key-value bag scoped to one scenario. Safe for concurrent use.
type Context struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewContext() *Context {
	return &Context{values: map[string]any{}}
}

func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = map[string]any{}
	}
	c.values[key] = value
}

// Get returns the value stored under key.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// String returns the value under key formatted as a string, or "" when
// absent.
func (c *Context) String(key string) string {
	v, ok := c.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (c *Context) Contains(key string) bool {
	_, ok := c.Get(key)
	return ok
}

func (c *Context) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
}

// Keys returns the stored keys in sorted order.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = map[string]any{}
}

// Value returns the value under key as T. A missing key or a value of
// another type is a failed precondition.
func Value[T any](c *Context, key string) (T, error) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, errs.Newf(errs.FailedPrecondition, "scenario value %q not set", key)
	}
	t, ok := v.(T)
	if !ok {
		return zero, errs.Newf(errs.FailedPrecondition, "scenario value %q is %T, not %T", key, v, zero)
	}
	return t, nil
}

// RequireStrings returns the non-empty string values of keys, failing with
// the first missing one.
func RequireStrings(c *Context, keys ...string) ([]string, error) {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		s := c.String(k)
		if s == "" {
			return nil, errs.Newf(errs.FailedPrecondition, "scenario value %q not set", k)
		}
		out = append(out, s)
	}
	return out, nil
}
