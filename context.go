package taskchain

import (
	"reflect"
	"sort"
)

// TaskContext carries domain objects between the tasks of a run. Reads fall
// back to the parent context; writes always stay local. It is not safe for
// concurrent use: the tasks of a run never overlap.
type TaskContext struct {
	parent   *TaskContext
	objects  map[string]interface{}
	current  interface{}
	helpPath string
}

type ContextOption func(*TaskContext)

// WithParent inherits reads from parent.
func WithParent(parent *TaskContext) ContextOption {
	return func(c *TaskContext) {
		c.parent = parent
	}
}

// WithObjects seeds local bindings.
func WithObjects(objects map[string]interface{}) ContextOption {
	return func(c *TaskContext) {
		for k, v := range objects {
			c.objects[k] = v
		}
	}
}

func WithHelpPath(path string) ContextOption {
	return func(c *TaskContext) {
		c.helpPath = path
	}
}

func NewTaskContext(opts ...ContextOption) *TaskContext {
	c := &TaskContext{objects: make(map[string]interface{})}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *TaskContext) Parent() *TaskContext {
	return c.parent
}

// Lookup resolves key locally, then through the parents. A local nil binding
// hides the parent's binding.
func (c *TaskContext) Lookup(key string) (interface{}, bool) {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		if v, ok := ctx.objects[key]; ok {
			return v, v != nil
		}
	}
	return nil, false
}

func (c *TaskContext) Object(key string) interface{} {
	v, _ := c.Lookup(key)
	return v
}

func (c *TaskContext) SetObject(key string, obj interface{}) {
	c.objects[key] = obj
}

// AddObject binds obj under its own type key.
func (c *TaskContext) AddObject(obj interface{}) {
	if obj == nil {
		return
	}
	c.objects[KeyOf(obj)] = obj
}

// RemoveObject drops the local binding of key, exposing the parent's again.
func (c *TaskContext) RemoveObject(key string) {
	delete(c.objects, key)
}

// Keys returns the keys bound anywhere in the chain, sorted.
func (c *TaskContext) Keys() []string {
	seen := make(map[string]bool)
	for ctx := c; ctx != nil; ctx = ctx.parent {
		for k := range ctx.objects {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		if _, ok := c.Lookup(k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (c *TaskContext) SetCurrent(obj interface{}) {
	c.current = obj
}

// Current returns the object being edited or displayed, inherited when unset.
func (c *TaskContext) Current() interface{} {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		if ctx.current != nil {
			return ctx.current
		}
	}
	return nil
}

func (c *TaskContext) SetHelpPath(path string) {
	c.helpPath = path
}

func (c *TaskContext) HelpPath() string {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		if ctx.helpPath != "" {
			return ctx.helpPath
		}
	}
	return ""
}

// KeyOf returns the archetype of obj when it has one, else its Go type name.
func KeyOf(obj interface{}) string {
	if a, ok := obj.(interface{ Archetype() string }); ok {
		return a.Archetype()
	}
	return reflect.TypeOf(obj).String()
}

// ObjectAs resolves key and asserts the value to T.
func ObjectAs[T any](c *TaskContext, key string) (T, bool) {
	var zero T
	v, ok := c.Lookup(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
