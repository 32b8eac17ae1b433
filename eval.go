package taskchain

import (
	"context"
	"fmt"
	"reflect"

	"github.com/crochee/taskchain/object"
)

// NodeEvalTask reads a node of the object bound under archetype. It never
// suspends; a missing object or node evaluates to nil.
type NodeEvalTask struct {
	*BaseTask
	archetype string
	node      string
	resultKey string
	value     interface{}
}

func NewNodeEvalTask(archetype, node string, opts ...TaskOption) *NodeEvalTask {
	o := newTaskOptions("eval", opts)
	t := &NodeEvalTask{archetype: archetype, node: node, resultKey: o.resultKey}
	t.BaseTask = o.base(t)
	return t
}

func (t *NodeEvalTask) Value() interface{} {
	return t.value
}

func (t *NodeEvalTask) Start(ctx context.Context, tc *TaskContext) error {
	t.Begin()
	t.value = nodeValue(tc, t.archetype, t.node)
	if t.resultKey != "" {
		tc.SetObject(t.resultKey, t.value)
	}
	return t.NotifyCompleted(ctx)
}

// NodeInTask reports whether a node of the object bound under archetype holds
// one of a fixed set of values. A missing object or node evaluates to false.
type NodeInTask struct {
	*BaseTask
	archetype string
	node      string
	values    []interface{}
	resultKey string
	value     bool
}

func NewNodeInTask(archetype, node string, values []interface{}, opts ...TaskOption) *NodeInTask {
	o := newTaskOptions("node-in", opts)
	t := &NodeInTask{archetype: archetype, node: node, values: values, resultKey: o.resultKey}
	t.BaseTask = o.base(t)
	return t
}

func (t *NodeInTask) Value() bool {
	return t.value
}

func (t *NodeInTask) Start(ctx context.Context, tc *TaskContext) error {
	t.Begin()
	t.value = false
	if v := nodeValue(tc, t.archetype, t.node); v != nil {
		for _, want := range t.values {
			if sameValue(v, want) {
				t.value = true
				break
			}
		}
	}
	if t.resultKey != "" {
		tc.SetObject(t.resultKey, t.value)
	}
	return t.NotifyCompleted(ctx)
}

// sameValue compares numbers by value whatever their Go type, and anything
// else deeply.
func sameValue(a, b interface{}) bool {
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && x == y
	}
	return reflect.DeepEqual(a, b)
}

func number(v interface{}) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func nodeValue(tc *TaskContext, archetype, node string) interface{} {
	obj, ok := ObjectAs[*object.Object](tc, archetype)
	if !ok {
		return nil
	}
	v, _ := obj.Get(node)
	return v
}

// ConditionalTask runs a condition and then one of two branches. The
// branch's outcome becomes this task's outcome; a missing branch completes.
type ConditionalTask struct {
	*BaseTask
	condition Evaluator[bool]
	then      Task
	orElse    Task
	listener  *forwarder
}

func NewConditionalTask(condition Evaluator[bool], then, orElse Task, opts ...TaskOption) *ConditionalTask {
	t := &ConditionalTask{condition: condition, then: then, orElse: orElse}
	t.BaseTask = newTaskOptions("conditional", opts).base(t)
	t.listener = &forwarder{to: t.BaseTask}
	return t
}

func (t *ConditionalTask) Start(ctx context.Context, tc *TaskContext) error {
	t.Begin()
	if err := t.condition.Start(ctx, tc); err != nil {
		return fmt.Errorf("task %s: condition: %w", t.Name(), err)
	}
	if !t.condition.IsFinished() {
		return fmt.Errorf("task %s: condition %s did not finish synchronously", t.Name(), t.condition.Name())
	}
	branch := t.orElse
	if t.condition.Value() {
		branch = t.then
	}
	if branch == nil {
		return t.NotifyCompleted(ctx)
	}
	branch.AddTaskListener(t.listener)
	if err := branch.Start(ctx, tc); err != nil {
		if branch.IsFinished() {
			return err
		}
		branch.RemoveTaskListener(t.listener)
		return fmt.Errorf("task %s: %w", t.Name(), err)
	}
	return nil
}
