package taskchain

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// TaskFactory builds a fresh task for each run.
type TaskFactory func() Task

// Tasks is a named, reusable sequence of tasks. Every Start builds a new
// Workflow from the factories, so one Tasks value can run any number of times
// and be nested like any other task.
type Tasks struct {
	*BaseTask
	factories []TaskFactory
	opts      []WorkflowOption
	workflow  *Workflow
	listener  *forwarder
}

func NewTasks(name string, opts ...WorkflowOption) *Tasks {
	t := &Tasks{opts: opts}
	t.BaseTask = newTaskOptions(name, nil).base(t)
	t.listener = &forwarder{to: t.BaseTask}
	return t
}

// Add appends task factories.
func (t *Tasks) Add(factories ...TaskFactory) *Tasks {
	t.factories = append(t.factories, factories...)
	return t
}

// Workflow returns the workflow of the current run.
func (t *Tasks) Workflow() *Workflow {
	return t.workflow
}

func (t *Tasks) Start(ctx context.Context, tc *TaskContext) error {
	t.Begin()
	opts := append([]WorkflowOption{WithWorkflowName(t.Name()), WithWorkflowRequired(t.IsRequired())}, t.opts...)
	w := NewWorkflow(opts...)
	for _, f := range t.factories {
		w.AddTask(f())
	}
	t.workflow = w
	w.AddTaskListener(t.listener)
	return w.Start(ctx, tc)
}

// forwarder raises the event it receives on another task.
type forwarder struct {
	to *BaseTask
}

func (*forwarder) continues() {}

func (f *forwarder) TaskEvent(ctx context.Context, event *TaskEvent) error {
	event.Source().RemoveTaskListener(f)
	return f.to.Notify(ctx, event.Type())
}

// Registry addresses Tasks by name.
type Registry struct {
	mutex sync.RWMutex
	tasks map[string]*Tasks
}

func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Tasks)}
}

// Register adds tasks under its name, replacing any previous registration.
func (r *Registry) Register(tasks *Tasks) {
	r.mutex.Lock()
	r.tasks[tasks.Name()] = tasks
	r.mutex.Unlock()
}

func (r *Registry) Lookup(name string) (*Tasks, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	t, ok := r.tasks[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownTasks)
	}
	return t, nil
}

func (r *Registry) Names() []string {
	r.mutex.RLock()
	names := make([]string, 0, len(r.tasks))
	for k := range r.tasks {
		names = append(names, k)
	}
	r.mutex.RUnlock()
	sort.Strings(names)
	return names
}

// Start looks up name and starts it with tc.
func (r *Registry) Start(ctx context.Context, name string, tc *TaskContext) (*Tasks, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return t, t.Start(ctx, tc)
}
