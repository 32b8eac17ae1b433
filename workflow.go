package taskchain

import (
	"context"
	"fmt"
)

// Workflow runs its tasks one at a time, in order, against a shared context.
// It is itself a Task, so workflows nest; an outer workflow only sees the
// inner workflow's own terminal event.
//
// Child outcomes are handled as follows:
//
//	Completed                      advance
//	Skipped, required              report ErrRequiredSkipped, cancel
//	Skipped, optional, breakOnSkip raise Skipped
//	Skipped, optional              advance
//	Cancelled, breakOnCancel       raise Cancelled
//	Cancelled                      advance
type Workflow struct {
	*BaseTask
	tasks         []Task
	cursor        int
	current       Task
	initial       *TaskContext
	context       *TaskContext
	breakOnCancel bool
	breakOnSkip   bool
	cancel        bool
	isolated      bool
	wrapper       TaskWrapper
	listener      *sequencer
}

// sequencer is the listener registered on the active child.
type sequencer struct {
	w *Workflow
}

func (*sequencer) continues() {}

func (s *sequencer) TaskEvent(ctx context.Context, event *TaskEvent) error {
	return s.w.onEvent(ctx, event)
}

func NewWorkflow(opts ...WorkflowOption) *Workflow {
	o := &workflowOption{
		name:          "workflow",
		required:      true,
		breakOnCancel: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	w := &Workflow{
		initial:       o.initial,
		breakOnCancel: o.breakOnCancel,
		breakOnSkip:   o.breakOnSkip,
		isolated:      o.isolated,
	}
	if len(o.wrappers) > 0 {
		w.wrapper = NewChain(o.wrappers...)
	}
	w.BaseTask = newTaskOptions(o.name, []TaskOption{
		WithRequired(o.required),
		WithReporter(o.reporter),
	}).base(w)
	w.listener = &sequencer{w: w}
	return w
}

// AddTask appends tasks to the end of the workflow.
func (w *Workflow) AddTask(tasks ...Task) *Workflow {
	for _, t := range tasks {
		if w.wrapper != nil {
			t = w.wrapper.Then(t)
		}
		w.tasks = append(w.tasks, t)
	}
	return w
}

func (w *Workflow) Tasks() []Task {
	return append([]Task(nil), w.tasks...)
}

func (w *Workflow) SetBreakOnCancel(b bool) {
	w.breakOnCancel = b
}

func (w *Workflow) BreakOnCancel() bool {
	return w.breakOnCancel
}

func (w *Workflow) SetBreakOnSkip(b bool) {
	w.breakOnSkip = b
}

func (w *Workflow) BreakOnSkip() bool {
	return w.breakOnSkip
}

// Context returns the context of the current run.
func (w *Workflow) Context() *TaskContext {
	return w.context
}

// Current returns the active task, nil between tasks.
func (w *Workflow) Current() Task {
	return w.current
}

// Cancel stops the workflow from starting any further task. A task already
// running is left to finish; when the workflow has not started yet, or is not
// running, nothing is started and Start raises Cancelled.
func (w *Workflow) Cancel() {
	w.cancel = true
}

func (w *Workflow) IsCancelled() bool {
	return w.cancel
}

// Run starts the workflow with a new context inheriting the initial one.
func (w *Workflow) Run(ctx context.Context) error {
	return w.Start(ctx, nil)
}

// Start runs the tasks against tc. A nil tc starts a fresh context inheriting
// the initial one.
func (w *Workflow) Start(ctx context.Context, tc *TaskContext) error {
	w.Begin()
	switch {
	case tc == nil:
		tc = NewTaskContext(WithParent(w.initial))
	case w.isolated:
		tc = NewTaskContext(WithParent(tc))
	}
	w.context = tc
	w.cursor = 0
	w.current = nil
	return w.next(ctx)
}

func (w *Workflow) next(ctx context.Context) error {
	if w.cancel {
		return w.NotifyCancelled(ctx)
	}
	if w.cursor >= len(w.tasks) {
		return w.NotifyCompleted(ctx)
	}
	task := w.tasks[w.cursor]
	w.current = task
	task.AddTaskListener(w.listener)
	w.NotifyStarting(ctx, task)
	if err := task.Start(ctx, w.context); err != nil {
		if task.IsFinished() {
			// raised further down the chain after the task had finished
			return err
		}
		task.RemoveTaskListener(w.listener)
		w.current = nil
		w.cancel = true
		err = fmt.Errorf("workflow %s: start task %d %s: %w", w.Name(), w.cursor, task.Name(), err)
		w.AddError(err)
		return err
	}
	return nil
}

func (w *Workflow) onEvent(ctx context.Context, event *TaskEvent) error {
	task := w.current
	if task == nil {
		task = event.Source()
	}
	task.RemoveTaskListener(w.listener)
	w.current = nil

	switch event.Type() {
	case Completed:
		return w.advance(ctx)
	case Skipped:
		if task.IsRequired() {
			w.cancel = true
			err := &ProtocolError{Task: task.Name(), Op: "workflow " + w.Name(), Err: ErrRequiredSkipped}
			w.AddError(err)
			w.Report(ctx, err)
			if notifyErr := w.NotifyCancelled(ctx); notifyErr != nil {
				return fmt.Errorf("%w; %v", err, notifyErr)
			}
			return err
		}
		if w.breakOnSkip {
			return w.NotifySkipped(ctx)
		}
		return w.advance(ctx)
	default:
		if w.breakOnCancel {
			return w.NotifyCancelled(ctx)
		}
		return w.advance(ctx)
	}
}

func (w *Workflow) advance(ctx context.Context) error {
	w.cursor++
	return w.next(ctx)
}
