package taskchain

import (
	"context"
	"sync"
)

// BaseTask implements the listener bookkeeping and the one-shot terminal
// notification guard shared by every task. Embed it and pass the embedding
// task as self so events carry the right source.
type BaseTask struct {
	Info
	self          Task
	required      bool
	reporter      ErrorReporter
	errorListener ErrorReporter

	mutex     sync.Mutex
	finished  bool
	listeners TaskListeners
}

func NewBaseTask(self Task, opts ...TaskOption) *BaseTask {
	return newTaskOptions("task", opts).base(self)
}

func (o *taskOptions) base(self Task) *BaseTask {
	return &BaseTask{
		Info:          DefaultTaskInfo(o.name),
		self:          self,
		required:      o.required,
		reporter:      o.reporter,
		errorListener: o.errorListener,
	}
}

func (b *BaseTask) AddTaskListener(l TaskListener) {
	b.mutex.Lock()
	b.listeners.Add(l)
	b.mutex.Unlock()
}

func (b *BaseTask) RemoveTaskListener(l TaskListener) {
	b.mutex.Lock()
	b.listeners.Remove(l)
	b.mutex.Unlock()
}

func (b *BaseTask) IsRequired() bool {
	return b.required
}

func (b *BaseTask) SetRequired(required bool) {
	b.required = required
}

func (b *BaseTask) IsFinished() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.finished
}

// NotifyStarting tells the StartListener listeners that task is being started
// on behalf of this task.
func (b *BaseTask) NotifyStarting(ctx context.Context, task Task) {
	b.mutex.Lock()
	all := TaskListeners{listeners: b.listeners.snapshot()}
	b.mutex.Unlock()
	all.Starting(ctx, task)
}

// Begin re-arms the terminal notification guard for a new run.
func (b *BaseTask) Begin() {
	b.mutex.Lock()
	b.finished = false
	b.mutex.Unlock()
	b.ResetError()
	b.SetState(StateRunning)
}

func (b *BaseTask) NotifyCompleted(ctx context.Context) error {
	return b.notify(ctx, Completed)
}

func (b *BaseTask) NotifySkipped(ctx context.Context) error {
	return b.notify(ctx, Skipped)
}

func (b *BaseTask) NotifyCancelled(ctx context.Context) error {
	return b.notify(ctx, Cancelled)
}

// NotifyCancelledOnError reports err and then raises Cancelled.
func (b *BaseTask) NotifyCancelledOnError(ctx context.Context, err error) error {
	b.AddError(err)
	b.Report(ctx, err)
	return b.notify(ctx, Cancelled)
}

// Notify raises the event of the given type.
func (b *BaseTask) Notify(ctx context.Context, typ EventType) error {
	return b.notify(ctx, typ)
}

// Report hands err to the error listener if one is registered, otherwise to
// the reporter, otherwise to the log.
func (b *BaseTask) Report(ctx context.Context, err error) {
	switch {
	case b.errorListener != nil:
		b.errorListener.Report(ctx, b.self, err)
	case b.reporter != nil:
		b.reporter.Report(ctx, b.self, err)
	default:
		LogReporter{}.Report(ctx, b.self, err)
	}
}

// notify panics with a ProtocolError when the run already raised its event.
func (b *BaseTask) notify(ctx context.Context, typ EventType) error {
	b.mutex.Lock()
	if b.finished {
		b.mutex.Unlock()
		panic(&ProtocolError{Task: b.Name(), Op: "notify " + typ.String(), Err: ErrAlreadyFinished})
	}
	b.finished = true
	listeners := b.listeners.snapshot()
	b.mutex.Unlock()

	b.SetState(typ.state())
	event := NewTaskEvent(typ, b.self)
	all := TaskListeners{listeners: listeners}
	return all.TaskEvent(ctx, event)
}

// FuncTask runs fn synchronously; it completes when fn returns nil and is
// cancelled with the error reported otherwise.
type FuncTask struct {
	*BaseTask
	fn func(ctx context.Context, tc *TaskContext) error
}

func NewFuncTask(fn func(ctx context.Context, tc *TaskContext) error, opts ...TaskOption) *FuncTask {
	t := &FuncTask{fn: fn}
	t.BaseTask = newTaskOptions("func", opts).base(t)
	return t
}

func (f *FuncTask) Start(ctx context.Context, tc *TaskContext) error {
	f.Begin()
	if err := f.fn(ctx, tc); err != nil {
		return f.NotifyCancelledOnError(ctx, err)
	}
	return f.NotifyCompleted(ctx)
}
