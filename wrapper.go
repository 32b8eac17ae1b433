package taskchain

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/crochee/taskchain/logger"
)

type chain struct {
	wrappers []TaskWrapper
}

// NewChain returns a wrapper applying wrappers so that the first one is outermost.
func NewChain(c ...TaskWrapper) TaskWrapper {
	return chain{c}
}

func (c chain) Then(t Task) Task {
	for i := range c.wrappers {
		t = c.wrappers[len(c.wrappers)-i-1].Then(t)
	}
	return t
}

type FuncTaskWrapper func(Task) Task

func (f FuncTaskWrapper) Then(t Task) Task {
	return f(t)
}

// wrappedTask delegates everything to the wrapped task except Start.
type wrappedTask struct {
	Task
	start func(ctx context.Context, tc *TaskContext) error
}

func (w *wrappedTask) Start(ctx context.Context, tc *TaskContext) error {
	return w.start(ctx, tc)
}

// Recover turns a panic raised while starting a task into an error returned
// from Start. A ProtocolError panic is raised again.
func Recover() TaskWrapper {
	return FuncTaskWrapper(func(task Task) Task {
		w := &wrappedTask{Task: task}
		w.start = func(ctx context.Context, tc *TaskContext) (err error) {
			defer func() {
				if r := recover(); r != nil {
					if pe, ok := r.(*ProtocolError); ok {
						panic(pe)
					}
					const size = 64 << 10
					buf := make([]byte, size)
					buf = buf[:runtime.Stack(buf, false)]
					e, ok := r.(error)
					if !ok {
						e = fmt.Errorf("%v", r)
					}
					logger.From(ctx).Error("[Recover]", zap.String("task", task.Name()),
						zap.Error(e), zap.ByteString("stack", buf))
					err = fmt.Errorf("task %s panicked: %w", task.Name(), e)
				}
			}()
			return task.Start(ctx, tc)
		}
		return w
	})
}

// Logged logs each start and terminal event of the task at debug level.
func Logged() TaskWrapper {
	return FuncTaskWrapper(func(task Task) Task {
		w := &wrappedTask{Task: task}
		w.start = func(ctx context.Context, tc *TaskContext) error {
			log := logger.From(ctx).With(zap.String("task", task.Name()))
			log.Debug("task starting")
			var l *eventLogger
			l = &eventLogger{log: log, done: func() { task.RemoveTaskListener(l) }}
			task.AddTaskListener(l)
			return task.Start(ctx, tc)
		}
		return w
	})
}

type eventLogger struct {
	log  *zap.Logger
	done func()
}

func (e *eventLogger) TaskEvent(_ context.Context, event *TaskEvent) error {
	e.done()
	e.log.Debug("task finished", zap.Stringer("event", event.Type()))
	return nil
}
