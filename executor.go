package taskchain

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/crochee/taskchain/logger"
)

// ErrPending is returned by Execute when the task is still waiting on a
// collaborator after Start returned.
var ErrPending = errors.New("task pending")

type outcome struct {
	typ EventType
}

func (o *outcome) TaskEvent(_ context.Context, event *TaskEvent) error {
	o.typ = event.Type()
	return nil
}

// Execute starts task with tc and returns its outcome when the task finishes
// before Start returns, as non-interactive runs do. A nil tc starts a fresh
// context.
func Execute(ctx context.Context, task Task, tc *TaskContext) (EventType, error) {
	if tc == nil {
		tc = NewTaskContext()
	}
	o := &outcome{}
	task.AddTaskListener(o)
	defer task.RemoveTaskListener(o)
	if err := task.Start(ctx, tc); err != nil {
		logger.From(ctx).Warn("task aborted", zap.String("task", task.Name()), zap.Error(err))
		return o.typ, err
	}
	if o.typ == 0 {
		return 0, ErrPending
	}
	return o.typ, nil
}
