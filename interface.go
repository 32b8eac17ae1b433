package taskchain

import (
	"context"
)

type (
	// Task is the unit of orchestration. Start begins the work and returns
	// before or after the outcome is known; the outcome is always delivered as
	// exactly one terminal TaskEvent to the registered listeners. A non-nil
	// error from Start is an unrecoverable fault, not a domain outcome.
	Task interface {
		Name() string
		Start(ctx context.Context, tc *TaskContext) error
		AddTaskListener(l TaskListener)
		RemoveTaskListener(l TaskListener)
		IsRequired() bool
		IsFinished() bool
	}

	// TaskListener is notified synchronously of terminal events.
	TaskListener interface {
		TaskEvent(ctx context.Context, event *TaskEvent) error
	}

	// StartListener is implemented by listeners that also want to observe
	// sub-task launches of a composite task.
	StartListener interface {
		Starting(ctx context.Context, task Task)
	}

	// Evaluator is a synchronous task producing a value once completed.
	Evaluator[T any] interface {
		Task
		Value() T
	}

	// Retryable is an action run by Retry. attempt counts from 1.
	Retryable interface {
		Run(ctx context.Context, attempt int) error
	}

	// ErrorReporter surfaces domain failures, typically to the user.
	ErrorReporter interface {
		Report(ctx context.Context, task Task, err error)
	}

	// TaskWrapper decorates a task with cross-cutting behavior.
	TaskWrapper interface {
		Then(t Task) Task
	}
)
