package taskchain

import (
	"context"
	"time"
)

const (
	defaultAttempts = 5
	defaultDelay    = time.Second
)

type retryOption struct {
	attempts    int
	delay       time.Duration
	exponential bool
	then        func(ctx context.Context) error
	orElse      func(ctx context.Context, err error) error
	reporter    ErrorReporter
}

type RetryOption func(*retryOption)

// WithAttempts bounds the number of tries, the first one included.
func WithAttempts(attempts int) RetryOption {
	return func(o *retryOption) {
		o.attempts = attempts
	}
}

// WithDelay sets the wait between tries.
func WithDelay(delay time.Duration) RetryOption {
	return func(o *retryOption) {
		o.delay = delay
	}
}

// WithExponentialBackOff grows the wait from the configured delay so that the
// last wait is about twice the first.
func WithExponentialBackOff() RetryOption {
	return func(o *retryOption) {
		o.exponential = true
	}
}

// WithThen runs fn once the action succeeds.
func WithThen(fn func(ctx context.Context) error) RetryOption {
	return func(o *retryOption) {
		o.then = fn
	}
}

// WithElse runs fn once, after the last failed try.
func WithElse(fn func(ctx context.Context, err error) error) RetryOption {
	return func(o *retryOption) {
		o.orElse = fn
	}
}

func WithRetryReporter(r ErrorReporter) RetryOption {
	return func(o *retryOption) {
		o.reporter = r
	}
}

type workflowOption struct {
	name          string
	required      bool
	breakOnCancel bool
	breakOnSkip   bool
	initial       *TaskContext
	isolated      bool
	wrappers      []TaskWrapper
	reporter      ErrorReporter
}

type WorkflowOption func(*workflowOption)

func WithWorkflowName(name string) WorkflowOption {
	return func(o *workflowOption) {
		o.name = name
	}
}

func WithWorkflowRequired(required bool) WorkflowOption {
	return func(o *workflowOption) {
		o.required = required
	}
}

// WithBreakOnCancel stops the workflow when a task is cancelled. Default true.
func WithBreakOnCancel(b bool) WorkflowOption {
	return func(o *workflowOption) {
		o.breakOnCancel = b
	}
}

// WithBreakOnSkip stops the workflow when an optional task is skipped. Default false.
func WithBreakOnSkip(b bool) WorkflowOption {
	return func(o *workflowOption) {
		o.breakOnSkip = b
	}
}

// WithInitialContext sets the parent of the context created by Run.
func WithInitialContext(tc *TaskContext) WorkflowOption {
	return func(o *workflowOption) {
		o.initial = tc
	}
}

// WithIsolatedContext makes the workflow run its tasks in a child of the
// context it is started with, so their writes stay local to the workflow.
func WithIsolatedContext() WorkflowOption {
	return func(o *workflowOption) {
		o.isolated = true
	}
}

// WithTaskWrappers decorates every task added to the workflow.
func WithTaskWrappers(wrappers ...TaskWrapper) WorkflowOption {
	return func(o *workflowOption) {
		o.wrappers = append(o.wrappers, wrappers...)
	}
}

func WithWorkflowReporter(r ErrorReporter) WorkflowOption {
	return func(o *workflowOption) {
		o.reporter = r
	}
}
