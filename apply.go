package taskchain

import (
	"time"

	"github.com/crochee/taskchain/object"
	"github.com/crochee/taskchain/ui"
)

type taskOptions struct {
	name          string
	required      bool
	reporter      ErrorReporter
	errorListener ErrorReporter

	props     map[string]interface{}
	object    *object.Object
	reference object.Reference
	save      bool
	retry     []RetryOption

	interactive          bool
	fallback             bool
	deleteOnCancelOrSkip bool
	createTask           Task
	autoSelect           bool
	markPrinted          bool
	cancelOnClose        bool
	resultKey            string
	buttons              []ui.Action
}

// TaskOption configures a task. Each task reads only the options that apply to it.
type TaskOption interface {
	apply(*taskOptions)
}

type funcTaskOption func(*taskOptions)

func (f funcTaskOption) apply(o *taskOptions) {
	f(o)
}

func newTaskOptions(name string, opts []TaskOption) *taskOptions {
	o := &taskOptions{
		name:        name,
		required:    true,
		save:        true,
		interactive: true,
		fallback:    true,
	}
	for _, opt := range opts {
		opt.apply(o)
	}
	return o
}

func WithName(name string) TaskOption {
	return funcTaskOption(func(o *taskOptions) {
		o.name = name
	})
}

// WithRequired controls whether the owner treats a Skipped outcome as an error.
func WithRequired(required bool) TaskOption {
	return funcTaskOption(func(o *taskOptions) {
		o.required = required
	})
}

// WithReporter sets the reporter used for domain failures.
func WithReporter(r ErrorReporter) TaskOption {
	return funcTaskOption(func(o *taskOptions) {
		o.reporter = r
	})
}

// WithErrorListener registers a listener for domain failures. It takes
// precedence over the reporter.
func WithErrorListener(l ErrorReporter) TaskOption {
	return funcTaskOption(func(o *taskOptions) {
		o.errorListener = l
	})
}

// WithProperties sets the node values applied by create and update tasks.
func WithProperties(props map[string]interface{}) TaskOption {
	return funcTaskOption(func(o *taskOptions) {
		o.props = props
	})
}

// WithObject operates on obj instead of looking it up in the context.
func WithObject(obj *object.Object) TaskOption {
	return funcTaskOption(func(o *taskOptions) {
		o.object = obj
	})
}

// WithReference loads the object to operate on from the store.
func WithReference(ref object.Reference) TaskOption {
	return funcTaskOption(func(o *taskOptions) {
		o.reference = ref
	})
}

// WithSave controls whether an update is persisted.
func WithSave(save bool) TaskOption {
	return funcTaskOption(func(o *taskOptions) {
		o.save = save
	})
}

// WithRetry configures the retry used when saving.
func WithRetry(attempts int, delay time.Duration, opts ...RetryOption) TaskOption {
	return funcTaskOption(func(o *taskOptions) {
		o.retry = append([]RetryOption{WithAttempts(attempts), WithDelay(delay)}, opts...)
	})
}

// WithInteractive controls whether an edit is shown or saved in the background.
func WithInteractive(interactive bool) TaskOption {
	return funcTaskOption(func(o *taskOptions) {
		o.interactive = interactive
	})
}

// WithBackgroundFallback controls whether a background edit that fails
// validation falls back to the interactive editor.
func WithBackgroundFallback(fallback bool) TaskOption {
	return funcTaskOption(func(o *taskOptions) {
		o.fallback = fallback
	})
}

// WithDeleteOnCancelOrSkip deletes the edited object when the edit is
// cancelled or skipped.
func WithDeleteOnCancelOrSkip() TaskOption {
	return funcTaskOption(func(o *taskOptions) {
		o.deleteOnCancelOrSkip = true
	})
}

// WithCreateTask sets the task used to create the object when none exists,
// or when the user asks for a new one during selection.
func WithCreateTask(t Task) TaskOption {
	return funcTaskOption(func(o *taskOptions) {
		o.createTask = t
	})
}

// WithAutoSelect binds a unique query match without prompting.
func WithAutoSelect() TaskOption {
	return funcTaskOption(func(o *taskOptions) {
		o.autoSelect = true
	})
}

// WithMarkPrinted sets the printed node and saves the object after printing.
func WithMarkPrinted() TaskOption {
	return funcTaskOption(func(o *taskOptions) {
		o.markPrinted = true
	})
}

// WithCancelOnClose makes an information dialog closed without OK cancel the task.
func WithCancelOnClose(cancel bool) TaskOption {
	return funcTaskOption(func(o *taskOptions) {
		o.cancelOnClose = cancel
	})
}

// WithResultKey stores an evaluated value in the context under key.
func WithResultKey(key string) TaskOption {
	return funcTaskOption(func(o *taskOptions) {
		o.resultKey = key
	})
}

// WithButtons overrides the buttons of a dialog task.
func WithButtons(buttons ...ui.Action) TaskOption {
	return funcTaskOption(func(o *taskOptions) {
		o.buttons = buttons
	})
}
