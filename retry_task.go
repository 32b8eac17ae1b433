package taskchain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/crochee/taskchain/logger"
)

// RetryableFunc adapts a function to a Retryable.
type RetryableFunc func(ctx context.Context, attempt int) error

func (f RetryableFunc) Run(ctx context.Context, attempt int) error {
	return f(ctx, attempt)
}

// Retry runs an action until it succeeds or the attempt bound is reached.
// An action that always fails is tried exactly attempts times and the else
// continuation then runs once. An error wrapped with backoff.Permanent stops
// the retries early.
type Retry struct {
	action      Retryable
	task        Task
	maxAttempts int
	delay       time.Duration
	exponential bool
	then        func(ctx context.Context) error
	orElse      func(ctx context.Context, err error) error
	reporter    ErrorReporter

	attempts int
	err      error
	backOff  backoff.BackOff
}

func NewRetry(action Retryable, opts ...RetryOption) *Retry {
	o := &retryOption{
		attempts: defaultAttempts,
		delay:    defaultDelay,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.attempts < 1 {
		o.attempts = 1
	}
	return &Retry{
		action:      action,
		maxAttempts: o.attempts,
		delay:       o.delay,
		exponential: o.exponential,
		then:        o.then,
		orElse:      o.orElse,
		reporter:    o.reporter,
	}
}

// Attempts returns the number of tries made by the current run.
func (r *Retry) Attempts() int {
	return r.attempts
}

// Err returns the errors of every failed try of the current run.
func (r *Retry) Err() error {
	return r.err
}

// Start runs the action from the first attempt. It returns the result of the
// then or else continuation; without an else continuation an exhausted retry
// returns the combined error of all tries.
func (r *Retry) Start(ctx context.Context) error {
	r.attempts = 0
	r.err = nil
	r.backOff = r.newBackOff()
	return r.run(ctx)
}

func (r *Retry) run(ctx context.Context) error {
	r.attempts++
	if err := r.action.Run(ctx, r.attempts); err != nil {
		return r.runFailed(ctx, err)
	}
	if r.then != nil {
		return r.then(ctx)
	}
	return nil
}

func (r *Retry) runFailed(ctx context.Context, err error) error {
	r.err = multierr.Append(r.err, fmt.Errorf("%d try,%w", r.attempts, err))
	var permanent *backoff.PermanentError
	if r.attempts >= r.maxAttempts || errors.As(err, &permanent) {
		return r.abort(ctx)
	}
	return r.retry(ctx, err)
}

func (r *Retry) retry(ctx context.Context, err error) error {
	interval := r.backOff.NextBackOff()
	logger.From(ctx).Warn("retrying failed action",
		zap.Int("attempt", r.attempts),
		zap.Int("attempts", r.maxAttempts),
		zap.Duration("delay", interval),
		zap.Error(err))
	timer := time.NewTimer(interval)
	select {
	case <-timer.C:
		return r.run(ctx)
	case <-ctx.Done():
		timer.Stop()
		r.err = multierr.Append(r.err, ctx.Err())
		return r.abort(ctx)
	}
}

func (r *Retry) abort(ctx context.Context) error {
	if r.reporter != nil {
		r.reporter.Report(ctx, r.task, r.err)
	} else {
		LogReporter{}.Report(ctx, r.task, r.err)
	}
	if r.orElse != nil {
		return r.orElse(ctx, r.err)
	}
	return r.err
}

func (r *Retry) newBackOff() backoff.BackOff {
	if r.delay <= 0 {
		return &backoff.ZeroBackOff{}
	}
	if !r.exponential || r.maxAttempts < 3 {
		return backoff.NewConstantBackOff(r.delay)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.delay
	b.MaxElapsedTime = 0

	// calculate the multiplier for the given number of attempts
	// so that applying the multiplier for the given number of attempts will not exceed 2 times the initial interval
	// it allows to control the progression along the attempts
	b.Multiplier = math.Pow(2, 1/float64(r.maxAttempts-2))

	// according to docs, b.Reset() must be called before using
	b.Reset()
	return b
}

// RetryTask is a Retry run as a task: it completes when the action succeeds
// and is cancelled once the attempts are exhausted.
type RetryTask struct {
	*BaseTask
	action Retryable
	opts   []RetryOption
	retry  *Retry
}

func NewRetryTask(action Retryable, retryOpts []RetryOption, opts ...TaskOption) *RetryTask {
	t := &RetryTask{action: action, opts: retryOpts}
	t.BaseTask = newTaskOptions("retry", opts).base(t)
	return t
}

// Attempts returns the number of tries made by the last run.
func (t *RetryTask) Attempts() int {
	if t.retry == nil {
		return 0
	}
	return t.retry.Attempts()
}

func (t *RetryTask) Start(ctx context.Context, _ *TaskContext) error {
	t.Begin()
	opts := append(append([]RetryOption(nil), t.opts...),
		WithThen(t.NotifyCompleted),
		WithRetryReporter(ReporterFunc(func(ctx context.Context, _ Task, err error) {
			t.AddError(err)
			t.Report(ctx, err)
		})),
		WithElse(func(ctx context.Context, _ error) error {
			return t.NotifyCancelled(ctx)
		}),
	)
	t.retry = NewRetry(t.action, opts...)
	t.retry.task = t
	return t.retry.Start(ctx)
}
