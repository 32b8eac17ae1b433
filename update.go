package taskchain

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	"github.com/crochee/taskchain/object"
)

// resolve returns the object to operate on: the configured object, else the
// configured persisted reference, else the context binding of archetype.
func resolve(ctx context.Context, tc *TaskContext, store object.Store, o *object.Object,
	ref object.Reference, archetype string) (*object.Object, error) {
	if o != nil {
		return o, nil
	}
	if !ref.IsZero() {
		if store == nil {
			return nil, fmt.Errorf("load %s: %w", ref, ErrNoObject)
		}
		return store.Get(ctx, ref)
	}
	if obj, ok := ObjectAs[*object.Object](tc, archetype); ok {
		return obj, nil
	}
	return nil, fmt.Errorf("%s: %w", archetype, ErrNoObject)
}

// UpdateTask applies a fixed set of properties to an object and optionally
// saves it. A save that fails is retried on the latest persisted version with
// the properties applied again.
type UpdateTask struct {
	*BaseTask
	store     object.Store
	archetype string
	props     map[string]interface{}
	object    *object.Object
	reference object.Reference
	save      bool
	retry     []RetryOption
	attempts  int
}

func NewUpdateTask(store object.Store, archetype string, opts ...TaskOption) *UpdateTask {
	o := newTaskOptions("update", opts)
	t := &UpdateTask{
		store:     store,
		archetype: archetype,
		props:     o.props,
		object:    o.object,
		reference: o.reference,
		save:      o.save,
		retry:     o.retry,
	}
	t.BaseTask = o.base(t)
	return t
}

// Attempts returns the number of saves tried by the last run.
func (t *UpdateTask) Attempts() int {
	return t.attempts
}

func (t *UpdateTask) Start(ctx context.Context, tc *TaskContext) error {
	t.Begin()
	t.attempts = 0
	obj, err := resolve(ctx, tc, t.store, t.object, t.reference, t.archetype)
	if err != nil {
		return t.NotifyCancelledOnError(ctx, fmt.Errorf("update: %w", err))
	}
	key := KeyOf(obj)
	if !t.save {
		obj.Apply(t.props)
		tc.SetObject(key, obj)
		return t.NotifyCompleted(ctx)
	}

	action := RetryableFunc(func(ctx context.Context, attempt int) error {
		t.attempts = attempt
		if attempt > 1 && !obj.IsNew() {
			latest, err := t.store.Get(ctx, obj.Reference())
			if err != nil {
				return err
			}
			obj = latest
		}
		obj.Apply(t.props)
		err := t.store.Save(ctx, obj)
		if err != nil && !errors.Is(err, object.ErrConflict) {
			return backoff.Permanent(err)
		}
		return err
	})
	opts := append(append([]RetryOption(nil), t.retry...),
		WithThen(func(ctx context.Context) error {
			tc.SetObject(key, obj)
			return t.NotifyCompleted(ctx)
		}),
		WithRetryReporter(ReporterFunc(func(ctx context.Context, _ Task, err error) {
			t.AddError(err)
			t.Report(ctx, err)
		})),
		WithElse(func(ctx context.Context, _ error) error {
			return t.NotifyCancelled(ctx)
		}),
	)
	retry := NewRetry(action, opts...)
	retry.task = t
	return retry.Start(ctx)
}
