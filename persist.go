package taskchain

import (
	"context"
	"errors"
	"fmt"

	"github.com/crochee/taskchain/object"
)

// DeleteTask removes the object bound in the context under archetype.
type DeleteTask struct {
	*BaseTask
	store     object.Store
	archetype string
}

func NewDeleteTask(store object.Store, archetype string, opts ...TaskOption) *DeleteTask {
	t := &DeleteTask{store: store, archetype: archetype}
	t.BaseTask = newTaskOptions("delete", opts).base(t)
	return t
}

func (t *DeleteTask) Start(ctx context.Context, tc *TaskContext) error {
	t.Begin()
	obj, ok := ObjectAs[*object.Object](tc, t.archetype)
	if !ok {
		return t.NotifyCancelledOnError(ctx, fmt.Errorf("delete %s: %w", t.archetype, ErrNoObject))
	}
	if !obj.IsNew() {
		if err := t.store.Remove(ctx, obj); err != nil {
			return t.NotifyCancelledOnError(ctx, fmt.Errorf("delete %s: %w", obj.Reference(), err))
		}
	}
	tc.SetObject(t.archetype, nil)
	return t.NotifyCompleted(ctx)
}

// ReloadTask replaces the context binding of archetype with its latest
// persisted version, and cancels when the object no longer exists.
type ReloadTask struct {
	*BaseTask
	store     object.Store
	archetype string
}

func NewReloadTask(store object.Store, archetype string, opts ...TaskOption) *ReloadTask {
	t := &ReloadTask{store: store, archetype: archetype}
	t.BaseTask = newTaskOptions("reload", opts).base(t)
	return t
}

func (t *ReloadTask) Start(ctx context.Context, tc *TaskContext) error {
	t.Begin()
	obj, ok := ObjectAs[*object.Object](tc, t.archetype)
	if !ok {
		return t.NotifyCancelledOnError(ctx, fmt.Errorf("reload %s: %w", t.archetype, ErrNoObject))
	}
	latest, err := t.store.Get(ctx, obj.Reference())
	switch {
	case errors.Is(err, object.ErrNotFound):
		return t.NotifyCancelledOnError(ctx, fmt.Errorf("reload %s: no longer exists: %w", obj.Reference(), err))
	case err != nil:
		return t.NotifyCancelledOnError(ctx, fmt.Errorf("reload %s: %w", obj.Reference(), err))
	}
	tc.SetObject(t.archetype, latest)
	return t.NotifyCompleted(ctx)
}
