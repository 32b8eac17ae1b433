package taskchain

import (
	"context"
	"fmt"

	"github.com/crochee/taskchain/object"
	"github.com/crochee/taskchain/ui"
)

// CreateTask creates an object, applies its properties and binds it in the
// context. With several candidate archetypes the user picks one first.
type CreateTask struct {
	*BaseTask
	factory    object.Factory
	chooser    ui.Chooser
	archetypes []string
	props      map[string]interface{}
	object     *object.Object
}

func NewCreateTask(factory object.Factory, chooser ui.Chooser, archetypes []string, opts ...TaskOption) *CreateTask {
	o := newTaskOptions("create", opts)
	t := &CreateTask{
		factory:    factory,
		chooser:    chooser,
		archetypes: archetypes,
		props:      o.props,
	}
	t.BaseTask = o.base(t)
	return t
}

// Object returns the object created by the last run.
func (t *CreateTask) Object() *object.Object {
	return t.object
}

func (t *CreateTask) Archetypes() []string {
	return t.archetypes
}

func (t *CreateTask) Start(ctx context.Context, tc *TaskContext) error {
	t.Begin()
	t.object = nil
	switch len(t.archetypes) {
	case 0:
		return fmt.Errorf("task %s: %w", t.Name(), ErrNoArchetype)
	case 1:
		return t.create(ctx, tc, t.archetypes[0])
	}
	return t.chooser.Choose(ctx, "New", t.archetypes, func(ctx context.Context, choice string, ok bool) error {
		if !ok {
			return t.NotifyCancelled(ctx)
		}
		return t.create(ctx, tc, choice)
	})
}

func (t *CreateTask) create(ctx context.Context, tc *TaskContext, archetype string) error {
	obj, err := t.factory.Create(ctx, archetype)
	if err != nil {
		return t.NotifyCancelledOnError(ctx, fmt.Errorf("create %s: %w", archetype, err))
	}
	obj.Apply(t.props)
	t.object = obj
	tc.AddObject(obj)
	return t.NotifyCompleted(ctx)
}
