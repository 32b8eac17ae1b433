package taskchain

import (
	"context"
	"fmt"

	"github.com/crochee/taskchain/object"
	"github.com/crochee/taskchain/ui"
)

// SelectTask binds an existing object chosen from the query results. When a
// create task is configured the user may ask for a new object instead, and
// the create task's outcome becomes this task's outcome.
type SelectTask struct {
	*BaseTask
	query      object.Query
	browser    ui.Browser
	archetypes []string
	create     Task
	autoSelect bool
	selected   *object.Object
	listener   *forwarder
}

func NewSelectTask(query object.Query, browser ui.Browser, archetypes []string, opts ...TaskOption) *SelectTask {
	o := newTaskOptions("select", opts)
	t := &SelectTask{
		query:      query,
		browser:    browser,
		archetypes: archetypes,
		create:     o.createTask,
		autoSelect: o.autoSelect,
	}
	t.BaseTask = o.base(t)
	t.listener = &forwarder{to: t.BaseTask}
	return t
}

// Selected returns the object bound by the last run, nil if none was.
func (t *SelectTask) Selected() *object.Object {
	return t.selected
}

func (t *SelectTask) Start(ctx context.Context, tc *TaskContext) error {
	t.Begin()
	t.selected = nil
	if len(t.archetypes) == 0 {
		return fmt.Errorf("task %s: %w", t.Name(), ErrNoArchetype)
	}
	candidates, err := t.query.Find(ctx, t.archetypes...)
	if err != nil {
		return t.NotifyCancelledOnError(ctx, fmt.Errorf("query %v: %w", t.archetypes, err))
	}
	if t.autoSelect && len(candidates) == 1 {
		return t.bind(ctx, tc, candidates[0])
	}
	req := ui.BrowseRequest{
		Title:       "Select",
		Archetypes:  t.archetypes,
		Candidates:  candidates,
		AllowCreate: t.create != nil,
		AllowSkip:   !t.IsRequired(),
	}
	return t.browser.Browse(ctx, req, func(ctx context.Context, s ui.Selection) error {
		return t.onSelected(ctx, tc, s)
	})
}

func (t *SelectTask) onSelected(ctx context.Context, tc *TaskContext, s ui.Selection) error {
	switch s.Action {
	case ui.OK:
		if s.Object == nil {
			return t.dismissed(ctx)
		}
		return t.bind(ctx, tc, s.Object)
	case ui.Create:
		if t.create == nil {
			return t.dismissed(ctx)
		}
		t.create.AddTaskListener(t.listener)
		if err := t.create.Start(ctx, tc); err != nil {
			if t.create.IsFinished() {
				return err
			}
			t.create.RemoveTaskListener(t.listener)
			return t.NotifyCancelledOnError(ctx, err)
		}
		return nil
	default:
		return t.dismissed(ctx)
	}
}

func (t *SelectTask) bind(ctx context.Context, tc *TaskContext, obj *object.Object) error {
	t.selected = obj
	tc.AddObject(obj)
	return t.NotifyCompleted(ctx)
}

// dismissed skips an optional selection and cancels a required one.
func (t *SelectTask) dismissed(ctx context.Context) error {
	if t.IsRequired() {
		return t.NotifyCancelled(ctx)
	}
	return t.NotifySkipped(ctx)
}
