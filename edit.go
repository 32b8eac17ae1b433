package taskchain

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/crochee/taskchain/logger"
	"github.com/crochee/taskchain/object"
	"github.com/crochee/taskchain/ui"
)

// EditTask edits an object, either in a dialog or, when not interactive, by
// saving it in the background. The object is the one given as an option, the
// one bound in the context under the archetype, or the one produced by
// running the create task first.
type EditTask struct {
	*BaseTask
	store                object.Store
	editors              ui.EditorFactory
	popup                ui.Popup
	archetype            string
	object               *object.Object
	create               Task
	interactive          bool
	fallback             bool
	deleteOnCancelOrSkip bool

	editor ui.Editor
}

func NewEditTask(store object.Store, editors ui.EditorFactory, popup ui.Popup, archetype string, opts ...TaskOption) *EditTask {
	o := newTaskOptions("edit", opts)
	t := &EditTask{
		store:                store,
		editors:              editors,
		popup:                popup,
		archetype:            archetype,
		object:               o.object,
		create:               o.createTask,
		interactive:          o.interactive,
		fallback:             o.fallback,
		deleteOnCancelOrSkip: o.deleteOnCancelOrSkip,
	}
	t.BaseTask = o.base(t)
	return t
}

// Editor returns the editor of the last run.
func (t *EditTask) Editor() ui.Editor {
	return t.editor
}

func (t *EditTask) Start(ctx context.Context, tc *TaskContext) error {
	t.Begin()
	t.editor = nil
	if t.object != nil {
		return t.edit(ctx, tc, t.object)
	}
	if obj, ok := ObjectAs[*object.Object](tc, t.archetype); ok {
		return t.edit(ctx, tc, obj)
	}
	if t.create == nil {
		return t.NotifyCancelledOnError(ctx, fmt.Errorf("edit %s: %w", t.archetype, ErrNoObject))
	}
	next := &createThenEdit{t: t, tc: tc}
	t.create.AddTaskListener(next)
	if err := t.create.Start(ctx, tc); err != nil {
		if t.create.IsFinished() {
			return err
		}
		t.create.RemoveTaskListener(next)
		return t.NotifyCancelledOnError(ctx, err)
	}
	return nil
}

// createThenEdit continues an edit once its create task has finished.
type createThenEdit struct {
	t  *EditTask
	tc *TaskContext
}

func (*createThenEdit) continues() {}

func (c *createThenEdit) TaskEvent(ctx context.Context, event *TaskEvent) error {
	event.Source().RemoveTaskListener(c)
	if event.Type() != Completed {
		return c.t.Notify(ctx, event.Type())
	}
	obj, ok := ObjectAs[*object.Object](c.tc, c.t.archetype)
	if !ok {
		return c.t.NotifyCancelledOnError(ctx, fmt.Errorf("edit %s: %w", c.t.archetype, ErrNoObject))
	}
	return c.t.edit(ctx, c.tc, obj)
}

func (t *EditTask) edit(ctx context.Context, tc *TaskContext, obj *object.Object) error {
	editor, err := t.editors.NewEditor(ctx, obj)
	if err != nil {
		return t.NotifyCancelledOnError(ctx, fmt.Errorf("edit %s: %w", obj.Reference(), err))
	}
	t.editor = editor
	tc.SetCurrent(obj)
	if !t.interactive {
		err := t.save(ctx)
		if err == nil {
			tc.AddObject(editor.Object())
			return t.NotifyCompleted(ctx)
		}
		if !t.fallback {
			return t.failed(ctx, err)
		}
		logger.From(ctx).Info("background save failed, editing interactively",
			zap.String("task", t.Name()), zap.Error(err))
	}
	return t.show(ctx, tc)
}

func (t *EditTask) show(ctx context.Context, tc *TaskContext) error {
	buttons := []ui.Action{ui.OK}
	if !t.IsRequired() {
		buttons = append(buttons, ui.Skip)
	}
	buttons = append(buttons, ui.Cancel)
	prompt := ui.Prompt{
		Title:   "Edit " + t.editor.Object().Archetype(),
		Buttons: buttons,
		Content: t.editor,
	}
	return t.popup.Show(ctx, prompt, func(ctx context.Context, action ui.Action) error {
		switch action {
		case ui.OK:
			if err := t.save(ctx); err != nil {
				return t.failed(ctx, err)
			}
			tc.AddObject(t.editor.Object())
			return t.NotifyCompleted(ctx)
		case ui.Skip:
			t.deleteOnClose(ctx)
			return t.NotifySkipped(ctx)
		default:
			t.deleteOnClose(ctx)
			return t.NotifyCancelled(ctx)
		}
	})
}

func (t *EditTask) save(ctx context.Context) error {
	if err := t.editor.Validate(ctx); err != nil {
		return err
	}
	return t.editor.Save(ctx)
}

func (t *EditTask) failed(ctx context.Context, err error) error {
	t.AddError(err)
	t.Report(ctx, err)
	t.deleteOnClose(ctx)
	return t.NotifyCancelled(ctx)
}

// deleteOnClose removes the persisted copy of the edited object when the
// policy asks for it. The latest version is loaded first so a stale copy is
// never the one removed.
func (t *EditTask) deleteOnClose(ctx context.Context) {
	if !t.deleteOnCancelOrSkip || t.editor == nil {
		return
	}
	obj := t.editor.Object()
	if obj.IsNew() {
		return
	}
	latest, err := t.store.Get(ctx, obj.Reference())
	if errors.Is(err, object.ErrNotFound) {
		return
	}
	if err == nil {
		err = t.store.Remove(ctx, latest)
	}
	if err != nil {
		t.AddError(err)
		t.Report(ctx, fmt.Errorf("delete %s: %w", obj.Reference(), err))
	}
}
