package taskchain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crochee/taskchain/internal/fake"
	"github.com/crochee/taskchain/object"
	"github.com/crochee/taskchain/ui"
)

func TestEditTaskInteractive(t *testing.T) {
	ctx := testContext(t)
	store := object.NewMemoryStore()
	visit := object.New("visit")
	popup := fake.NewPopup()
	task := NewEditTask(store, &fake.Editors{Store: store}, popup, "visit")
	events := record(task)
	tc := NewTaskContext(WithObjects(map[string]interface{}{"visit": visit}))

	require.NoError(t, task.Start(ctx, tc))
	assert.False(t, task.IsFinished())
	assert.Same(t, visit, tc.Current())
	require.Len(t, popup.Shown, 1)
	assert.Equal(t, []ui.Action{ui.OK, ui.Cancel}, popup.Shown[0].Buttons)
	assert.Equal(t, task.Editor(), popup.Shown[0].Content)

	require.NoError(t, popup.Close(ctx, ui.OK))
	assert.Equal(t, []EventType{Completed}, events.events)
	assert.False(t, visit.IsNew())
	_, err := store.Get(ctx, visit.Reference())
	assert.NoError(t, err)
}

func TestEditTaskOptionalButtons(t *testing.T) {
	ctx := testContext(t)
	store := object.NewMemoryStore()
	popup := fake.NewPopup(ui.Skip)
	task := NewEditTask(store, &fake.Editors{Store: store}, popup, "visit",
		WithObject(object.New("visit")), WithRequired(false))
	events := record(task)

	require.NoError(t, task.Start(ctx, NewTaskContext()))
	assert.Equal(t, []ui.Action{ui.OK, ui.Skip, ui.Cancel}, popup.Shown[0].Buttons)
	assert.Equal(t, []EventType{Skipped}, events.events)
}

func TestEditTaskNoObject(t *testing.T) {
	ctx := testContext(t)
	store := object.NewMemoryStore()
	task := NewEditTask(store, &fake.Editors{Store: store}, fake.NewPopup(), "visit",
		WithReporter(&errorCollector{}))
	events := record(task)

	require.NoError(t, task.Start(ctx, NewTaskContext()))
	assert.Equal(t, []EventType{Cancelled}, events.events)
	assert.ErrorIs(t, task.Error(), ErrNoObject)
}

func TestEditTaskCreatesFirst(t *testing.T) {
	ctx := testContext(t)
	store := object.NewMemoryStore()
	create := NewCreateTask(object.DefaultFactory{}, nil, []string{"visit"})
	task := NewEditTask(store, &fake.Editors{Store: store}, fake.NewPopup(ui.OK), "visit",
		WithCreateTask(create))
	events := record(task)
	tc := NewTaskContext()

	require.NoError(t, task.Start(ctx, tc))
	assert.Equal(t, []EventType{Completed}, events.events)
	visit, ok := ObjectAs[*object.Object](tc, "visit")
	require.True(t, ok)
	assert.False(t, visit.IsNew())

	// a cancelled create cancels the edit
	chooser := NewCreateTask(object.DefaultFactory{}, fake.NewChooser(), []string{"visit", "boarding"})
	task = NewEditTask(store, &fake.Editors{Store: store}, fake.NewPopup(), "visit",
		WithCreateTask(chooser))
	events = record(task)
	require.NoError(t, task.Start(ctx, NewTaskContext()))
	assert.Equal(t, []EventType{Cancelled}, events.events)
}

func TestEditTaskCreateAborts(t *testing.T) {
	ctx := testContext(t)
	store := object.NewMemoryStore()
	broken := NewFuncTask(func(context.Context, *TaskContext) error { panic("no factory") })
	reported := &errorCollector{}
	task := NewEditTask(store, &fake.Editors{Store: store}, fake.NewPopup(), "visit",
		WithCreateTask(Recover().Then(broken)), WithErrorListener(reported))
	events := record(task)

	require.NoError(t, task.Start(ctx, NewTaskContext()))
	require.NoError(t, task.Start(ctx, NewTaskContext()))
	assert.Equal(t, []EventType{Cancelled, Cancelled}, events.events)
	assert.Len(t, reported.errs, 2)
	assert.Zero(t, broken.listeners.Len())
}

func TestEditTaskBackground(t *testing.T) {
	ctx := testContext(t)
	store := object.NewMemoryStore()
	invalid := errors.New("weight is required")

	t.Run("saved", func(t *testing.T) {
		popup := fake.NewPopup()
		task := NewEditTask(store, &fake.Editors{Store: store}, popup, "visit",
			WithObject(object.New("visit")), WithInteractive(false))
		events := record(task)
		require.NoError(t, task.Start(ctx, NewTaskContext()))
		assert.Empty(t, popup.Shown)
		assert.Equal(t, []EventType{Completed}, events.events)
	})

	t.Run("fallback", func(t *testing.T) {
		popup := fake.NewPopup()
		editors := &fake.Editors{Store: store, Invalid: map[string]error{"visit": invalid}}
		task := NewEditTask(store, editors, popup, "visit",
			WithObject(object.New("visit")), WithInteractive(false))
		events := record(task)
		require.NoError(t, task.Start(ctx, NewTaskContext()))
		assert.Len(t, popup.Shown, 1)
		assert.Empty(t, events.events)
		require.NoError(t, popup.Close(ctx, ui.Cancel))
		assert.Equal(t, []EventType{Cancelled}, events.events)
	})

	t.Run("no fallback", func(t *testing.T) {
		popup := fake.NewPopup()
		editors := &fake.Editors{Store: store, Invalid: map[string]error{"visit": invalid}}
		reported := &errorCollector{}
		task := NewEditTask(store, editors, popup, "visit", WithObject(object.New("visit")),
			WithInteractive(false), WithBackgroundFallback(false), WithReporter(reported))
		events := record(task)
		require.NoError(t, task.Start(ctx, NewTaskContext()))
		assert.Empty(t, popup.Shown)
		assert.Equal(t, []EventType{Cancelled}, events.events)
		assert.Equal(t, []error{invalid}, reported.errs)
	})
}

func TestEditTaskInvalidOnOK(t *testing.T) {
	ctx := testContext(t)
	store := object.NewMemoryStore()
	invalid := errors.New("weight is required")
	editors := &fake.Editors{Store: store, Invalid: map[string]error{"visit": invalid}}
	visit := object.New("visit")
	task := NewEditTask(store, editors, fake.NewPopup(ui.OK), "visit", WithObject(visit),
		WithReporter(&errorCollector{}))
	events := record(task)

	require.NoError(t, task.Start(ctx, NewTaskContext()))
	assert.Equal(t, []EventType{Cancelled}, events.events)
	assert.ErrorIs(t, task.Error(), invalid)
	assert.True(t, visit.IsNew())
}

func TestEditTaskDeleteOnCancel(t *testing.T) {
	ctx := testContext(t)
	store, saved := seedStore(t, "visit", "checkup")
	visit := saved[0]
	// another session touched it since it was loaded
	require.NoError(t, store.Update(visit.Reference(), func(o *object.Object) { o.Set("room", "2") }))

	task := NewEditTask(store, &fake.Editors{Store: store}, fake.NewPopup(ui.Cancel), "visit",
		WithObject(visit), WithDeleteOnCancelOrSkip())
	events := record(task)
	require.NoError(t, task.Start(ctx, NewTaskContext()))
	assert.Equal(t, []EventType{Cancelled}, events.events)
	_, err := store.Get(ctx, visit.Reference())
	assert.ErrorIs(t, err, object.ErrNotFound)

	// a new object has nothing to delete
	fresh := object.New("visit")
	task = NewEditTask(store, &fake.Editors{Store: store}, fake.NewPopup(ui.Cancel), "visit",
		WithObject(fresh), WithDeleteOnCancelOrSkip())
	require.NoError(t, task.Start(ctx, NewTaskContext()))
	assert.NoError(t, task.Error())
}

func TestEditTaskEditorError(t *testing.T) {
	ctx := testContext(t)
	boom := errors.New("no editor for archetype")
	factory := editorFactoryFunc(func(context.Context, *object.Object) (ui.Editor, error) { return nil, boom })
	task := NewEditTask(object.NewMemoryStore(), factory, fake.NewPopup(), "visit",
		WithObject(object.New("visit")), WithReporter(&errorCollector{}))
	events := record(task)
	require.NoError(t, task.Start(ctx, NewTaskContext()))
	assert.Equal(t, []EventType{Cancelled}, events.events)
	assert.ErrorIs(t, task.Error(), boom)
}

type editorFactoryFunc func(ctx context.Context, obj *object.Object) (ui.Editor, error)

func (f editorFactoryFunc) NewEditor(ctx context.Context, obj *object.Object) (ui.Editor, error) {
	return f(ctx, obj)
}
