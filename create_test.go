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

func TestCreateTaskSingleArchetype(t *testing.T) {
	ctx := testContext(t)
	factory := object.DefaultFactory{Defaults: map[string]map[string]interface{}{
		"patient": {"species": "canine"},
	}}
	task := NewCreateTask(factory, nil, []string{"patient"},
		WithProperties(map[string]interface{}{"name": "Rex"}))
	events := record(task)
	tc := NewTaskContext()

	require.NoError(t, task.Start(ctx, tc))
	assert.Equal(t, []EventType{Completed}, events.events)
	patient, ok := ObjectAs[*object.Object](tc, "patient")
	require.True(t, ok)
	assert.Same(t, task.Object(), patient)
	assert.Equal(t, "Rex", patient.String("name"))
	assert.Equal(t, "canine", patient.String("species"))
	assert.True(t, patient.IsNew())
}

func TestCreateTaskChooses(t *testing.T) {
	ctx := testContext(t)
	factory := object.DefaultFactory{}

	t.Run("chosen", func(t *testing.T) {
		chooser := fake.NewChooser("estimate")
		task := NewCreateTask(factory, chooser, []string{"invoice", "estimate"})
		events := record(task)
		tc := NewTaskContext()
		require.NoError(t, task.Start(ctx, tc))
		assert.Equal(t, []EventType{Completed}, events.events)
		assert.Equal(t, [][]string{{"invoice", "estimate"}}, chooser.Offered)
		assert.NotNil(t, tc.Object("estimate"))
	})

	t.Run("dismissed", func(t *testing.T) {
		task := NewCreateTask(factory, fake.NewChooser(), []string{"invoice", "estimate"})
		events := record(task)
		require.NoError(t, task.Start(ctx, NewTaskContext()))
		assert.Equal(t, []EventType{Cancelled}, events.events)
		assert.Nil(t, task.Object())
	})
}

func TestCreateTaskFactoryError(t *testing.T) {
	ctx := testContext(t)
	boom := errors.New("archetype disabled")
	factory := object.FactoryFunc(func(context.Context, string) (*object.Object, error) { return nil, boom })
	reported := &errorCollector{}
	task := NewCreateTask(factory, nil, []string{"patient"}, WithReporter(reported))
	events := record(task)

	require.NoError(t, task.Start(ctx, NewTaskContext()))
	assert.Equal(t, []EventType{Cancelled}, events.events)
	require.Len(t, reported.errs, 1)
	assert.ErrorIs(t, reported.errs[0], boom)
}

func seedStore(t *testing.T, archetype string, names ...string) (*object.MemoryStore, []*object.Object) {
	store := object.NewMemoryStore()
	var saved []*object.Object
	for _, name := range names {
		obj := object.New(archetype)
		obj.Set("name", name)
		require.NoError(t, store.Save(context.Background(), obj))
		saved = append(saved, obj)
	}
	return store, saved
}

func TestSelectTask(t *testing.T) {
	ctx := testContext(t)
	store, _ := seedStore(t, "customer", "alice", "bob")

	t.Run("selected", func(t *testing.T) {
		browser := fake.NewBrowser(ui.Selection{Action: ui.OK})
		task := NewSelectTask(store, browser, []string{"customer"})
		events := record(task)
		tc := NewTaskContext()
		require.NoError(t, task.Start(ctx, tc))
		assert.Equal(t, []EventType{Completed}, events.events)
		require.Len(t, browser.Requests, 1)
		assert.Len(t, browser.Requests[0].Candidates, 2)
		assert.False(t, browser.Requests[0].AllowSkip)
		assert.False(t, browser.Requests[0].AllowCreate)
		assert.Same(t, task.Selected(), tc.Object("customer"))
	})

	t.Run("dismissed required", func(t *testing.T) {
		task := NewSelectTask(store, fake.NewBrowser(ui.Selection{Action: ui.Cancel}), []string{"customer"})
		events := record(task)
		require.NoError(t, task.Start(ctx, NewTaskContext()))
		assert.Equal(t, []EventType{Cancelled}, events.events)
		assert.Nil(t, task.Selected())
	})

	t.Run("dismissed optional", func(t *testing.T) {
		browser := fake.NewBrowser(ui.Selection{Action: ui.Skip})
		task := NewSelectTask(store, browser, []string{"customer"}, WithRequired(false))
		events := record(task)
		require.NoError(t, task.Start(ctx, NewTaskContext()))
		assert.True(t, browser.Requests[0].AllowSkip)
		assert.Equal(t, []EventType{Skipped}, events.events)
	})

	t.Run("pending", func(t *testing.T) {
		browser := fake.NewBrowser()
		task := NewSelectTask(store, browser, []string{"customer"})
		events := record(task)
		require.NoError(t, task.Start(ctx, NewTaskContext()))
		assert.False(t, task.IsFinished())
		require.NoError(t, browser.Close(ctx, ui.Selection{Action: ui.OK}))
		assert.Equal(t, []EventType{Completed}, events.events)
	})
}

func TestSelectTaskAutoSelect(t *testing.T) {
	ctx := testContext(t)
	store, saved := seedStore(t, "practice", "north")
	browser := fake.NewBrowser()
	task := NewSelectTask(store, browser, []string{"practice"}, WithAutoSelect())
	events := record(task)
	tc := NewTaskContext()

	require.NoError(t, task.Start(ctx, tc))
	assert.Empty(t, browser.Requests)
	assert.Equal(t, []EventType{Completed}, events.events)
	assert.Equal(t, saved[0].Reference(), task.Selected().Reference())
}

func TestSelectTaskCreate(t *testing.T) {
	ctx := testContext(t)
	store, _ := seedStore(t, "customer", "alice")
	create := NewCreateTask(object.DefaultFactory{}, nil, []string{"customer"},
		WithProperties(map[string]interface{}{"name": "carol"}))
	browser := fake.NewBrowser(ui.Selection{Action: ui.Create})
	task := NewSelectTask(store, browser, []string{"customer"}, WithCreateTask(create))
	events := record(task)
	tc := NewTaskContext()

	require.NoError(t, task.Start(ctx, tc))
	assert.True(t, browser.Requests[0].AllowCreate)
	assert.Equal(t, []EventType{Completed}, events.events)
	customer, ok := ObjectAs[*object.Object](tc, "customer")
	require.True(t, ok)
	assert.Equal(t, "carol", customer.String("name"))
}

func TestSelectTaskQueryError(t *testing.T) {
	ctx := testContext(t)
	boom := errors.New("connection refused")
	task := NewSelectTask(failingQuery{boom}, fake.NewBrowser(), []string{"customer"},
		WithReporter(&errorCollector{}))
	events := record(task)
	require.NoError(t, task.Start(ctx, NewTaskContext()))
	assert.Equal(t, []EventType{Cancelled}, events.events)
	assert.ErrorIs(t, task.Error(), boom)
}

type failingQuery struct {
	err error
}

func (f failingQuery) Find(context.Context, ...string) ([]*object.Object, error) {
	return nil, f.err
}
