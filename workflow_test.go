package taskchain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/crochee/taskchain/logger"
)

func TestWorkflowRunsTasksInOrder(t *testing.T) {
	ctx := testContext(t)
	var log []string
	a := newStub("a", &log, 0)
	b := newStub("b", &log, 0)
	c := newStub("c", &log, 0)
	w := NewWorkflow().AddTask(a, b, c)
	events := record(w)

	require.NoError(t, w.Run(ctx))
	assert.Equal(t, []string{"start a"}, log)
	assert.Equal(t, Task(a), w.Current())

	require.NoError(t, a.NotifyCompleted(ctx))
	assert.Equal(t, []string{"start a", "start b"}, log)
	require.NoError(t, b.NotifyCompleted(ctx))
	assert.Empty(t, events.events)
	require.NoError(t, c.NotifyCompleted(ctx))

	assert.Equal(t, []string{"start a", "start b", "start c"}, log)
	assert.Equal(t, []EventType{Completed}, events.events)
	assert.True(t, w.IsFinished())
	assert.Equal(t, StateCompleted, w.State())
	assert.Nil(t, w.Current())
}

func TestWorkflowSharesContext(t *testing.T) {
	ctx := testContext(t)
	var log []string
	a := newStub("a", &log, Completed)
	b := newStub("b", &log, Completed)
	root := NewTaskContext(WithObjects(map[string]interface{}{"clinic": "north"}))
	w := NewWorkflow(WithInitialContext(root)).AddTask(a, b)

	require.NoError(t, w.Run(ctx))
	assert.Same(t, a.tc, b.tc)
	assert.Same(t, w.Context(), a.tc)
	assert.Same(t, root, a.tc.Parent())
	assert.Equal(t, "north", a.tc.Object("clinic"))
}

func TestEmptyWorkflowCompletes(t *testing.T) {
	ctx := testContext(t)
	w := NewWorkflow()
	events := record(w)
	require.NoError(t, w.Run(ctx))
	assert.Equal(t, []EventType{Completed}, events.events)
}

func TestNotifyTwicePanics(t *testing.T) {
	ctx := testContext(t)
	var log []string
	s := newStub("once", &log, Completed)
	events := record(s)
	require.NoError(t, s.Start(ctx, NewTaskContext()))

	pe := protocolPanic(func() { _ = s.NotifySkipped(ctx) })
	require.NotNil(t, pe)
	assert.ErrorIs(t, pe, ErrAlreadyFinished)
	assert.Equal(t, "once", pe.Task)
	assert.Equal(t, []EventType{Completed}, events.events)

	// a new run re-arms the guard
	require.NoError(t, s.Start(ctx, NewTaskContext()))
	assert.Equal(t, []EventType{Completed, Completed}, events.events)
}

func TestWorkflowRequiredSkipped(t *testing.T) {
	ctx := testContext(t)
	var log []string
	reported := &errorCollector{}
	a := newStub("a", &log, Skipped)
	b := newStub("b", &log, Completed)
	w := NewWorkflow(WithWorkflowReporter(reported)).AddTask(a, b)
	events := record(w)

	err := w.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequiredSkipped)
	assert.True(t, IsProtocolViolation(err))
	assert.Equal(t, []EventType{Cancelled}, events.events)
	assert.Equal(t, []string{"start a"}, log)
	require.Len(t, reported.errs, 1)
	assert.ErrorIs(t, reported.errs[0], ErrRequiredSkipped)
	assert.True(t, w.IsCancelled())
}

func TestWorkflowOptionalSkipped(t *testing.T) {
	ctx := testContext(t)

	t.Run("advance", func(t *testing.T) {
		var log []string
		w := NewWorkflow().AddTask(
			newStub("a", &log, Skipped, WithRequired(false)),
			newStub("b", &log, Completed),
		)
		events := record(w)
		require.NoError(t, w.Run(ctx))
		assert.Equal(t, []string{"start a", "start b"}, log)
		assert.Equal(t, []EventType{Completed}, events.events)
	})

	t.Run("break", func(t *testing.T) {
		var log []string
		w := NewWorkflow(WithBreakOnSkip(true)).AddTask(
			newStub("a", &log, Skipped, WithRequired(false)),
			newStub("b", &log, Completed),
		)
		events := record(w)
		require.NoError(t, w.Run(ctx))
		assert.Equal(t, []string{"start a"}, log)
		assert.Equal(t, []EventType{Skipped}, events.events)
	})
}

func TestWorkflowCancelled(t *testing.T) {
	ctx := testContext(t)

	t.Run("break", func(t *testing.T) {
		var log []string
		w := NewWorkflow().AddTask(
			newStub("a", &log, Cancelled),
			newStub("b", &log, Completed),
		)
		events := record(w)
		require.NoError(t, w.Run(ctx))
		assert.Equal(t, []string{"start a"}, log)
		assert.Equal(t, []EventType{Cancelled}, events.events)
	})

	t.Run("continue", func(t *testing.T) {
		var log []string
		w := NewWorkflow(WithBreakOnCancel(false)).AddTask(
			newStub("a", &log, Cancelled),
			newStub("b", &log, Completed),
		)
		events := record(w)
		require.NoError(t, w.Run(ctx))
		assert.Equal(t, []string{"start a", "start b"}, log)
		assert.Equal(t, []EventType{Completed}, events.events)
	})
}

func TestWorkflowCancel(t *testing.T) {
	ctx := testContext(t)
	var log []string
	a := newStub("a", &log, 0)
	b := newStub("b", &log, Completed)
	w := NewWorkflow().AddTask(a, b)
	events := record(w)

	require.NoError(t, w.Run(ctx))
	w.Cancel()
	assert.False(t, a.IsFinished())
	assert.Empty(t, events.events)

	require.NoError(t, a.NotifyCompleted(ctx))
	assert.Equal(t, []string{"start a"}, log)
	assert.Equal(t, []EventType{Cancelled}, events.events)
}

func TestWorkflowCancelBeforeStart(t *testing.T) {
	ctx := testContext(t)
	var log []string
	w := NewWorkflow().AddTask(newStub("a", &log, Completed))
	events := record(w)
	w.Cancel()
	require.NoError(t, w.Run(ctx))
	assert.Empty(t, log)
	assert.Equal(t, []EventType{Cancelled}, events.events)
}

func TestNestedWorkflow(t *testing.T) {
	ctx := testContext(t)
	var log []string
	inner := NewWorkflow(WithWorkflowName("inner")).AddTask(
		newStub("i1", &log, Completed),
		newStub("i2", &log, Skipped, WithRequired(false)),
		newStub("i3", &log, 0),
	)
	last := newStub("o2", &log, Completed)
	outer := NewWorkflow(WithWorkflowName("outer")).AddTask(inner, last)
	innerEvents := record(inner)
	outerEvents := record(outer)

	require.NoError(t, outer.Run(ctx))
	assert.Equal(t, []string{"start i1", "start i2", "start i3"}, log)
	assert.Empty(t, outerEvents.events)

	i3 := inner.Tasks()[2].(*stubTask)
	require.NoError(t, i3.NotifyCompleted(ctx))
	assert.Equal(t, []string{"start i1", "start i2", "start i3", "start o2"}, log)
	assert.Equal(t, []EventType{Completed}, innerEvents.events)
	assert.Equal(t, []EventType{Completed}, outerEvents.events)
	assert.Same(t, outer.Context(), inner.Context())
}

func TestNestedWorkflowIsolated(t *testing.T) {
	ctx := testContext(t)
	write := NewFuncTask(func(_ context.Context, tc *TaskContext) error {
		tc.SetObject("draft", true)
		return nil
	})
	inner := NewWorkflow(WithIsolatedContext()).AddTask(write)
	outer := NewWorkflow().AddTask(inner)

	require.NoError(t, outer.Run(ctx))
	assert.Equal(t, true, inner.Context().Object("draft"))
	assert.Nil(t, outer.Context().Object("draft"))
}

func TestNestedRequiredWorkflowSkipped(t *testing.T) {
	ctx := testContext(t)
	var log []string
	inner := NewWorkflow(WithWorkflowName("inner"), WithBreakOnSkip(true)).AddTask(
		newStub("i1", &log, Skipped, WithRequired(false)),
	)
	outer := NewWorkflow(WithWorkflowReporter(&errorCollector{})).AddTask(inner, newStub("o2", &log, Completed))
	events := record(outer)

	err := outer.Run(ctx)
	assert.ErrorIs(t, err, ErrRequiredSkipped)
	assert.Equal(t, []EventType{Cancelled}, events.events)
	assert.Equal(t, []string{"start i1"}, log)
}

func TestWorkflowStartError(t *testing.T) {
	ctx := testContext(t)
	var log []string
	broken := NewCreateTask(nil, nil, nil)
	w := NewWorkflow().AddTask(broken, newStub("b", &log, Completed))
	events := record(w)

	err := w.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoArchetype)
	assert.Empty(t, events.events)
	assert.Empty(t, log)
	assert.False(t, w.IsFinished())
	assert.True(t, w.IsCancelled())
}

func TestWorkflowListenerError(t *testing.T) {
	ctx := testContext(t)
	var log []string
	boom := errors.New("listener failed")
	w := NewWorkflow().AddTask(newStub("a", &log, Completed))
	w.AddTaskListener(TaskListenerFunc(func(context.Context, *TaskEvent) error { return boom }))
	events := record(w)

	err := w.Run(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []EventType{Completed}, events.events)
}

type startRecorder struct {
	recorder
	started []string
}

func (s *startRecorder) Starting(_ context.Context, task Task) {
	s.started = append(s.started, task.Name())
}

func TestWorkflowStartListener(t *testing.T) {
	ctx := testContext(t)
	var log []string
	w := NewWorkflow().AddTask(newStub("a", &log, Completed), newStub("b", &log, Completed))
	s := &startRecorder{}
	w.AddTaskListener(s)

	require.NoError(t, w.Run(ctx))
	assert.Equal(t, []string{"a", "b"}, s.started)
	assert.Equal(t, []EventType{Completed}, s.events)
}

func TestWorkflowRerun(t *testing.T) {
	ctx := testContext(t)
	var log []string
	w := NewWorkflow().AddTask(newStub("a", &log, Completed))
	events := record(w)
	require.NoError(t, w.Run(ctx))
	first := w.Context()
	require.NoError(t, w.Run(ctx))
	assert.NotSame(t, first, w.Context())
	assert.Equal(t, []EventType{Completed, Completed}, events.events)
}

// childWatcher follows every child a workflow starts and logs its event.
type childWatcher struct {
	log *[]string
}

func (childWatcher) TaskEvent(context.Context, *TaskEvent) error {
	return nil
}

func (c childWatcher) Starting(_ context.Context, task Task) {
	*c.log = append(*c.log, "starting "+task.Name())
	name := task.Name()
	task.AddTaskListener(TaskListenerFunc(func(_ context.Context, event *TaskEvent) error {
		*c.log = append(*c.log, event.Type().String()+" "+name)
		return nil
	}))
}

func TestWorkflowFinishesEventBeforeNextStart(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logger.With(context.Background(), zap.New(core))
	var log []string
	a := newStub("a", &log, Completed)
	b := newStub("b", &log, Completed)
	w := NewWorkflow(WithTaskWrappers(Logged())).AddTask(a, b)
	w.AddTaskListener(childWatcher{log: &log})

	require.NoError(t, w.Run(ctx))
	assert.Equal(t, []string{
		"starting a", "start a", Completed.String() + " a",
		"starting b", "start b", Completed.String() + " b",
	}, log)

	var entries []string
	for _, e := range logs.All() {
		entries = append(entries, e.Message+" "+e.ContextMap()["task"].(string))
	}
	assert.Equal(t, []string{
		"task starting a", "task finished a",
		"task starting b", "task finished b",
	}, entries)
}
