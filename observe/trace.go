package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/crochee/taskchain"
)

const instrumentation = "github.com/crochee/taskchain"

// Tracer opens a span per task run, ended by the run's terminal event. Spans
// of sub-tasks are children of their composite task's span.
type Tracer struct {
	tracer trace.Tracer
}

func NewTracer(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(instrumentation)}
}

// Attach opens the span of one run of task, parented by the span in ctx if
// any, and returns ctx carrying it. Attach before starting the task.
func (t *Tracer) Attach(ctx context.Context, task taskchain.Task) context.Context {
	ctx, _ = t.watch(ctx, task)
	return ctx
}

func (t *Tracer) watch(parent context.Context, task taskchain.Task) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(parent, "task "+task.Name(),
		trace.WithAttributes(
			attribute.String("task.name", task.Name()),
			attribute.Bool("task.required", task.IsRequired()),
		))
	task.AddTaskListener(&taskSpan{t: t, task: task, ctx: ctx, span: span})
	return ctx, span
}

type taskSpan struct {
	t    *Tracer
	task taskchain.Task
	ctx  context.Context
	span trace.Span
}

func (s *taskSpan) Starting(_ context.Context, sub taskchain.Task) {
	_, span := s.t.watch(s.ctx, sub)
	span.AddEvent("started by " + s.task.Name())
}

func (s *taskSpan) TaskEvent(_ context.Context, event *taskchain.TaskEvent) error {
	s.task.RemoveTaskListener(s)
	s.span.SetAttributes(attribute.String("task.event", event.Type().String()))
	if failed, ok := s.task.(interface{ Error() error }); ok && failed.Error() != nil {
		s.span.RecordError(failed.Error())
		s.span.SetStatus(codes.Error, failed.Error().Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
	return nil
}
