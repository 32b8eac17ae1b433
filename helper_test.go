package taskchain

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/crochee/taskchain/logger"
)

// stubTask records its starts and raises auto on start, or waits for the
// test to raise an event when auto is zero.
type stubTask struct {
	*BaseTask
	log  *[]string
	auto EventType
	tc   *TaskContext
}

func newStub(name string, log *[]string, auto EventType, opts ...TaskOption) *stubTask {
	s := &stubTask{log: log, auto: auto}
	s.BaseTask = newTaskOptions(name, opts).base(s)
	return s
}

func (s *stubTask) Start(ctx context.Context, tc *TaskContext) error {
	s.Begin()
	s.tc = tc
	*s.log = append(*s.log, "start "+s.Name())
	if s.auto != 0 {
		return s.Notify(ctx, s.auto)
	}
	return nil
}

// recorder collects the event types it is notified of.
type recorder struct {
	events []EventType
}

func (r *recorder) TaskEvent(_ context.Context, event *TaskEvent) error {
	r.events = append(r.events, event.Type())
	return nil
}

func record(task Task) *recorder {
	r := &recorder{}
	task.AddTaskListener(r)
	return r
}

// errorCollector is an ErrorReporter keeping every reported error.
type errorCollector struct {
	errs []error
}

func (e *errorCollector) Report(_ context.Context, _ Task, err error) {
	e.errs = append(e.errs, err)
}

func testContext(t *testing.T) context.Context {
	return logger.With(context.Background(), zaptest.NewLogger(t))
}

// protocolPanic runs fn and returns the ProtocolError it panics with.
func protocolPanic(fn func()) (pe *ProtocolError) {
	defer func() {
		if r := recover(); r != nil {
			pe, _ = r.(*ProtocolError)
		}
	}()
	fn()
	return nil
}
