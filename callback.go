package taskchain

import (
	"context"
	"reflect"

	"go.uber.org/multierr"
)

// TaskListenerFunc adapts a function to a TaskListener. Function listeners
// cannot be removed once added.
type TaskListenerFunc func(ctx context.Context, event *TaskEvent) error

func (f TaskListenerFunc) TaskEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}

// TaskListeners is an ordered listener list. Notification iterates over a
// snapshot, so listeners may add or remove listeners while being notified.
type TaskListeners struct {
	listeners []TaskListener
}

func (t *TaskListeners) Add(l TaskListener) {
	if l == nil {
		return
	}
	t.listeners = append(t.listeners, l)
}

// Remove drops the first registration of l.
func (t *TaskListeners) Remove(l TaskListener) {
	if l == nil || !reflect.TypeOf(l).Comparable() {
		return
	}
	for i, v := range t.listeners {
		if reflect.TypeOf(v).Comparable() && v == l {
			t.listeners = append(t.listeners[:i:i], t.listeners[i+1:]...)
			return
		}
	}
}

func (t *TaskListeners) Len() int {
	return len(t.listeners)
}

func (t *TaskListeners) snapshot() []TaskListener {
	return append([]TaskListener(nil), t.listeners...)
}

// continuation is implemented by the listeners that move a composite task on
// to its next step. They are notified after every other listener.
type continuation interface {
	continues()
}

// TaskEvent notifies every listener in registration order, continuations
// last, and combines their errors.
func (t *TaskListeners) TaskEvent(ctx context.Context, event *TaskEvent) error {
	var (
		err  error
		next []TaskListener
	)
	for _, l := range t.snapshot() {
		if _, ok := l.(continuation); ok {
			next = append(next, l)
			continue
		}
		err = multierr.Append(err, l.TaskEvent(ctx, event))
	}
	for _, l := range next {
		err = multierr.Append(err, l.TaskEvent(ctx, event))
	}
	return err
}

// Starting notifies the listeners implementing StartListener.
func (t *TaskListeners) Starting(ctx context.Context, task Task) {
	for _, l := range t.snapshot() {
		if s, ok := l.(StartListener); ok {
			s.Starting(ctx, task)
		}
	}
}
