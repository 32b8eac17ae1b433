// Package observe records task runs as Prometheus metrics and OpenTelemetry
// spans. Both attach to a task as listeners and follow every sub-task a
// composite task starts.
package observe

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/crochee/taskchain"
)

type Metrics struct {
	started  *prometheus.CounterVec
	events   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	active   prometheus.Gauge
	now      func() time.Time
}

func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		started: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_started_total",
				Help:      "Total number of task runs started",
			},
			[]string{"task"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "task_events_total",
				Help:      "Total number of terminal task events",
			},
			[]string{"task", "event"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "task_duration_seconds",
				Help:      "Time from task start to its terminal event",
				Buckets:   []float64{.01, .1, 1, 10, 60, 300, 1800},
			},
			[]string{"task", "event"},
		),
		active: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tasks_active",
				Help:      "Number of task runs awaiting their terminal event",
			},
		),
		now: time.Now,
	}
	for _, c := range []prometheus.Collector{m.started, m.events, m.duration, m.active} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register task metrics: %w", err)
		}
	}
	return m, nil
}

// Attach records one run of task and every sub-task it starts. Attach before
// starting the task.
func (m *Metrics) Attach(task taskchain.Task) {
	m.watch(task)
}

func (m *Metrics) watch(task taskchain.Task) {
	m.started.WithLabelValues(task.Name()).Inc()
	m.active.Inc()
	task.AddTaskListener(&taskMetrics{m: m, task: task, start: m.now()})
}

// taskMetrics observes a single run.
type taskMetrics struct {
	m     *Metrics
	task  taskchain.Task
	start time.Time
}

func (t *taskMetrics) Starting(_ context.Context, sub taskchain.Task) {
	t.m.watch(sub)
}

func (t *taskMetrics) TaskEvent(_ context.Context, event *taskchain.TaskEvent) error {
	t.task.RemoveTaskListener(t)
	name, typ := t.task.Name(), event.Type().String()
	t.m.active.Dec()
	t.m.events.WithLabelValues(name, typ).Inc()
	t.m.duration.WithLabelValues(name, typ).Observe(t.m.now().Sub(t.start).Seconds())
	return nil
}
