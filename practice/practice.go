// Package practice composes the front-desk workflows of a practice from the
// generic tasks and registers them by name.
package practice

import (
	"context"
	"fmt"

	"github.com/crochee/taskchain"
	"github.com/crochee/taskchain/document"
	"github.com/crochee/taskchain/object"
	"github.com/crochee/taskchain/ui"
)

const (
	Customer = "customer"
	Patient  = "patient"
	Visit    = "visit"

	CheckIn   = "checkin"
	Discharge = "discharge"
)

// Visit statuses.
const (
	StatusInProgress = "in-progress"
	StatusCheckedIn  = "checked-in"
	StatusCompleted  = "completed"
)

// Deps are the collaborators the workflows run against.
type Deps struct {
	Store   object.Store
	Query   object.Query
	Factory object.Factory
	Browser ui.Browser
	Chooser ui.Chooser
	Popup   ui.Popup
	Editors ui.EditorFactory
	Locator document.Locator
	Printer document.Printer
	Config  *taskchain.Config
	// Reporter surfaces failures. When nil, errors show in a dialog on Popup,
	// or are only logged without one.
	Reporter taskchain.ErrorReporter
}

func (d Deps) config() *taskchain.Config {
	if d.Config == nil {
		return taskchain.DefaultConfig()
	}
	return d.Config
}

func (d Deps) reporter() taskchain.ErrorReporter {
	switch {
	case d.Reporter != nil:
		return d.Reporter
	case d.Popup == nil:
		return taskchain.LogReporter{}
	}
	return taskchain.PopupReporter{Popup: d.Popup}
}

func (d Deps) workflowOptions() []taskchain.WorkflowOption {
	return append(d.config().WorkflowOptions(),
		taskchain.WithTaskWrappers(taskchain.Recover(), taskchain.Logged()),
		taskchain.WithWorkflowReporter(d.reporter()),
	)
}

// Register adds the practice workflows to reg.
func Register(reg *taskchain.Registry, d Deps) {
	reg.Register(NewCheckIn(d))
	reg.Register(NewDischarge(d))
}

// NewCheckIn selects or registers the customer and, optionally, the patient,
// opens a visit, prints its act and marks it checked in.
func NewCheckIn(d Deps) *taskchain.Tasks {
	rep := taskchain.WithReporter(d.reporter())
	return taskchain.NewTasks(CheckIn, d.workflowOptions()...).Add(
		func() taskchain.Task {
			create := taskchain.NewCreateTask(d.Factory, d.Chooser, []string{Customer}, rep)
			return taskchain.NewSelectTask(d.Query, d.Browser, []string{Customer},
				taskchain.WithName("select-customer"), taskchain.WithCreateTask(create), rep)
		},
		func() taskchain.Task {
			create := taskchain.NewCreateTask(d.Factory, d.Chooser, []string{Patient}, rep)
			return taskchain.NewSelectTask(d.Query, d.Browser, []string{Patient},
				taskchain.WithName("select-patient"), taskchain.WithCreateTask(create),
				taskchain.WithRequired(false), rep)
		},
		func() taskchain.Task {
			return taskchain.NewCreateTask(d.Factory, d.Chooser, []string{Visit},
				taskchain.WithName("open-visit"),
				taskchain.WithProperties(map[string]interface{}{"status": StatusInProgress}), rep)
		},
		func() taskchain.Task {
			return taskchain.NewFuncTask(linkVisit, taskchain.WithName("link-visit"), rep)
		},
		func() taskchain.Task {
			return taskchain.NewEditTask(d.Store, d.Editors, d.Popup, Visit,
				taskchain.WithName("edit-visit"), taskchain.WithDeleteOnCancelOrSkip(), rep)
		},
		func() taskchain.Task {
			return taskchain.NewPrintActTask(d.Locator, d.Printer, d.Store, Visit,
				taskchain.WithRequired(false), rep)
		},
		func() taskchain.Task {
			c := d.config().Retry
			return taskchain.NewUpdateTask(d.Store, Visit,
				taskchain.WithName("mark-checked-in"),
				taskchain.WithProperties(map[string]interface{}{"status": StatusCheckedIn}),
				taskchain.WithRetry(c.Attempts, c.Delay, exponential(c)...), rep)
		},
		func() taskchain.Task {
			return taskchain.NewInformationTask(d.Popup, "Check-in", "The patient is checked in.")
		},
	)
}

// NewDischarge closes a visit after confirmation. A checked-in visit bound in
// the context is reloaded, otherwise the visit is selected from those on
// record, without prompting when there is only one.
func NewDischarge(d Deps) *taskchain.Tasks {
	rep := taskchain.WithReporter(d.reporter())
	return taskchain.NewTasks(Discharge, d.workflowOptions()...).Add(
		func() taskchain.Task {
			return taskchain.NewConditionalTask(
				taskchain.NewNodeInTask(Visit, "status", []interface{}{StatusCheckedIn}),
				taskchain.NewReloadTask(d.Store, Visit, rep),
				taskchain.NewSelectTask(d.Query, d.Browser, []string{Visit},
					taskchain.WithName("select-visit"), taskchain.WithAutoSelect(), rep),
				taskchain.WithName("resolve-visit"),
			)
		},
		func() taskchain.Task {
			return taskchain.NewConfirmationTask(d.Popup, "Discharge", "Close the visit?")
		},
		func() taskchain.Task {
			c := d.config().Retry
			return taskchain.NewUpdateTask(d.Store, Visit,
				taskchain.WithName("mark-completed"),
				taskchain.WithProperties(map[string]interface{}{"status": StatusCompleted}),
				taskchain.WithRetry(c.Attempts, c.Delay, exponential(c)...), rep)
		},
	)
}

func exponential(c taskchain.RetryConfig) []taskchain.RetryOption {
	if c.Exponential {
		return []taskchain.RetryOption{taskchain.WithExponentialBackOff()}
	}
	return nil
}

// linkVisit records the customer and patient of the visit being opened.
func linkVisit(_ context.Context, tc *taskchain.TaskContext) error {
	visit, ok := taskchain.ObjectAs[*object.Object](tc, Visit)
	if !ok {
		return fmt.Errorf("link visit: %w", taskchain.ErrNoObject)
	}
	customer, ok := taskchain.ObjectAs[*object.Object](tc, Customer)
	if !ok {
		return fmt.Errorf("link visit: no %s: %w", Customer, taskchain.ErrNoObject)
	}
	visit.Set(Customer, customer.Reference().ID)
	if patient, ok := taskchain.ObjectAs[*object.Object](tc, Patient); ok {
		visit.Set(Patient, patient.Reference().ID)
	}
	return nil
}
