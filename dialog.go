package taskchain

import (
	"context"

	"github.com/crochee/taskchain/ui"
)

// ConfirmationTask asks a question. Yes or OK completes the task, any other
// answer cancels it.
type ConfirmationTask struct {
	*BaseTask
	popup   ui.Popup
	title   string
	message string
	buttons []ui.Action
}

func NewConfirmationTask(popup ui.Popup, title, message string, opts ...TaskOption) *ConfirmationTask {
	o := newTaskOptions("confirm", opts)
	t := &ConfirmationTask{
		popup:   popup,
		title:   title,
		message: message,
		buttons: o.buttons,
	}
	if len(t.buttons) == 0 {
		t.buttons = []ui.Action{ui.Yes, ui.No}
	}
	t.BaseTask = o.base(t)
	return t
}

func (t *ConfirmationTask) Start(ctx context.Context, _ *TaskContext) error {
	t.Begin()
	prompt := ui.Prompt{Title: t.title, Message: t.message, Buttons: t.buttons}
	return t.popup.Show(ctx, prompt, func(ctx context.Context, action ui.Action) error {
		if action == ui.Yes || action == ui.OK {
			return t.NotifyCompleted(ctx)
		}
		return t.NotifyCancelled(ctx)
	})
}

// InformationTask shows a message. Closing it with OK completes the task;
// closing it any other way cancels the task when configured to, and
// completes it otherwise.
type InformationTask struct {
	*BaseTask
	popup         ui.Popup
	title         string
	message       string
	cancelOnClose bool
}

func NewInformationTask(popup ui.Popup, title, message string, opts ...TaskOption) *InformationTask {
	o := newTaskOptions("inform", opts)
	t := &InformationTask{
		popup:         popup,
		title:         title,
		message:       message,
		cancelOnClose: o.cancelOnClose,
	}
	t.BaseTask = o.base(t)
	return t
}

func (t *InformationTask) Start(ctx context.Context, _ *TaskContext) error {
	t.Begin()
	prompt := ui.Prompt{Title: t.title, Message: t.message, Buttons: []ui.Action{ui.OK}}
	return t.popup.Show(ctx, prompt, func(ctx context.Context, action ui.Action) error {
		if action != ui.OK && t.cancelOnClose {
			return t.NotifyCancelled(ctx)
		}
		return t.NotifyCompleted(ctx)
	})
}
