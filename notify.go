package taskchain

import (
	"context"

	"go.uber.org/zap"

	"github.com/crochee/taskchain/logger"
	"github.com/crochee/taskchain/ui"
)

// ReporterFunc adapts a function to an ErrorReporter.
type ReporterFunc func(ctx context.Context, task Task, err error)

func (f ReporterFunc) Report(ctx context.Context, task Task, err error) {
	f(ctx, task, err)
}

// LogReporter logs failures with the logger carried by the context.
type LogReporter struct{}

func (LogReporter) Report(ctx context.Context, task Task, err error) {
	name := ""
	if task != nil {
		name = task.Name()
	}
	logger.From(ctx).Error("task failed", zap.String("task", name), zap.Error(err))
}

// PopupReporter shows failures in an error dialog and logs them. Without a
// Popup it only logs.
type PopupReporter struct {
	Popup ui.Popup
	Title string
}

func (p PopupReporter) Report(ctx context.Context, task Task, err error) {
	LogReporter{}.Report(ctx, task, err)
	if p.Popup == nil {
		return
	}
	title := p.Title
	if title == "" {
		title = "Error"
	}
	prompt := ui.Prompt{
		Title:   title,
		Message: err.Error(),
		Buttons: []ui.Action{ui.OK},
	}
	if showErr := p.Popup.Show(ctx, prompt, func(context.Context, ui.Action) error { return nil }); showErr != nil {
		logger.From(ctx).Warn("show error dialog", zap.Error(showErr))
	}
}
