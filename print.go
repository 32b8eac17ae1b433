package taskchain

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crochee/taskchain/document"
	"github.com/crochee/taskchain/logger"
	"github.com/crochee/taskchain/object"
)

// PrintedNode is the node set on an object once it has been printed.
const PrintedNode = "printed"

// PrintTask prints an object with the template of its archetype.
type PrintTask struct {
	*BaseTask
	locator     document.Locator
	printer     document.Printer
	store       object.Store
	archetype   string
	object      *object.Object
	interactive bool
	markPrinted bool
	printedTo   string
}

func NewPrintTask(locator document.Locator, printer document.Printer, store object.Store,
	archetype string, opts ...TaskOption) *PrintTask {
	o := newTaskOptions("print", opts)
	t := &PrintTask{
		locator:     locator,
		printer:     printer,
		store:       store,
		archetype:   archetype,
		object:      o.object,
		interactive: o.interactive,
		markPrinted: o.markPrinted,
	}
	t.BaseTask = o.base(t)
	return t
}

// NewPrintActTask prints an act and flags it as printed.
func NewPrintActTask(locator document.Locator, printer document.Printer, store object.Store,
	archetype string, opts ...TaskOption) *PrintTask {
	opts = append([]TaskOption{WithName("print-act"), WithMarkPrinted()}, opts...)
	return NewPrintTask(locator, printer, store, archetype, opts...)
}

// PrintedTo returns the printer of the last successful run.
func (t *PrintTask) PrintedTo() string {
	return t.printedTo
}

func (t *PrintTask) Start(ctx context.Context, tc *TaskContext) error {
	t.Begin()
	t.printedTo = ""
	obj, err := resolve(ctx, tc, t.store, t.object, object.Reference{}, t.archetype)
	if err != nil {
		return t.NotifyCancelledOnError(ctx, fmt.Errorf("print: %w", err))
	}
	tmpl, err := t.locator.Locate(ctx, obj.Archetype())
	if err != nil {
		return t.NotifyCancelledOnError(ctx, fmt.Errorf("print %s: %w", obj.Reference(), err))
	}
	job := document.Job{
		Template:    tmpl,
		Object:      obj,
		Interactive: t.interactive,
		AllowSkip:   !t.IsRequired(),
	}
	l := &printListener{t: t, obj: obj}
	if err := t.printer.Print(ctx, job, l); err != nil {
		if t.IsFinished() {
			return err
		}
		return t.NotifyCancelledOnError(ctx, fmt.Errorf("print %s: %w", obj.Reference(), err))
	}
	return nil
}

type printListener struct {
	t   *PrintTask
	obj *object.Object
}

func (p *printListener) Printed(ctx context.Context, printer string) error {
	p.t.printedTo = printer
	logger.From(ctx).Debug("printed", zap.String("object", p.obj.Reference().String()),
		zap.String("printer", printer))
	if p.t.markPrinted && !p.obj.Bool(PrintedNode) {
		p.obj.Set(PrintedNode, true)
		if err := p.t.store.Save(ctx, p.obj); err != nil {
			return p.t.NotifyCancelledOnError(ctx, fmt.Errorf("save %s: %w", p.obj.Reference(), err))
		}
	}
	return p.t.NotifyCompleted(ctx)
}

func (p *printListener) Cancelled(ctx context.Context) error {
	return p.t.NotifyCancelled(ctx)
}

func (p *printListener) Skipped(ctx context.Context) error {
	return p.t.NotifySkipped(ctx)
}

func (p *printListener) Failed(ctx context.Context, err error) error {
	return p.t.NotifyCancelledOnError(ctx, fmt.Errorf("print %s: %w", p.obj.Reference(), err))
}
