// Package fake provides scripted implementations of the interactive and
// document collaborators. Each fake answers from its script synchronously;
// once the script is exhausted, requests stay pending until closed by hand.
package fake

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/crochee/taskchain/document"
	"github.com/crochee/taskchain/object"
	"github.com/crochee/taskchain/ui"
)

var ErrNothingPending = errors.New("nothing pending")

// Popup answers dialogs with scripted actions.
type Popup struct {
	mutex   sync.Mutex
	script  []ui.Action
	Shown   []ui.Prompt
	pending []ui.ClosedFunc
}

func NewPopup(script ...ui.Action) *Popup {
	return &Popup{script: script}
}

func (p *Popup) Show(ctx context.Context, prompt ui.Prompt, closed ui.ClosedFunc) error {
	p.mutex.Lock()
	p.Shown = append(p.Shown, prompt)
	if len(p.script) == 0 {
		p.pending = append(p.pending, closed)
		p.mutex.Unlock()
		return nil
	}
	action := p.script[0]
	p.script = p.script[1:]
	p.mutex.Unlock()
	return closed(ctx, action)
}

// Pending returns the number of dialogs waiting to be closed.
func (p *Popup) Pending() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.pending)
}

// Close closes the oldest pending dialog with action.
func (p *Popup) Close(ctx context.Context, action ui.Action) error {
	p.mutex.Lock()
	if len(p.pending) == 0 {
		p.mutex.Unlock()
		return ErrNothingPending
	}
	closed := p.pending[0]
	p.pending = p.pending[1:]
	p.mutex.Unlock()
	return closed(ctx, action)
}

// Browser answers selections with scripted choices. A selection with action
// OK and no object picks the first candidate.
type Browser struct {
	mutex    sync.Mutex
	script   []ui.Selection
	Requests []ui.BrowseRequest
	pending  []pendingBrowse
}

type pendingBrowse struct {
	req    ui.BrowseRequest
	closed ui.SelectedFunc
}

func NewBrowser(script ...ui.Selection) *Browser {
	return &Browser{script: script}
}

func (b *Browser) Browse(ctx context.Context, req ui.BrowseRequest, closed ui.SelectedFunc) error {
	b.mutex.Lock()
	b.Requests = append(b.Requests, req)
	if len(b.script) == 0 {
		b.pending = append(b.pending, pendingBrowse{req: req, closed: closed})
		b.mutex.Unlock()
		return nil
	}
	s := b.script[0]
	b.script = b.script[1:]
	b.mutex.Unlock()
	return closed(ctx, pick(req, s))
}

// Close answers the oldest pending selection.
func (b *Browser) Close(ctx context.Context, s ui.Selection) error {
	b.mutex.Lock()
	if len(b.pending) == 0 {
		b.mutex.Unlock()
		return ErrNothingPending
	}
	p := b.pending[0]
	b.pending = b.pending[1:]
	b.mutex.Unlock()
	return p.closed(ctx, pick(p.req, s))
}

func pick(req ui.BrowseRequest, s ui.Selection) ui.Selection {
	if s.Action == ui.OK && s.Object == nil && len(req.Candidates) > 0 {
		s.Object = req.Candidates[0]
	}
	return s
}

// Chooser picks scripted options; an empty string dismisses the chooser.
type Chooser struct {
	mutex   sync.Mutex
	script  []string
	Offered [][]string
}

func NewChooser(script ...string) *Chooser {
	return &Chooser{script: script}
}

func (c *Chooser) Choose(ctx context.Context, _ string, options []string, closed ui.ChosenFunc) error {
	c.mutex.Lock()
	c.Offered = append(c.Offered, options)
	if len(c.script) == 0 {
		c.mutex.Unlock()
		return closed(ctx, "", false)
	}
	choice := c.script[0]
	c.script = c.script[1:]
	c.mutex.Unlock()
	return closed(ctx, choice, choice != "")
}

// Editors builds editors saving to Store. Invalid marks archetypes whose
// objects fail validation.
type Editors struct {
	Store   object.Store
	Invalid map[string]error
	Built   int
}

func (e *Editors) NewEditor(_ context.Context, obj *object.Object) (ui.Editor, error) {
	e.Built++
	return &Editor{obj: obj, store: e.Store, invalid: e.Invalid[obj.Archetype()]}, nil
}

type Editor struct {
	obj     *object.Object
	store   object.Store
	invalid error
	Saves   int
}

func (e *Editor) Object() *object.Object {
	return e.obj
}

func (e *Editor) Validate(context.Context) error {
	return e.invalid
}

func (e *Editor) Save(ctx context.Context) error {
	e.Saves++
	return e.store.Save(ctx, e.obj)
}

// Outcome is a scripted print result: "printed", "cancelled", "skipped",
// "failed" or "error" (Print itself fails).
type Outcome string

// Printer reports scripted outcomes.
type Printer struct {
	mutex   sync.Mutex
	script  []Outcome
	Name    string
	Jobs    []document.Job
	pending []document.PrintListener
}

func NewPrinter(script ...Outcome) *Printer {
	return &Printer{script: script, Name: "front-desk"}
}

func (p *Printer) Print(ctx context.Context, job document.Job, l document.PrintListener) error {
	p.mutex.Lock()
	p.Jobs = append(p.Jobs, job)
	if len(p.script) == 0 {
		p.pending = append(p.pending, l)
		p.mutex.Unlock()
		return nil
	}
	outcome := p.script[0]
	p.script = p.script[1:]
	p.mutex.Unlock()
	return p.report(ctx, l, outcome)
}

// Complete reports outcome for the oldest pending job.
func (p *Printer) Complete(ctx context.Context, outcome Outcome) error {
	p.mutex.Lock()
	if len(p.pending) == 0 {
		p.mutex.Unlock()
		return ErrNothingPending
	}
	l := p.pending[0]
	p.pending = p.pending[1:]
	p.mutex.Unlock()
	return p.report(ctx, l, outcome)
}

func (p *Printer) report(ctx context.Context, l document.PrintListener, outcome Outcome) error {
	switch outcome {
	case "printed":
		return l.Printed(ctx, p.Name)
	case "cancelled":
		return l.Cancelled(ctx)
	case "skipped":
		return l.Skipped(ctx)
	case "failed":
		return l.Failed(ctx, errors.New("printer offline"))
	case "error":
		return errors.New("no printer configured")
	default:
		return fmt.Errorf("unknown outcome %q", outcome)
	}
}
