// Package document declares the template and print collaborators used by the
// print tasks.
package document

import (
	"context"
	"errors"

	"github.com/crochee/taskchain/object"
)

var ErrNoTemplate = errors.New("no document template")

// Template is a document template bound to an archetype.
type Template struct {
	Name      string
	Archetype string
	Content   string
}

// Locator finds the template for an archetype.
type Locator interface {
	Locate(ctx context.Context, archetype string) (*Template, error)
}

// Job is a single print request.
type Job struct {
	Template    *Template
	Object      *object.Object
	Interactive bool
	AllowSkip   bool
}

// PrintListener receives exactly one outcome of a print job.
type PrintListener interface {
	Printed(ctx context.Context, printer string) error
	Cancelled(ctx context.Context) error
	Skipped(ctx context.Context) error
	Failed(ctx context.Context, err error) error
}

// Printer prints jobs. The outcome may be reported before Print returns or later.
type Printer interface {
	Print(ctx context.Context, job Job, listener PrintListener) error
}

// MapLocator locates templates from a fixed map keyed by archetype.
type MapLocator map[string]*Template

func (m MapLocator) Locate(_ context.Context, archetype string) (*Template, error) {
	t, ok := m[archetype]
	if !ok {
		return nil, ErrNoTemplate
	}
	return t, nil
}
