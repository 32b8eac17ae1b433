// Package ui declares the interactive surfaces tasks suspend on. Every surface
// returns as soon as it is shown and reports its outcome later through a
// single close callback.
package ui

import (
	"context"

	"github.com/crochee/taskchain/object"
)

// Action is the button a surface was closed with.
type Action string

const (
	OK     Action = "ok"
	Cancel Action = "cancel"
	Skip   Action = "skip"
	Yes    Action = "yes"
	No     Action = "no"
	Create Action = "create"
)

// Prompt describes a modal dialog.
type Prompt struct {
	Title   string
	Message string
	Buttons []Action
	// Content is the component hosted by the dialog, e.g. an Editor.
	Content interface{}
}

// ClosedFunc receives the action a dialog was closed with.
type ClosedFunc func(ctx context.Context, action Action) error

// Popup presents modal dialogs.
type Popup interface {
	Show(ctx context.Context, prompt Prompt, closed ClosedFunc) error
}

// BrowseRequest describes a selection dialog.
type BrowseRequest struct {
	Title       string
	Archetypes  []string
	Candidates  []*object.Object
	AllowCreate bool
	AllowSkip   bool
}

// Selection is the outcome of a browse. Object is set when Action is OK.
type Selection struct {
	Action Action
	Object *object.Object
}

// SelectedFunc receives the outcome of a browse.
type SelectedFunc func(ctx context.Context, selection Selection) error

// Browser presents candidate objects for selection.
type Browser interface {
	Browse(ctx context.Context, req BrowseRequest, closed SelectedFunc) error
}

// ChosenFunc receives the chosen option, ok is false when the chooser was dismissed.
type ChosenFunc func(ctx context.Context, choice string, ok bool) error

// Chooser asks the user to pick one of several options, e.g. an archetype to create.
type Chooser interface {
	Choose(ctx context.Context, title string, options []string, closed ChosenFunc) error
}

// Editor edits a single object.
type Editor interface {
	Object() *object.Object
	Validate(ctx context.Context) error
	Save(ctx context.Context) error
}

// EditorFactory builds editors for objects.
type EditorFactory interface {
	NewEditor(ctx context.Context, obj *object.Object) (Editor, error)
}
