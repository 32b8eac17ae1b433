package taskchain

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyFinished = errors.New("task already finished")
	ErrRequiredSkipped = errors.New("required task skipped")
	ErrNoObject        = errors.New("no object to operate on")
	ErrUnknownTasks    = errors.New("unknown tasks")
	ErrNoArchetype     = errors.New("no archetype")
)

// ProtocolError reports a broken task lifecycle invariant. It is a programming
// error: it aborts the run and is never converted into a terminal event.
type ProtocolError struct {
	Task string
	Op   string
	Err  error
}

func (e *ProtocolError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op == "" {
		return fmt.Sprintf("task %s: %s", e.Task, e.Err)
	}
	return fmt.Sprintf("task %s: %s: %s", e.Task, e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// IsProtocolViolation reports whether err carries a ProtocolError.
func IsProtocolViolation(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
