package taskchain

// EventType is the kind of terminal event a task raises.
type EventType uint8

const (
	Completed EventType = 1 + iota
	Skipped
	Cancelled
)

func (e EventType) String() string {
	switch e {
	case Completed:
		return "completed"
	case Skipped:
		return "skipped"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (e EventType) state() State {
	switch e {
	case Completed:
		return StateCompleted
	case Skipped:
		return StateSkipped
	default:
		return StateCancelled
	}
}

// TaskEvent is the terminal notification of a task run.
type TaskEvent struct {
	typ    EventType
	source Task
}

func NewTaskEvent(typ EventType, source Task) *TaskEvent {
	return &TaskEvent{typ: typ, source: source}
}

func (e *TaskEvent) Type() EventType {
	return e.typ
}

func (e *TaskEvent) Source() Task {
	return e.source
}
