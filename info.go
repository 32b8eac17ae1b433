package taskchain

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

type State string

const (
	StateReady     State = "ready"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateSkipped   State = "skipped"
	StateCancelled State = "cancelled"
)

// Info describes one task instance.
type Info interface {
	ID() string
	Name() string
	State() State
	CreateTime() time.Time
	UpdateTime() time.Time
	Error() error

	SetName(string)
	SetState(State)
	AddError(err error)
	ResetError()
}

func DefaultTaskInfo(name string, f ...func() time.Time) Info {
	nowFunc := time.Now
	if len(f) > 0 {
		nowFunc = f[0]
	}

	d := &defaultTaskInfo{
		id:      uuid.NewString(),
		nowFunc: nowFunc,
	}
	now := d.nowFunc()
	d.createTime = now
	d.updateTime.Store(now)
	d.name.Store(name)
	d.state.Store(StateReady)
	return d
}

type defaultTaskInfo struct {
	id         string
	nowFunc    func() time.Time
	name       atomic.Value
	state      atomic.Value
	createTime time.Time
	updateTime atomic.Value
	err        atomic.Value
}

// errBox keeps atomic.Value stores of a single concrete type.
type errBox struct {
	err error
}

func (d *defaultTaskInfo) ID() string {
	return d.id
}

func (d *defaultTaskInfo) Name() string {
	v, _ := d.name.Load().(string)
	return v
}

func (d *defaultTaskInfo) State() State {
	v, _ := d.state.Load().(State)
	return v
}

func (d *defaultTaskInfo) CreateTime() time.Time {
	return d.createTime
}

func (d *defaultTaskInfo) UpdateTime() time.Time {
	v, _ := d.updateTime.Load().(time.Time)
	return v
}

func (d *defaultTaskInfo) Error() error {
	v, _ := d.err.Load().(errBox)
	return v.err
}

func (d *defaultTaskInfo) SetName(name string) {
	d.name.Store(name)
	d.updateTime.Store(d.nowFunc())
}

func (d *defaultTaskInfo) SetState(state State) {
	d.state.Store(state)
	d.updateTime.Store(d.nowFunc())
}

func (d *defaultTaskInfo) AddError(err error) {
	if err == nil {
		return
	}
	d.err.Store(errBox{multierr.Append(d.Error(), err)})
	d.updateTime.Store(d.nowFunc())
}

func (d *defaultTaskInfo) ResetError() {
	d.err.Store(errBox{})
}
