// Package scheduler implements the task scheduler (component E): the
// cooperative run loop that steps script coroutines, honors their typed
// yields (delay, cancellable delay, join), and commits one output batch
// per tick.
package scheduler

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/jsprogd/jsprogd/internal/reactor"
)

// Status is a task's place in the scheduler's bookkeeping.
type Status int

const (
	StatusRunnable Status = iota
	StatusSleeping
	StatusWaitingJoin
	StatusDone
)

// Task is one running (or suspended) script coroutine. Created by the
// Scheduler in response to start_thread, or implicitly for a control
// handler invocation.
type Task struct {
	id     int64
	co     *lua.LState
	fn     *lua.LFunction
	status Status

	// resumeArgs are the values handed back into the coroutine on its
	// next Resume call; nil means "resume with no arguments" (the normal
	// case for a delay that simply expired).
	resumeArgs []lua.LValue

	// delayEvent is set while Status == StatusSleeping, for any delay kind;
	// kept so a scheduler teardown can find and remove every outstanding
	// timer regardless of whether it is cancellable from script code.
	delayEvent *reactor.Event

	// cancellable records whether this delay was started as delay(ms, true);
	// only such a delay may be cut short by cancel_delay.
	cancellable bool

	// joinTarget is the task id this task is blocked joining, valid only
	// while Status == StatusWaitingJoin.
	joinTarget int64

	// joiners lists tasks blocked in join_thread waiting on this one.
	joiners []int64

	err error
}

// ID returns the task's scheduler-assigned handle, the same integer handed
// back to script code from start_thread.
func (t *Task) ID() int64 { return t.id }

// Done reports whether the task has finished, successfully or not.
func (t *Task) Done() bool { return t.status == StatusDone }

// Err returns the error a task's coroutine exited with, if any.
func (t *Task) Err() error { return t.err }
