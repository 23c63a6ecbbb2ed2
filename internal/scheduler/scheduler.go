package scheduler

import (
	"time"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/jsprogd/jsprogd/internal/output"
	"github.com/jsprogd/jsprogd/internal/reactor"
	"github.com/jsprogd/jsprogd/internal/script"
)

// ControlSource is the read side of the device's control registry, queried
// by is_key_pressed/get_abs/get_abs_min/get_abs_max. Implemented by
// *registry.Registry, which internal/session passes in.
type ControlSource interface {
	IsKeyPressed(code uint16) bool
	AbsValue(code uint16) int32
	AbsMin(code uint16) int32
	AbsMax(code uint16) int32
}

// Scheduler is one device's task scheduler: it owns every live coroutine
// spawned from that device's script.State, resumes them in response to
// control events and expired timers, and commits exactly one output batch
// per tick, per spec §4.E/§5.
type Scheduler struct {
	log      *logrus.Entry
	base     *reactor.Base
	out      *output.Device
	state    *script.State
	controls ControlSource

	tasks    map[int64]*Task
	nextID   int64
	runQueue []int64

	// held is the set of synthetic key codes currently pressed as a
	// consequence of this scheduler's tasks, per spec §3's per-session
	// held-key set. Released in full by Close.
	held map[uint16]bool
}

// New builds a scheduler bound to one device's reactor base, output sink,
// script state, and control registry. New does not touch state's host; the
// caller installs the Scheduler as state's script.Host with state.SetHost.
func New(base *reactor.Base, out *output.Device, state *script.State, controls ControlSource, log *logrus.Entry) *Scheduler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Scheduler{
		log:      log,
		base:     base,
		out:      out,
		state:    state,
		controls: controls,
		tasks:    make(map[int64]*Task),
	}
}

// --- script.Host ---

func (s *Scheduler) IsKeyPressed(code uint16) bool { return s.controls.IsKeyPressed(code) }
func (s *Scheduler) GetAbs(code uint16) int32      { return s.controls.AbsValue(code) }
func (s *Scheduler) GetAbsMin(code uint16) int32   { return s.controls.AbsMin(code) }
func (s *Scheduler) GetAbsMax(code uint16) int32   { return s.controls.AbsMax(code) }
func (s *Scheduler) PressKey(code uint16) {
	if s.held == nil {
		s.held = make(map[uint16]bool)
	}
	s.held[code] = true
	s.out.Press(code)
}

func (s *Scheduler) ReleaseKey(code uint16) {
	delete(s.held, code)
	s.out.Release(code)
}
func (s *Scheduler) MoveRel(code uint16, delta int32) {
	s.out.MoveRelative(code, delta)
}

// StartThread wraps fn in a fresh coroutine and appends it to the run
// queue: a drain already in progress runs it before that drain ends,
// otherwise the next drain does. Returns the new task's handle immediately without yielding
// the caller, matching spec §4.C's non-blocking start_thread.
func (s *Scheduler) StartThread(fn *lua.LFunction) int64 {
	id := s.nextID
	s.nextID++
	co, _ := s.state.L.NewThread()
	t := &Task{id: id, co: co, fn: fn, status: StatusRunnable}
	s.tasks[id] = t
	s.runQueue = append(s.runQueue, id)
	return id
}

// CancelDelay removes a sleeping task's pending timer and wakes it early
// with a false completion argument. Returns false if id names no
// currently-sleeping task.
func (s *Scheduler) CancelDelay(id int64) bool {
	t, ok := s.tasks[id]
	if !ok || t.status != StatusSleeping || !t.cancellable || t.delayEvent == nil {
		return false
	}
	s.base.DelEvent(t.delayEvent)
	t.delayEvent = nil
	t.resumeArgs = []lua.LValue{lua.LBool(false)}
	s.makeRunnable(t)
	return true
}

// JoinThread reports whether id names a task and, if so, whether it has
// already finished. The caller (luaJoinThread) only yields when ok is true
// and alreadyDone is false. Per spec §4.C, only one joiner per task is
// allowed; a task that already has a waiting joiner reports ok=false to a
// second attempt rather than queuing it alongside the first.
func (s *Scheduler) JoinThread(id int64) (alreadyDone, ok bool) {
	t, exists := s.tasks[id]
	if !exists {
		return false, false
	}
	if t.status == StatusDone {
		return true, true
	}
	if len(t.joiners) > 0 {
		return false, false
	}
	return false, true
}

// --- run loop ---

// StartHandler runs fn (a control's bound handler) as a brand new task and
// drains the run queue, committing one output batch at the end. This is
// the entry point the event pump uses to deliver a control transition.
func (s *Scheduler) StartHandler(fn *lua.LFunction, args ...lua.LValue) {
	id := s.nextID
	s.nextID++
	co, _ := s.state.L.NewThread()
	t := &Task{id: id, co: co, fn: fn, status: StatusRunnable, resumeArgs: args}
	s.tasks[id] = t
	s.runQueue = append(s.runQueue, id)
	s.drain()
}

// drain resumes every runnable task, possibly spawning more (start_thread)
// or putting others to sleep, until the queue is empty, then synchronizes
// the output device exactly once.
func (s *Scheduler) drain() {
	for len(s.runQueue) > 0 {
		id := s.runQueue[0]
		s.runQueue = s.runQueue[1:]
		t, ok := s.tasks[id]
		if !ok || t.status != StatusRunnable {
			continue
		}
		s.step(t)
	}
	s.out.Synchronize()
}

func (s *Scheduler) step(t *Task) {
	args := t.resumeArgs
	t.resumeArgs = nil

	state, err, values := s.state.L.Resume(t.co, t.fn, args...)
	switch state {
	case lua.ResumeYield:
		y := script.UnpackYield(values)
		s.handleYield(t, y)
	case lua.ResumeError:
		t.err = err
		if t.err != nil {
			s.log.WithError(t.err).WithField("task", t.id).Warn("scheduler: task exited with error")
		}
		s.finish(t)
	default: // lua.ResumeOK
		s.finish(t)
	}
}

func (s *Scheduler) handleYield(t *Task, y script.Yield) {
	switch y.Kind {
	case script.YieldDelay:
		t.status = StatusSleeping
		s.armDelay(t, y.Millis, false)
	case script.YieldCancellableDelay:
		t.status = StatusSleeping
		s.armDelay(t, y.Millis, true)
	case script.YieldJoin:
		target, ok := s.tasks[y.JoinID]
		if !ok || target.status == StatusDone {
			t.resumeArgs = []lua.LValue{lua.LBool(true)}
			s.makeRunnable(t)
			return
		}
		t.status = StatusWaitingJoin
		t.joinTarget = y.JoinID
		target.joiners = append(target.joiners, t.id)
	default:
		s.finish(t)
	}
}

func (s *Scheduler) armDelay(t *Task, millis int64, cancellable bool) {
	t.cancellable = cancellable
	ev := reactor.NewTimer(func(fd int, res uint32, arg interface{}) {
		task := arg.(*Task)
		task.delayEvent = nil
		if task.cancellable {
			task.resumeArgs = []lua.LValue{lua.LBool(true)}
		}
		s.makeRunnable(task)
		s.drain()
	}, t)
	t.delayEvent = ev
	s.base.AddEvent(ev, time.Duration(millis)*time.Millisecond)
}

func (s *Scheduler) makeRunnable(t *Task) {
	t.status = StatusRunnable
	s.runQueue = append(s.runQueue, t.id)
}

func (s *Scheduler) finish(t *Task) {
	t.status = StatusDone
	for _, joinerID := range t.joiners {
		joiner, ok := s.tasks[joinerID]
		if !ok || joiner.status != StatusWaitingJoin {
			continue
		}
		joiner.resumeArgs = []lua.LValue{lua.LBool(true)}
		s.makeRunnable(joiner)
	}
	t.joiners = nil
}

// Close tears the scheduler down: every task's outstanding reactor timer
// is removed from the shared base, and every synthetic key still held as
// a consequence of its tasks is released, per spec §3's "destroying a
// session drives the held-key set to 0 for every key" and §4.F's
// set_profile step (a), "delete all live tasks belonging to this
// session." Call this before discarding or replacing a scheduler; once
// called, the scheduler must not be stepped again.
func (s *Scheduler) Close() {
	for _, t := range s.tasks {
		if t.delayEvent != nil {
			s.base.DelEvent(t.delayEvent)
			t.delayEvent = nil
		}
	}
	s.tasks = make(map[int64]*Task)
	s.runQueue = nil
	s.releaseHeldKeys()
}

func (s *Scheduler) releaseHeldKeys() {
	if len(s.held) == 0 {
		return
	}
	for code := range s.held {
		s.out.Release(code)
	}
	s.held = nil
	s.out.Synchronize()
}

// Tasks returns every task the scheduler is currently tracking, live or
// finished, for diagnostics.
func (s *Scheduler) Tasks() []*Task {
	out := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out
}
