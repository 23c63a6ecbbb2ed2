// Package script hosts the embedded scripting runtime (component C): one
// isolated interpreter per device, exposing a fixed set of host callbacks
// and translating the language's coroutine yields into the tagged variant
// the scheduler understands.
//
// yuin/gopher-lua is used as the embedded VM. It is a pure-Go
// implementation, so unlike the C++ original's embedded interpreter there
// is no separate "keep this thread alive" bookkeeping to do: a suspended
// coroutine stays reachable for as long as the scheduler's Task struct
// holds its *lua.LState, and Go's own GC takes it from there.
package script

import (
	"fmt"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/jsprogd/jsprogd/internal/registry"
)

// YieldKind tags what a task yielded control for. Concrete type replacing
// the two untyped stack slots the source used, per the spec's Design Notes.
type YieldKind int

const (
	YieldNone YieldKind = iota
	YieldDelay
	YieldCancellableDelay
	YieldJoin
)

// Yield is the payload a suspended coroutine hands back to its resumer.
type Yield struct {
	Kind   YieldKind
	Millis int64
	JoinID int64
}

// Host is the callback surface a Script State reaches back into: control
// state, the virtual output device, and task lifecycle. Implemented by
// internal/scheduler, which is the only component that knows how to place
// a new task in the run queue or resolve a join.
type Host interface {
	IsKeyPressed(code uint16) bool
	GetAbs(code uint16) int32
	GetAbsMin(code uint16) int32
	GetAbsMax(code uint16) int32
	PressKey(code uint16)
	ReleaseKey(code uint16)
	MoveRel(code uint16, delta int32)
	StartThread(fn *lua.LFunction) int64
	CancelDelay(id int64) bool
	JoinThread(id int64) (alreadyDone, ok bool)
}

// State is one device's isolated interpreter. Fully torn down and rebuilt
// on every profile load (spec §4.C/§4.F): no user global survives a
// reload.
type State struct {
	L    *lua.LState
	host Host
	log  *logrus.Entry
}

// New creates a fresh interpreter and installs the fixed callback surface
// plus the symbolic key/axis/rel constants.
func New(host Host, log *logrus.Entry) *State {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &State{L: lua.NewState(), host: host, log: log}
	s.installCallbacks()
	s.installConstants()
	return s
}

// SetHost rebinds the callback surface's host. Scheduler and State have a
// circular dependency (the scheduler needs a *State to run coroutines on,
// the state's callbacks need the scheduler as their Host), so New leaves
// host possibly nil and the caller wires it in afterward.
func (s *State) SetHost(host Host) { s.host = host }

// Close tears down the interpreter. Safe on an already-closed State.
func (s *State) Close() {
	if s.L != nil {
		s.L.Close()
		s.L = nil
	}
}

// Load compiles and runs prologue + one wrapper function per binding +
// epilogue, in that order, as a single chunk. A non-nil error means a
// compile or top-level runtime error, per spec §4.F/§7. Load does not reset
// the interpreter on error: whatever the chunk defined before failing stays
// in place (session.LoadProfile closes and drops such a State).
func (s *State) Load(prologue string, bindings []Binding, epilogue string) error {
	var b []byte
	b = append(b, prologue...)
	b = append(b, '\n')
	for _, bind := range bindings {
		fmt.Fprintf(&byteWriter{&b}, "function %s(type, code, value)\n%s\nend\n", bind.HandlerName, bind.Body)
	}
	b = append(b, epilogue...)

	return s.L.DoString(string(b))
}

// Binding is one control's compiled handler slot: the canonical handler
// name it will be installed under and the raw script body a profile
// supplied for it.
type Binding struct {
	HandlerName string
	Body        string
}

// HandlerFunction looks up an installed global handler function by name,
// or nil if the profile did not bind one.
func (s *State) HandlerFunction(name string) *lua.LFunction {
	if name == "" {
		return nil
	}
	v := s.L.GetGlobal(name)
	fn, ok := v.(*lua.LFunction)
	if !ok {
		return nil
	}
	return fn
}

func (s *State) installConstants() {
	for code, name := range registry.AllKeyNames() {
		s.L.SetGlobal(name, lua.LNumber(code))
	}
	for code, name := range registry.AllAxisNames() {
		s.L.SetGlobal(name, lua.LNumber(code))
	}
	for code, name := range registry.RelNames {
		s.L.SetGlobal(name, lua.LNumber(code))
	}
}

type byteWriter struct{ buf *[]byte }

func (w *byteWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}
