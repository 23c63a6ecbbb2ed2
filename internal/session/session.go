// Package session implements the device session (component F): the
// per-joystick bundle that owns its control registry, its script
// interpreter and scheduler, and the bookkeeping for synthetic
// (script-driven) key state layered over the raw device's own reported
// state.
package session

import (
	"fmt"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/jsprogd/jsprogd/internal/evdevio"
	"github.com/jsprogd/jsprogd/internal/output"
	"github.com/jsprogd/jsprogd/internal/reactor"
	"github.com/jsprogd/jsprogd/internal/registry"
	"github.com/jsprogd/jsprogd/internal/scheduler"
	"github.com/jsprogd/jsprogd/internal/script"
)

// Session is one open joystick: its device handle, its control table, and
// the script runtime bound to that table. ID is assigned by the device
// supervisor and is stable for the session's lifetime.
type Session struct {
	ID   int64
	log  *logrus.Entry
	dev  *evdevio.Device
	reg  *registry.Registry
	out  *output.Device
	base *reactor.Base

	state *script.State
	sched *scheduler.Scheduler

	profileName string
	monitoring  bool
}

// Open probes dev's capabilities into a fresh registry, grabs the device,
// and returns a session with no profile loaded yet (every control's
// handler is unbound until LoadProfile runs).
func Open(id int64, dev *evdevio.Device, out *output.Device, base *reactor.Base, log *logrus.Entry) (*Session, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("device", dev.Path())

	reg := registry.New()
	keyCodes, pressed, err := dev.KeyCapabilities()
	if err != nil {
		return nil, fmt.Errorf("probe keys: %w", err)
	}
	for _, code := range keyCodes {
		reg.AddKey(code, pressed[code])
	}

	axes, err := dev.AbsCapabilities()
	if err != nil {
		return nil, fmt.Errorf("probe axes: %w", err)
	}
	for _, a := range axes {
		reg.AddAxis(a.Code, a.Value, a.Min, a.Max)
	}

	if err := dev.Grab(); err != nil {
		log.WithError(err).Warn("session: exclusive grab failed, continuing ungrabbed")
	}

	s := &Session{ID: id, log: log, dev: dev, reg: reg, out: out, base: base}
	return s, nil
}

// Registry exposes the session's control table, e.g. for the event pump to
// apply incoming samples to.
func (s *Session) Registry() *registry.Registry { return s.reg }

// Device returns the underlying evdev handle.
func (s *Session) Device() *evdevio.Device { return s.dev }

// ProfileName is the currently loaded profile's identifying name, or "" if
// none has been loaded.
func (s *Session) ProfileName() string { return s.profileName }

// LoadProfile tears down any existing interpreter and installs a fresh one
// running the given prologue/per-control bodies/epilogue, per spec §4.F.
// Every control's cached handler name is cleared first so a control this
// profile does not bind reverts to pass-through.
func (s *Session) LoadProfile(name, prologue string, bindings []Binding, epilogue string) error {
	s.reg.ClearHandlerNames()
	if s.sched != nil {
		s.sched.Close()
	}
	if s.state != nil {
		s.state.Close()
	}

	state := script.New(nil, s.log)
	sched := scheduler.New(s.base, s.out, state, s.reg, s.log)
	state.SetHost(sched)

	scriptBindings := make([]script.Binding, 0, len(bindings))
	for _, b := range bindings {
		handler := registry.HandlerName(b.Type, b.Code)
		scriptBindings = append(scriptBindings, script.Binding{HandlerName: handler, Body: b.Body})
		s.reg.SetHandlerName(b.Type, b.Code)
	}

	if err := state.Load(prologue, scriptBindings, epilogue); err != nil {
		state.Close()
		s.state = nil
		s.sched = nil
		s.profileName = ""
		return fmt.Errorf("load profile %s: %w", name, err)
	}

	s.state = state
	s.sched = sched
	s.profileName = name
	return nil
}

// Binding is one control's raw script body from a parsed profile document,
// keyed by the control it is bound to.
type Binding struct {
	Type registry.ControlType
	Code uint16
	Body string
}

// Dispatch delivers one control transition to its bound handler, if any.
// No-op (pass-through) when the control has no handler installed, which is
// the state every control starts in before a profile loads one.
func (s *Session) Dispatch(t registry.ControlType, code uint16, value int32) {
	if s.state == nil || s.sched == nil {
		return
	}
	name := registry.HandlerName(t, code)
	fn := s.state.HandlerFunction(name)
	if fn == nil {
		return
	}
	s.sched.StartHandler(fn, lua.LNumber(int(t)), lua.LNumber(code), lua.LNumber(value))
}

// SetMonitoring records whether an IPC monitor is subscribed to this
// session. The flag is only recorded: control changes are handed to the
// supervisor's change notifier whether or not it is set.
func (s *Session) SetMonitoring(on bool) { s.monitoring = on }

// Monitoring reports the current monitor relay state.
func (s *Session) Monitoring() bool { return s.monitoring }

// Close destroys the session's interpreter, releases every synthetic key
// still held as a consequence of its tasks, and releases the device, per
// spec §3's "destruction releases every held synthetic key."
func (s *Session) Close() error {
	if s.sched != nil {
		s.sched.Close()
	}
	if s.state != nil {
		s.state.Close()
	}
	if err := s.dev.Release(); err != nil {
		s.log.WithError(err).Debug("session: release on close failed, ignoring")
	}
	return s.dev.Close()
}
