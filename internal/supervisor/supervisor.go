// Package supervisor implements the device supervisor (component H): the
// registry of live sessions keyed by a monotonically increasing id, and
// the convergence logic that reacts to hotplug notices by opening or
// tearing down sessions.
package supervisor

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jsprogd/jsprogd/internal/discovery"
	"github.com/jsprogd/jsprogd/internal/evdevio"
	"github.com/jsprogd/jsprogd/internal/output"
	"github.com/jsprogd/jsprogd/internal/pump"
	"github.com/jsprogd/jsprogd/internal/reactor"
	"github.com/jsprogd/jsprogd/internal/registry"
	"github.com/jsprogd/jsprogd/internal/session"
)

// ChangeNotifier is told about every surviving control transition, so the
// IPC facade can fan it out as a signal/listener callback independent of
// whatever the session's own script handler does with it.
type ChangeNotifier interface {
	NotifyKeyPressed(id int64, code uint16)
	NotifyKeyReleased(id int64, code uint16)
	NotifyAxisChanged(id int64, code uint16, value int32)
	NotifyDeviceAdded(info DeviceSnapshot)
	NotifyDeviceRemoved(id int64)
}

// DeviceSnapshot is the device_added signal's payload: the same row shape
// as a list_devices entry, so the facade can forward it without
// re-deriving it from the registry a second time.
type DeviceSnapshot struct {
	ID   int64
	Name string
	Keys []*registry.KeyControl
	Axes []*registry.AxisControl
}

// JoystickPredicate reports whether a device node at path is a joystick
// this daemon should manage, versus a keyboard, mouse, or other input node
// also living under /dev/input.
type JoystickPredicate func(path string) bool

// Supervisor owns every open session and the shared output device and
// reactor base they run against.
type Supervisor struct {
	log        *logrus.Entry
	out        *output.Device
	base       *reactor.Base
	isJoystick JoystickPredicate
	notifier   ChangeNotifier

	mu       sync.Mutex
	sessions map[int64]*session.Session
	pumps    map[int64]*pump.Pump
	byPath   map[string]int64
	nextID   int64
}

// SetNotifier installs the change notifier used to fan out control
// transitions. Optional; nil means no fan-out, only the session's own
// script handler runs.
func (sup *Supervisor) SetNotifier(n ChangeNotifier) { sup.notifier = n }

// New builds a supervisor. out and base are shared by every session it
// opens (spec §5: one virtual output device, one reactor, for the whole
// daemon).
func New(out *output.Device, base *reactor.Base, isJoystick JoystickPredicate, log *logrus.Entry) *Supervisor {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Supervisor{
		log:        log,
		out:        out,
		base:       base,
		isJoystick: isJoystick,
		sessions:   make(map[int64]*session.Session),
		pumps:      make(map[int64]*pump.Pump),
		byPath:     make(map[string]int64),
	}
}

// HandleHotplug reacts to one discovery event: opening a new session for
// an appeared joystick, or tearing down and removing one whose device
// disappeared.
func (sup *Supervisor) HandleHotplug(ev discovery.Event) {
	if ev.Removed {
		sup.removeByPath(ev.Path)
		return
	}
	if !sup.isJoystick(ev.Path) {
		return
	}
	if _, err := sup.Add(ev.Path); err != nil {
		sup.log.WithError(err).WithField("path", ev.Path).Warn("supervisor: failed to open new device")
	}
}

// Add opens path as a new session, assigns it the next id, and registers
// its event pump on the shared reactor base so its reads run on the same
// single dispatch thread as every other component.
func (sup *Supervisor) Add(path string) (int64, error) {
	sup.mu.Lock()
	if _, exists := sup.byPath[path]; exists {
		sup.mu.Unlock()
		return 0, fmt.Errorf("device %s already open", path)
	}
	id := sup.nextID
	sup.nextID++
	sup.mu.Unlock()

	dev, err := evdevio.Open(path)
	if err != nil {
		return 0, err
	}

	sess, err := session.Open(id, dev, sup.out, sup.base, sup.log)
	if err != nil {
		dev.Close()
		return 0, err
	}

	sup.mu.Lock()
	sup.sessions[id] = sess
	sup.byPath[path] = id
	sup.mu.Unlock()

	target := pump.Target(sess)
	if sup.notifier != nil {
		target = &notifyingTarget{Session: sess, id: id, notifier: sup.notifier}
		sup.notifier.NotifyDeviceAdded(deviceSnapshotOf(id, sess))
	}
	p := pump.New(dev, target, func() { sup.Remove(id) }, sup.log)
	if err := p.Register(sup.base); err != nil {
		sup.mu.Lock()
		delete(sup.sessions, id)
		delete(sup.byPath, path)
		sup.mu.Unlock()
		sess.Close()
		return 0, fmt.Errorf("register device fd with reactor: %w", err)
	}

	sup.mu.Lock()
	sup.pumps[id] = p
	sup.mu.Unlock()

	sup.log.WithField("path", path).WithField("id", id).Info("supervisor: device session opened")
	return id, nil
}

func deviceSnapshotOf(id int64, sess *session.Session) DeviceSnapshot {
	reg := sess.Registry()
	return DeviceSnapshot{
		ID:   id,
		Name: sess.Device().Name(),
		Keys: reg.Keys(),
		Axes: reg.Axes(),
	}
}

// notifyingTarget fans a control transition out to the change notifier in
// addition to running the session's own script handler.
type notifyingTarget struct {
	*session.Session
	id       int64
	notifier ChangeNotifier
}

func (t *notifyingTarget) Dispatch(ctrl registry.ControlType, code uint16, value int32) {
	switch ctrl {
	case registry.Key:
		if value != 0 {
			t.notifier.NotifyKeyPressed(t.id, code)
		} else {
			t.notifier.NotifyKeyReleased(t.id, code)
		}
	case registry.Axis:
		t.notifier.NotifyAxisChanged(t.id, code, value)
	}
	t.Session.Dispatch(ctrl, code, value)
}

// Remove tears down and forgets the session with the given id. Safe to
// call more than once (e.g. both from a read error and from an explicit
// hotplug removal notice racing each other).
func (sup *Supervisor) Remove(id int64) {
	sup.mu.Lock()
	sess, ok := sup.sessions[id]
	if !ok {
		sup.mu.Unlock()
		return
	}
	p := sup.pumps[id]
	delete(sup.sessions, id)
	delete(sup.pumps, id)
	for path, sid := range sup.byPath {
		if sid == id {
			delete(sup.byPath, path)
			break
		}
	}
	sup.mu.Unlock()

	if p != nil {
		p.Close()
	}
	if err := sess.Close(); err != nil {
		sup.log.WithError(err).WithField("id", id).Debug("supervisor: session close reported an error")
	}
	if sup.notifier != nil {
		sup.notifier.NotifyDeviceRemoved(id)
	}
	sup.log.WithField("id", id).Info("supervisor: device session closed")
}

func (sup *Supervisor) removeByPath(path string) {
	sup.mu.Lock()
	id, ok := sup.byPath[path]
	sup.mu.Unlock()
	if !ok {
		return
	}
	sup.Remove(id)
}

// Session returns the session for id, or nil if none is open.
func (sup *Supervisor) Session(id int64) *session.Session {
	sup.mu.Lock()
	defer sup.mu.Unlock()
	return sup.sessions[id]
}

// List returns every currently open session's id, in no particular order.
func (sup *Supervisor) List() []int64 {
	sup.mu.Lock()
	defer sup.mu.Unlock()
	ids := make([]int64, 0, len(sup.sessions))
	for id := range sup.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown tears down every open session, then the shared output device
// and reactor base, in that order, per spec §5's structured-release
// discipline.
func (sup *Supervisor) Shutdown() {
	for _, id := range sup.List() {
		sup.Remove(id)
	}
	if err := sup.out.Close(); err != nil {
		sup.log.WithError(err).Warn("supervisor: output device close reported an error")
	}
	if err := sup.base.Close(); err != nil {
		sup.log.WithError(err).Warn("supervisor: reactor close reported an error")
	}
}
