// Package ipc implements the IPC facade (component I): a session-bus
// object exposing device enumeration, profile loading, monitor
// subscriptions, and orderly shutdown, plus the change signals the source
// project's DBusAdaptor/DBusHandler split emitted. Split the same way
// here: Facade holds the exported method surface bus clients call, Server
// owns the bus connection and forwards emitted signals.
package ipc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"

	"github.com/jsprogd/jsprogd/internal/profile"
)

const (
	busName      = "hu.varadiistvan.JSProg"
	objectPath   = dbus.ObjectPath("/hu/varadiistvan/JSProg")
	ifaceName    = "hu.varadiistvan.JSProg"
	listenerFace = "hu.varadiistvan.JSProgListener"
)

// KeyState is one key control's shape in list_devices/device_added.
type KeyState struct {
	Code    uint16
	Pressed bool
}

// AxisState is one axis control's shape in list_devices/device_added.
type AxisState struct {
	Code           uint16
	Value, Min, Max int32
}

// DeviceInfo is one session's full snapshot, matching list_devices' tuple
// shape from spec §4.I.
type DeviceInfo struct {
	ID                             int64
	Bus, Vendor, Product, Version  uint16
	Name, Phys, Uniq               string
	Keys                           []KeyState
	Axes                           []AxisState
}

// Backend is the core the facade drives; implemented by a thin adapter
// over internal/supervisor + internal/session in cmd/jsprogd.
type Backend interface {
	ListDevices() []DeviceInfo
	LoadProfile(id int64, xmlDoc []byte) bool
	SetMonitoring(id int64, on bool) bool
	RequestExit()
}

type listenerKey struct {
	id   int64
	path dbus.ObjectPath
}

// Server owns the bus connection and the exported object. Facade
// implements the actual method bodies; Server is the thin transport shell
// around it, mirroring the source's DBusHandler/DBusAdaptor split.
type Server struct {
	log    *logrus.Entry
	conn   *dbus.Conn
	facade *Facade
}

// Facade is the method surface: everything list_devices/load_profile/
// start_monitor/stop_monitor/exit actually do, independent of the bus
// transport, so it can be unit tested without a real session bus.
type Facade struct {
	log     *logrus.Entry
	backend Backend
	conn    *dbus.Conn // nil in tests; used only to emit signals/watch names

	mu        sync.Mutex
	listeners map[listenerKey]string // listener -> caller unique bus name
}

// NewFacade builds a facade with no bus connection attached; conn is
// filled in by NewServer once the connection is established, so signal
// emission and listener callers can be reached.
func NewFacade(backend Backend, log *logrus.Entry) *Facade {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Facade{log: log, backend: backend, listeners: make(map[listenerKey]string)}
}

// ListDevices implements the exported method of the same name.
func (f *Facade) ListDevices() ([]DeviceInfo, *dbus.Error) {
	return f.backend.ListDevices(), nil
}

// LoadProfile parses and installs a profile, per spec §4.I/§4.F.
func (f *Facade) LoadProfile(id int64, xmlDoc string) (bool, *dbus.Error) {
	if _, err := profile.Parse([]byte(xmlDoc)); err != nil {
		f.log.WithError(err).WithField("id", id).Warn("ipc: load_profile received malformed xml")
		return false, nil
	}
	return f.backend.LoadProfile(id, []byte(xmlDoc)), nil
}

// StartMonitor subscribes listenerPath to control-change signals for
// device id. The listener is called back at the message's own sender;
// callerName is accepted but not used.
func (f *Facade) StartMonitor(id int64, callerName string, listenerPath dbus.ObjectPath, sender dbus.Sender) (bool, *dbus.Error) {
	if !f.backend.SetMonitoring(id, true) {
		return false, nil
	}
	f.mu.Lock()
	f.listeners[listenerKey{id, listenerPath}] = string(sender)
	f.mu.Unlock()
	return true, nil
}

// StopMonitor unsubscribes a previously registered listener.
func (f *Facade) StopMonitor(id int64, listenerPath dbus.ObjectPath) *dbus.Error {
	f.mu.Lock()
	delete(f.listeners, listenerKey{id, listenerPath})
	remaining := f.anyListenerFor(id)
	f.mu.Unlock()
	if !remaining {
		f.backend.SetMonitoring(id, false)
	}
	return nil
}

func (f *Facade) anyListenerFor(id int64) bool {
	for k := range f.listeners {
		if k.id == id {
			return true
		}
	}
	return false
}

// Exit requests orderly daemon shutdown.
func (f *Facade) Exit() *dbus.Error {
	f.backend.RequestExit()
	return nil
}

// emitToListeners calls the given method on every listener subscribed to
// id, dropping any listener whose call errors (spec §4.I: "emission
// errors on a listener cause that listener to be dropped").
func (f *Facade) emitToListeners(id int64, method string, args ...interface{}) {
	if f.conn == nil {
		return
	}
	f.mu.Lock()
	var dead []listenerKey
	targets := make(map[listenerKey]string, len(f.listeners))
	for k, caller := range f.listeners {
		if k.id == id {
			targets[k] = caller
		}
	}
	f.mu.Unlock()

	for k, caller := range targets {
		obj := f.conn.Object(caller, k.path)
		call := obj.Call(listenerFace+"."+method, 0, args...)
		if call.Err != nil {
			f.log.WithError(call.Err).WithField("listener", k.path).Warn("ipc: dropping listener after emission error")
			dead = append(dead, k)
		}
	}
	if len(dead) > 0 {
		f.mu.Lock()
		for _, k := range dead {
			delete(f.listeners, k)
		}
		f.mu.Unlock()
	}
}

// NotifyKeyPressed and its siblings are the entry points the rest of the
// daemon calls to fan a control change out to subscribed listeners and as
// a bus signal.
func (f *Facade) NotifyKeyPressed(id int64, code uint16) {
	f.emitToListeners(id, "KeyPressed", id, code)
	f.emitSignal("key_pressed", id, code)
}

func (f *Facade) NotifyKeyReleased(id int64, code uint16) {
	f.emitToListeners(id, "KeyReleased", id, code)
	f.emitSignal("key_released", id, code)
}

func (f *Facade) NotifyAxisChanged(id int64, code uint16, value int32) {
	f.emitToListeners(id, "AxisChanged", id, code, value)
	f.emitSignal("axis_changed", id, code, value)
}

// NotifyDeviceAdded emits device_added with the same tuple shape a
// list_devices row has, so a listener never needs a follow-up call to
// learn what appeared.
func (f *Facade) NotifyDeviceAdded(id int64, name string, keys []KeyState, axes []AxisState) {
	f.emitSignal("device_added", DeviceInfo{ID: id, Name: name, Keys: keys, Axes: axes})
}

func (f *Facade) NotifyDeviceRemoved(id int64) {
	f.emitSignal("device_removed", id)
}

func (f *Facade) emitSignal(name string, args ...interface{}) {
	if f.conn == nil {
		return
	}
	if err := f.conn.Emit(objectPath, ifaceName+"."+name, args...); err != nil {
		f.log.WithError(err).WithField("signal", name).Warn("ipc: signal emission failed")
	}
}

// NewServer connects to the session bus, requests the daemon's well-known
// name, and exports facade at the fixed object path.
func NewServer(facade *Facade, log *logrus.Entry) (*Server, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("request name %s: %w", busName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, errors.New("ipc: bus name already owned by another process")
	}

	facade.conn = conn
	if err := conn.Export(facade, objectPath, ifaceName); err != nil {
		conn.Close()
		return nil, fmt.Errorf("export facade: %w", err)
	}

	return &Server{log: log, conn: conn, facade: facade}, nil
}

// Close releases the bus connection.
func (s *Server) Close() error {
	return s.conn.Close()
}
