package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/jsprogd/jsprogd/internal/discovery"
	"github.com/jsprogd/jsprogd/internal/ipc"
	"github.com/jsprogd/jsprogd/internal/output"
	"github.com/jsprogd/jsprogd/internal/profile"
	"github.com/jsprogd/jsprogd/internal/reactor"
	"github.com/jsprogd/jsprogd/internal/registry"
	"github.com/jsprogd/jsprogd/internal/session"
	"github.com/jsprogd/jsprogd/internal/supervisor"
)

const devInputDir = "/dev/input"

func runDaemon(cmd *cobra.Command, args []string) error {
	baseLog, err := setupLogging()
	if err != nil {
		return err
	}
	log := logrus.NewEntry(baseLog)

	base, err := reactor.NewBase()
	if err != nil {
		return fmt.Errorf("start reactor: %w", err)
	}

	allKeyCodes := make([]uint16, 0, len(registry.AllKeyNames()))
	for code := range registry.AllKeyNames() {
		allKeyCodes = append(allKeyCodes, code)
	}
	out, err := output.Open(log, output.DevicePath, allKeyCodes)
	if err != nil {
		base.Close()
		return fmt.Errorf("open virtual output device: %w", err)
	}

	sup := supervisor.New(out, base, isJoystick, log)

	backend := &backendAdapter{sup: sup, base: base, log: log}
	facade := ipc.NewFacade(backend, log)
	sup.SetNotifier(&notifierAdapter{facade: facade})
	server, err := ipc.NewServer(facade, log)
	if err != nil {
		log.WithError(err).Warn("daemon: continuing without a session-bus IPC surface")
	} else {
		defer server.Close()
	}

	watcher, err := discovery.New(devInputDir, log)
	if err != nil {
		sup.Shutdown()
		return fmt.Errorf("watch %s: %w", devInputDir, err)
	}
	defer watcher.Close()

	go func() {
		for ev := range watcher.Events {
			sup.HandleHotplug(ev)
		}
	}()

	for _, path := range existingEventNodes() {
		if isJoystick(path) {
			if _, err := sup.Add(path); err != nil {
				log.WithError(err).WithField("path", path).Warn("daemon: failed to open device present at startup")
			}
		}
	}

	registerShutdownSignals(base, sup)

	log.Info("daemon: entering reactor loop")
	if err := base.Dispatch(); err != nil {
		sup.Shutdown()
		return fmt.Errorf("reactor loop: %w", err)
	}

	sup.Shutdown()
	return nil
}

func existingEventNodes() []string {
	entries, err := os.ReadDir(devInputDir)
	if err != nil {
		return nil
	}
	var paths []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "event") {
			paths = append(paths, filepath.Join(devInputDir, e.Name()))
		}
	}
	return paths
}

// registerShutdownSignals wires SIGINT/SIGTERM into the reactor as
// ordinary EvSignal events, so SIGTERM, a terminal Ctrl-C, and D-Bus exit()
// (backendAdapter.RequestExit) all converge on the same Base.Shutdown call;
// runDaemon shuts the supervisor down once Dispatch returns.
func registerShutdownSignals(base *reactor.Base, sup *supervisor.Supervisor) {
	shutdown := func(fd int, res uint32, arg interface{}) {
		base.Shutdown()
	}
	base.AddEvent(reactor.New(int(unix.SIGINT), reactor.EvSignal, shutdown, nil), 0)
	base.AddEvent(reactor.New(int(unix.SIGTERM), reactor.EvSignal, shutdown, nil), 0)
}

// notifierAdapter satisfies supervisor.ChangeNotifier by projecting a
// DeviceSnapshot into the wire-shaped arguments ipc.Facade's signal
// methods take, keeping internal/supervisor free of any ipc import.
type notifierAdapter struct {
	facade *ipc.Facade
}

func (n *notifierAdapter) NotifyKeyPressed(id int64, code uint16)  { n.facade.NotifyKeyPressed(id, code) }
func (n *notifierAdapter) NotifyKeyReleased(id int64, code uint16) { n.facade.NotifyKeyReleased(id, code) }
func (n *notifierAdapter) NotifyAxisChanged(id int64, code uint16, value int32) {
	n.facade.NotifyAxisChanged(id, code, value)
}

func (n *notifierAdapter) NotifyDeviceAdded(info supervisor.DeviceSnapshot) {
	n.facade.NotifyDeviceAdded(info.ID, info.Name, keyStatesOf(info.Keys), axisStatesOf(info.Axes))
}

func (n *notifierAdapter) NotifyDeviceRemoved(id int64) { n.facade.NotifyDeviceRemoved(id) }

// backendAdapter satisfies ipc.Backend by projecting supervisor state into
// the wire-shaped types the facade expects.
type backendAdapter struct {
	sup  *supervisor.Supervisor
	base *reactor.Base
	log  *logrus.Entry
}

func (b *backendAdapter) ListDevices() []ipc.DeviceInfo {
	var infos []ipc.DeviceInfo
	for _, id := range b.sup.List() {
		sess := b.sup.Session(id)
		if sess == nil {
			continue
		}
		infos = append(infos, deviceInfoOf(id, sess))
	}
	return infos
}

func deviceInfoOf(id int64, sess *session.Session) ipc.DeviceInfo {
	reg := sess.Registry()
	return ipc.DeviceInfo{
		ID:   id,
		Name: sess.Device().Name(),
		Keys: keyStatesOf(reg.Keys()),
		Axes: axisStatesOf(reg.Axes()),
	}
}

func keyStatesOf(keys []*registry.KeyControl) []ipc.KeyState {
	out := make([]ipc.KeyState, 0, len(keys))
	for _, k := range keys {
		out = append(out, ipc.KeyState{Code: k.Code, Pressed: k.Pressed})
	}
	return out
}

func axisStatesOf(axes []*registry.AxisControl) []ipc.AxisState {
	out := make([]ipc.AxisState, 0, len(axes))
	for _, a := range axes {
		out = append(out, ipc.AxisState{Code: a.Code, Value: a.Value, Min: a.Min, Max: a.Max})
	}
	return out
}

func (b *backendAdapter) LoadProfile(id int64, xmlDoc []byte) bool {
	sess := b.sup.Session(id)
	if sess == nil {
		return false
	}
	p, err := profile.Parse(xmlDoc)
	if err != nil {
		return false
	}
	bindings := make([]session.Binding, 0, len(p.Bindings))
	for _, bind := range p.Bindings {
		bindings = append(bindings, session.Binding{Type: bind.Type, Code: bind.Code, Body: bind.Body})
	}
	return sess.LoadProfile(p.Name, p.Prologue, bindings, p.Epilogue) == nil
}

func (b *backendAdapter) SetMonitoring(id int64, on bool) bool {
	sess := b.sup.Session(id)
	if sess == nil {
		return false
	}
	sess.SetMonitoring(on)
	return true
}

func (b *backendAdapter) RequestExit() {
	b.log.Info("daemon: exit requested over ipc")
	b.base.Shutdown()
}
