package ipc

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	devices       []DeviceInfo
	loaded        map[int64][]byte
	monitoring    map[int64]bool
	exitRequested bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{loaded: map[int64][]byte{}, monitoring: map[int64]bool{}}
}

func (b *fakeBackend) ListDevices() []DeviceInfo { return b.devices }
func (b *fakeBackend) LoadProfile(id int64, xmlDoc []byte) bool {
	b.loaded[id] = xmlDoc
	return true
}
func (b *fakeBackend) SetMonitoring(id int64, on bool) bool {
	b.monitoring[id] = on
	return true
}
func (b *fakeBackend) RequestExit() { b.exitRequested = true }

func TestLoadProfileRejectsMalformedXML(t *testing.T) {
	f := NewFacade(newFakeBackend(), nil)
	ok, dErr := f.LoadProfile(1, "<not-closed>")
	require.Nil(t, dErr)
	require.False(t, ok)
}

func TestLoadProfileAcceptsWellFormedXML(t *testing.T) {
	backend := newFakeBackend()
	f := NewFacade(backend, nil)
	ok, dErr := f.LoadProfile(1, `<profile><control type="key" code="0x1e">press_key(KEY_A)</control></profile>`)
	require.Nil(t, dErr)
	require.True(t, ok)
	require.Contains(t, backend.loaded, int64(1))
}

func TestStartStopMonitorTracksListeners(t *testing.T) {
	backend := newFakeBackend()
	f := NewFacade(backend, nil)

	ok, dErr := f.StartMonitor(1, "caller", dbus.ObjectPath("/listener"), dbus.Sender(":1.23"))
	require.Nil(t, dErr)
	require.True(t, ok)
	require.True(t, backend.monitoring[1])

	dErr = f.StopMonitor(1, dbus.ObjectPath("/listener"))
	require.Nil(t, dErr)
	require.False(t, backend.monitoring[1])
}

func TestExitRequestsShutdown(t *testing.T) {
	backend := newFakeBackend()
	f := NewFacade(backend, nil)
	require.Nil(t, f.Exit())
	require.True(t, backend.exitRequested)
}
