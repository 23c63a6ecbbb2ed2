package pump

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/jsprogd/jsprogd/internal/evdevio"
	"github.com/jsprogd/jsprogd/internal/registry"
)

type fakeTarget struct {
	reg   *registry.Registry
	calls []call
}

type call struct {
	typ   registry.ControlType
	code  uint16
	value int32
}

func (f *fakeTarget) Registry() *registry.Registry { return f.reg }
func (f *fakeTarget) Dispatch(t registry.ControlType, code uint16, value int32) {
	f.calls = append(f.calls, call{t, code, value})
}

func TestApplyBatchKeyTransition(t *testing.T) {
	reg := registry.New()
	reg.AddKey(0x1e, false) // KEY_A, released
	target := &fakeTarget{reg: reg}
	p := &Pump{target: target, log: logrus.NewEntry(logrus.StandardLogger())}

	p.applyBatch([]evdevio.Event{
		{Type: evdevio.EvKey, Code: 0x1e, Value: 1},
		{Type: evdevio.EvSyn, Code: evdevio.SynReport},
	})

	require.Len(t, target.calls, 1)
	require.Equal(t, registry.Key, target.calls[0].typ)
	require.True(t, reg.FindKey(0x1e).Pressed)
}

func TestApplyBatchKeyNoChangeSkipsDispatch(t *testing.T) {
	reg := registry.New()
	reg.AddKey(0x1e, true)
	target := &fakeTarget{reg: reg}
	p := &Pump{target: target, log: logrus.NewEntry(logrus.StandardLogger())}

	p.applyBatch([]evdevio.Event{{Type: evdevio.EvKey, Code: 0x1e, Value: 1}})

	require.Empty(t, target.calls)
}

func TestApplyBatchAxisClampedAndDispatched(t *testing.T) {
	reg := registry.New()
	reg.AddAxis(0x00, 0, -100, 100)
	target := &fakeTarget{reg: reg}
	p := &Pump{target: target, log: logrus.NewEntry(logrus.StandardLogger())}

	p.applyBatch([]evdevio.Event{{Type: evdevio.EvAbs, Code: 0x00, Value: 500}})

	require.Len(t, target.calls, 1)
	require.EqualValues(t, 100, target.calls[0].value)
}

func TestApplyBatchDropsAbsRz(t *testing.T) {
	reg := registry.New()
	reg.AddAxis(0x05, 0, 0, 0)
	target := &fakeTarget{reg: reg}
	p := &Pump{target: target, log: logrus.NewEntry(logrus.StandardLogger())}

	p.applyBatch([]evdevio.Event{{Type: evdevio.EvAbs, Code: 0x05, Value: 42}})

	require.Empty(t, target.calls)
}
