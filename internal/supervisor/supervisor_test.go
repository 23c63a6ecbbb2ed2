package supervisor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jsprogd/jsprogd/internal/discovery"
	"github.com/jsprogd/jsprogd/internal/output"
	"github.com/jsprogd/jsprogd/internal/reactor"
	"github.com/jsprogd/jsprogd/internal/supervisor"
)

func TestAddRejectsUnopenableDevice(t *testing.T) {
	base, err := reactor.NewBase()
	require.NoError(t, err)
	defer base.Close()

	var out *output.Device
	sup := supervisor.New(out, base, func(string) bool { return true }, nil)

	_, err = sup.Add("/dev/input/event-does-not-exist")
	require.Error(t, err)
}

func TestRemoveUnknownIDIsNoOp(t *testing.T) {
	base, err := reactor.NewBase()
	require.NoError(t, err)
	defer base.Close()

	var out *output.Device
	sup := supervisor.New(out, base, func(string) bool { return true }, nil)
	sup.Remove(999) // must not panic
	require.Empty(t, sup.List())
}

func TestHandleHotplugIgnoresNonJoystick(t *testing.T) {
	base, err := reactor.NewBase()
	require.NoError(t, err)
	defer base.Close()

	var out *output.Device
	sup := supervisor.New(out, base, func(string) bool { return false }, nil)
	sup.HandleHotplug(discovery.Event{Path: "/dev/input/event0"})
	require.Empty(t, sup.List())
}
