package registry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jsprogd/jsprogd/internal/registry"
)

func TestKeyNameRoundTrip(t *testing.T) {
	for name, code := range map[string]uint16{"KEY_A": 0x1e, "BTN_TRIGGER": 0x120, "BTN_A": 0x130} {
		got, ok := registry.KeyName(code)
		require.True(t, ok)
		require.Equal(t, name, got)

		back, ok := registry.KeyFromName(got)
		require.True(t, ok)
		require.Equal(t, code, back)
	}
}

func TestAxisNameRoundTrip(t *testing.T) {
	code, ok := registry.AxisFromName("ABS_HAT0X")
	require.True(t, ok)
	name, ok := registry.AxisName(code)
	require.True(t, ok)
	require.Equal(t, "ABS_HAT0X", name)
}

func TestUnknownCodeSynthesized(t *testing.T) {
	name, ok := registry.KeyName(0x1ff)
	require.True(t, ok)
	require.Equal(t, "KEY_0x1FF", name)

	_, ok = registry.KeyName(0x300)
	require.False(t, ok)
}

func TestAxisValueClamped(t *testing.T) {
	r := registry.New()
	a := r.AddAxis(0x00, 0, -32768, 32767)
	a.SetValue(40000)
	require.Equal(t, int32(32767), a.Value)
	a.SetValue(-40000)
	require.Equal(t, int32(-32768), a.Value)
}

func TestHandlerNameLifecycle(t *testing.T) {
	r := registry.New()
	r.AddKey(0x120, false)
	r.SetHandlerName(registry.Key, 0x120)
	require.Equal(t, "_jsprog_event_key_0120", r.FindKey(0x120).HandlerName)

	r.ClearHandlerNames()
	require.Empty(t, r.FindKey(0x120).HandlerName)
}

func TestFindMissingControl(t *testing.T) {
	r := registry.New()
	require.Nil(t, r.FindKey(0x999))
	require.Nil(t, r.FindAxis(0x999))
}
