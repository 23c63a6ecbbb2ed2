package script_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/jsprogd/jsprogd/internal/script"
)

type fakeHost struct {
	pressed  map[uint16]bool
	absVal   map[uint16]int32
	moved    []int32
	started  int64
	canceled []int64
}

func newFakeHost() *fakeHost {
	return &fakeHost{pressed: map[uint16]bool{}, absVal: map[uint16]int32{}}
}

func (f *fakeHost) IsKeyPressed(code uint16) bool { return f.pressed[code] }
func (f *fakeHost) GetAbs(code uint16) int32      { return f.absVal[code] }
func (f *fakeHost) GetAbsMin(uint16) int32        { return -32768 }
func (f *fakeHost) GetAbsMax(uint16) int32        { return 32767 }
func (f *fakeHost) PressKey(code uint16)          { f.pressed[code] = true }
func (f *fakeHost) ReleaseKey(code uint16)        { f.pressed[code] = false }
func (f *fakeHost) MoveRel(_ uint16, delta int32) { f.moved = append(f.moved, delta) }
func (f *fakeHost) StartThread(*lua.LFunction) int64 {
	f.started++
	return f.started
}
func (f *fakeHost) CancelDelay(id int64) bool {
	f.canceled = append(f.canceled, id)
	return true
}
func (f *fakeHost) JoinThread(int64) (bool, bool) { return true, true }

func TestDirectCallbacks(t *testing.T) {
	host := newFakeHost()
	s := script.New(host, nil)
	defer s.Close()

	err := s.Load(`
press_key(KEY_A)
move_rel(REL_X, 5)
`, nil, "")
	require.NoError(t, err)
	require.True(t, host.pressed[0x1e])
	require.Equal(t, []int32{5}, host.moved)
}

func TestBindingsInstallHandlers(t *testing.T) {
	host := newFakeHost()
	s := script.New(host, nil)
	defer s.Close()

	err := s.Load("", []script.Binding{
		{HandlerName: "_jsprog_event_key_001e", Body: "press_key(KEY_A)"},
	}, "")
	require.NoError(t, err)

	fn := s.HandlerFunction("_jsprog_event_key_001e")
	require.NotNil(t, fn)
}

func TestUnpackYield(t *testing.T) {
	vals := []lua.LValue{lua.LNumber(script.YieldDelay), lua.LNumber(150), lua.LNumber(0)}
	y := script.UnpackYield(vals)
	require.Equal(t, script.YieldDelay, y.Kind)
	require.Equal(t, int64(150), y.Millis)
}
