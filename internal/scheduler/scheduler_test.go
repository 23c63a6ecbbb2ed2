package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jsprogd/jsprogd/internal/output"
	"github.com/jsprogd/jsprogd/internal/reactor"
	"github.com/jsprogd/jsprogd/internal/scheduler"
)

type fakeControls struct{}

func (fakeControls) IsKeyPressed(uint16) bool { return false }
func (fakeControls) AbsValue(uint16) int32     { return 0 }
func (fakeControls) AbsMin(uint16) int32       { return -32768 }
func (fakeControls) AbsMax(uint16) int32       { return 32767 }

// newTestScheduler wires a scheduler against a nil output sink; tests here
// only exercise control flow (start_thread/join/delay), not actual device
// writes, so *output.Device stays nil and Synchronize is never reached
// with a real fd.
func newTestScheduler(t *testing.T) (*scheduler.Scheduler, *reactor.Base) {
	t.Helper()
	base, err := reactor.NewBase()
	require.NoError(t, err)

	var out *output.Device
	sch := scheduler.New(base, out, nil, fakeControls{}, nil)
	return sch, base
}

// TestJoinThreadUnknownID exercises the JoinThread host
// method directly: a task id that does not exist reports ok=false.
func TestJoinThreadUnknownID(t *testing.T) {
	sch, _ := newTestScheduler(t)
	_, ok := sch.JoinThread(999)
	require.False(t, ok)
}

func TestCancelDelayUnknownID(t *testing.T) {
	sch, _ := newTestScheduler(t)
	require.False(t, sch.CancelDelay(42))
}

// TestCloseOnEmptySchedulerIsSafe exercises the teardown path Session
// calls on both set_profile and destruction; with no tasks ever started
// it should just leave an empty task table behind.
func TestCloseOnEmptySchedulerIsSafe(t *testing.T) {
	sch, _ := newTestScheduler(t)
	sch.Close()
	require.Empty(t, sch.Tasks())
}
