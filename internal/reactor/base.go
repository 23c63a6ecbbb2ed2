package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// resolution is the reactor's own coalescing window: fireExpiredTimeouts
// treats any deadline due within this much of "now" as already expired, so
// near-simultaneous timers all fire in the same pass instead of spinning
// through extra epoll iterations one deadline apart, matching the
// scheduler's ~5ms tie-break tolerance.
const resolution = 5 * time.Millisecond

// Base is the reactor: one readiness loop per process (component J), built
// on epoll plus a min-heap of timed events. Every other component (event
// pump, D-Bus transport, task scheduler) rides on the same Base so the
// whole daemon is single-threaded from the caller's point of view.
type Base struct {
	poller *epollPoller

	evList       *list
	activeLists  [numPriorities]*list
	deadlines    *deadlineHeap

	wakeR, wakeW int
	wakePending  bool

	stopped bool
}

// NewBase opens the epoll fd and the internal wake pipe.
func NewBase() (*Base, error) {
	b := &Base{
		evList:    newList(),
		deadlines: newDeadlineHeap(),
	}
	for i := range b.activeLists {
		b.activeLists[i] = newList()
	}

	poller, err := newEpollPoller(b.onActive)
	if err != nil {
		return nil, err
	}
	b.poller = poller

	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		poller.close()
		return nil, err
	}
	b.wakeR, b.wakeW = fds[0], fds[1]

	wakeEv := New(b.wakeR, EvRead|EvPersist, func(fd int, res uint32, arg interface{}) {
		var buf [64]byte
		unix.Read(fd, buf[:])
		b.wakePending = false
	}, nil)
	if err := b.AddEvent(wakeEv, 0); err != nil {
		poller.close()
		return nil, err
	}

	return b, nil
}

// AddEvent registers ev for readiness and/or a deadline. timeout <= 0 means
// no deadline: the event fires only on fd readiness (or never, for a bare
// timer misuse, which the caller should not do).
func (b *Base) AddEvent(ev *Event, timeout time.Duration) error {
	if timeout <= 0 && ev.flags&flagInserted != 0 {
		return ErrEventAlreadyAdded
	}

	if timeout > 0 {
		ev.Timeout = timeout
		ev.deadline = time.Now().Add(timeout).UnixMilli()
		b.insertTimeout(ev)
	}

	if ev.flags&flagInserted == 0 {
		ev.flags |= flagInserted
		ev.ele = b.evList.PushBack(ev)
		if ev.Events&(EvRead|EvWrite|EvSignal) != 0 {
			return b.poller.add(ev)
		}
	}

	return nil
}

// DelEvent removes ev from every list it participates in.
func (b *Base) DelEvent(ev *Event) error {
	if ev.flags == 0 {
		return ErrEventNotAdded
	}
	if ev.flags&flagTimeout != 0 {
		b.removeTimeout(ev)
	}
	if ev.flags&flagActive != 0 {
		b.activeLists[ev.Priority].Remove(ev.activeEle)
		ev.activeEle = nil
		ev.flags &^= flagActive
	}
	if ev.flags&flagInserted != 0 {
		b.evList.Remove(ev.ele)
		ev.ele = nil
		ev.flags &^= flagInserted
		if ev.Events&(EvRead|EvWrite|EvSignal) != 0 {
			return b.poller.del(ev)
		}
	}
	return nil
}

// Rearm resets a timed event's deadline to now+timeout, used by
// handleActive to re-arm a persistent timed event without reallocating it.
func (b *Base) Rearm(ev *Event, timeout time.Duration) {
	if ev.flags&flagTimeout != 0 {
		b.removeTimeout(ev)
	}
	ev.Timeout = timeout
	ev.deadline = time.Now().Add(timeout).UnixMilli()
	b.insertTimeout(ev)
}

// Deadline reports ev's absolute deadline in unix milliseconds, or 0 if it
// has none pending.
func (b *Base) Deadline(ev *Event) int64 {
	if ev.flags&flagTimeout == 0 {
		return 0
	}
	return ev.deadline
}

func (b *Base) insertTimeout(ev *Event) {
	if ev.flags&flagTimeout != 0 {
		return
	}
	ev.flags |= flagTimeout
	b.deadlines.pushEvent(ev)
}

func (b *Base) removeTimeout(ev *Event) {
	if ev.flags&flagTimeout == 0 {
		return
	}
	ev.flags &^= flagTimeout
	b.deadlines.removeEvent(ev)
}

// Dispatch runs the readiness loop until Shutdown is called. Each
// iteration: block for the nearest deadline (or forever), collect ready fds
// and then expired timers, and run all their callbacks in priority order
// (in collection order within one priority).
func (b *Base) Dispatch() error {
	for !b.stopped {
		if err := b.poller.polling(b.waitMillis()); err != nil {
			return err
		}
		b.fireExpiredTimeouts()
		b.handleActive()
	}
	return nil
}

// Shutdown stops Dispatch after its current iteration; the poller stays
// open until Close. Safe to call from within a callback running on the
// reactor.
func (b *Base) Shutdown() error {
	b.stopped = true
	b.Unblock()
	return nil
}

// Close releases the epoll fd and wake pipe. Call after Dispatch returns.
func (b *Base) Close() error {
	unix.Close(b.wakeW)
	unix.Close(b.wakeR)
	return b.poller.close()
}

// Unblock is the idempotent external wake-up: multiple calls before the
// reactor drains the pipe collapse into a single wake, so a burst of
// concurrent producers never queues up redundant iterations.
func (b *Base) Unblock() {
	if b.wakePending {
		return
	}
	b.wakePending = true
	unix.Write(b.wakeW, []byte{0})
}

func (b *Base) waitMillis() int {
	if b.deadlines.empty() {
		return -1
	}
	now := time.Now().UnixMilli()
	ev := b.deadlines.peekEvent()
	if ev.deadline <= now {
		return 0
	}
	return int(ev.deadline - now)
}

func (b *Base) fireExpiredTimeouts() {
	cutoff := time.Now().Add(resolution).UnixMilli()
	for !b.deadlines.empty() {
		ev := b.deadlines.peekEvent()
		if ev.deadline > cutoff {
			break
		}
		b.removeTimeout(ev)
		if ev.flags&(flagInserted) != 0 && ev.Events&(EvRead|EvWrite|EvSignal) == 0 {
			b.evList.Remove(ev.ele)
			ev.ele = nil
			ev.flags &^= flagInserted
		}
		b.onActive(ev, EvTimeout)
	}
}

func (b *Base) onActive(ev *Event, res uint32) {
	if ev.flags&flagActive != 0 {
		ev.res |= res
		return
	}
	ev.res = res
	ev.flags |= flagActive
	ev.activeEle = b.activeLists[ev.Priority].PushBack(ev)
}

func (b *Base) handleActive() {
	for i := range b.activeLists {
		lst := b.activeLists[i]
		for e := lst.Front(); e != nil; {
			next := e.Next()
			ev := lst.Remove(e)
			ev.flags &^= flagActive
			ev.activeEle = nil

			if ev.Events&EvPersist != 0 {
				if ev.Timeout > 0 {
					b.Rearm(ev, ev.Timeout)
				}
			} else {
				b.DelEvent(ev)
			}

			ev.Cb(ev.Fd, ev.res, ev.Arg)
			e = next
		}
	}
}
