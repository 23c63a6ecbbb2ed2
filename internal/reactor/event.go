package reactor

import "time"

// Priority buckets active events are dispatched in, high first.
type Priority int

const (
	High Priority = iota
	Middle
	Low

	numPriorities = 3
)

// Event bit flags, mirrored on the kernel's EPOLLIN/EPOLLOUT plus two
// reactor-only kinds (timeout, signal).
const (
	EvRead = 1 << iota
	EvWrite
	EvTimeout
	EvSignal

	// EvPersist re-arms the event after it fires instead of retiring it.
	EvPersist = 0x10
)

// list membership flags, an event lives in at most one of each bucket.
const (
	flagInserted = 0x01
	flagActive   = 0x02
	flagTimeout  = 0x04
)

// Event is one thing the reactor watches: a readable/writable fd, a
// deadline, or an OS signal. Callers get one back from New or
// NewTimer/NewTicker and pass it to Base.AddEvent/DelEvent.
type Event struct {
	ele       *listElement
	activeEle *listElement
	heapIndex int

	Fd     int
	Events uint32

	Cb  func(fd int, res uint32, arg interface{})
	Arg interface{}

	res      uint32
	flags    int
	Timeout  time.Duration
	deadline int64
	Priority Priority
}

// New creates an event watching fd for the given mask. Fd is -1 for a pure
// timer/ticker (see NewTimer/NewTicker).
func New(fd int, events uint32, cb func(fd int, res uint32, arg interface{}), arg interface{}) *Event {
	return &Event{
		Fd:        fd,
		Events:    events,
		Cb:        cb,
		Arg:       arg,
		Priority:  Middle,
		heapIndex: -1,
	}
}

// SetPriority overrides the dispatch bucket for this event.
func (ev *Event) SetPriority(p Priority) { ev.Priority = p }
