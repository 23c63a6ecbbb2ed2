package reactor

import "sync"

var eventPool = sync.Pool{
	New: func() any { return new(Event) },
}

// acquire returns a zeroed Event from the pool, avoiding an allocation for
// the common case of a task's delay/timer being created and freed every
// scheduler iteration.
func acquire(fd int, events uint32, cb func(fd int, res uint32, arg interface{}), arg interface{}) *Event {
	ev := eventPool.Get().(*Event)
	*ev = Event{Fd: fd, Events: events, Cb: cb, Arg: arg, Priority: Middle, heapIndex: -1}
	return ev
}

// release returns ev to the pool. The caller must have already removed it
// from the base via DelEvent.
func release(ev *Event) {
	eventPool.Put(ev)
}
