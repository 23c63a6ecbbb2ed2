package reactor

import "container/heap"

// deadlineHeap is the min-heap of timed events ordered by deadline, giving
// the reactor its "nearest deadline" query in O(1) and insert/remove in
// O(log n). Ties are broken by heap order, which is stable enough for the
// scheduler's own (deadline, identity) tie-break to sit on top of.
type deadlineHeap []*Event

func newDeadlineHeap() *deadlineHeap {
	h := &deadlineHeap{}
	heap.Init(h)
	return h
}

func (h deadlineHeap) Len() int { return len(h) }

func (h deadlineHeap) Less(i, j int) bool { return h[i].deadline < h[j].deadline }

func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *deadlineHeap) Push(x interface{}) {
	ev := x.(*Event)
	ev.heapIndex = len(*h)
	*h = append(*h, ev)
}

func (h *deadlineHeap) Pop() interface{} {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	ev.heapIndex = -1
	*h = old[:n-1]
	return ev
}

func (h *deadlineHeap) pushEvent(ev *Event) { heap.Push(h, ev) }

func (h *deadlineHeap) peekEvent() *Event { return (*h)[0] }

func (h *deadlineHeap) empty() bool { return len(*h) == 0 }

func (h *deadlineHeap) removeEvent(ev *Event) {
	if ev.heapIndex >= 0 {
		heap.Remove(h, ev.heapIndex)
	}
}
