package datasource

import (
	"container/heap"
)

// timerEntry is one scheduled callback in a timerQueue, ordered by fireAt
// and, for ties, by the sequence it was scheduled in (so callbacks scheduled
// for the same logical instant still fire in program order).
type timerEntry struct {
	seq       uint64
	fireAt    int64 // unix nanos on the owning clock's timeline
	handle    uint64
	callback  func()
	heapIndex int
}

// timerQueue is a deadline-ordered min-heap of pending callbacks, adapted
// from the teacher's transferQueue (connect/transfer_queue.go): same
// container/heap-backed shape and by-handle lookup, reordered around a
// deadline instead of a sequence number, and dropped the max-heap side
// since ManualClock only ever needs "what fires next".
type timerQueue struct {
	orderedItems []*timerEntry
	byHandle     map[uint64]*timerEntry
	nextSeq      uint64
}

func newTimerQueue() *timerQueue {
	q := &timerQueue{
		orderedItems: []*timerEntry{},
		byHandle:     map[uint64]*timerEntry{},
	}
	heap.Init(q)
	return q
}

func (self *timerQueue) Schedule(fireAt int64, handle uint64, callback func()) {
	entry := &timerEntry{
		seq:      self.nextSeq,
		fireAt:   fireAt,
		handle:   handle,
		callback: callback,
	}
	self.nextSeq += 1
	self.byHandle[handle] = entry
	heap.Push(self, entry)
}

func (self *timerQueue) Cancel(handle uint64) bool {
	entry, ok := self.byHandle[handle]
	if !ok {
		return false
	}
	heap.Remove(self, entry.heapIndex)
	delete(self.byHandle, handle)
	return true
}

func (self *timerQueue) Len() int {
	return len(self.orderedItems)
}

// PeekFirst returns the earliest-firing entry without removing it, or nil
// if the queue is empty.
func (self *timerQueue) PeekFirst() *timerEntry {
	if len(self.orderedItems) == 0 {
		return nil
	}
	return self.orderedItems[0]
}

// PopFirst removes and returns the earliest-firing entry, or nil if the
// queue is empty.
func (self *timerQueue) PopFirst() *timerEntry {
	if len(self.orderedItems) == 0 {
		return nil
	}
	entry := heap.Remove(self, 0).(*timerEntry)
	delete(self.byHandle, entry.handle)
	return entry
}

// heap.Interface

func (self *timerQueue) Push(x any) {
	entry := x.(*timerEntry)
	entry.heapIndex = len(self.orderedItems)
	self.orderedItems = append(self.orderedItems, entry)
}

func (self *timerQueue) Pop() any {
	n := len(self.orderedItems)
	i := n - 1
	entry := self.orderedItems[i]
	self.orderedItems[i] = nil
	self.orderedItems = self.orderedItems[:n-1]
	return entry
}

// sort.Interface

func (self *timerQueue) Less(i, j int) bool {
	a, b := self.orderedItems[i], self.orderedItems[j]
	if a.fireAt != b.fireAt {
		return a.fireAt < b.fireAt
	}
	return a.seq < b.seq
}

func (self *timerQueue) Swap(i, j int) {
	a, b := self.orderedItems[i], self.orderedItems[j]
	a.heapIndex, b.heapIndex = j, i
	self.orderedItems[i], self.orderedItems[j] = b, a
}
