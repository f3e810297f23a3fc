package datasource

import (
	"sync/atomic"
	"time"
)

// Timer is a handle to a scheduled callback. Stop withdraws it; Stop is a
// no-op (returns false) if the callback already fired or was already
// stopped, matching time.Timer's semantics.
type Timer interface {
	Stop() bool
}

// Clock is the provider's only source of time. spec.md §5 is explicit that
// "the provider does not read wall-clock time" — every fetch deadline
// Provider arms (provider.go's arm) goes through a Clock so that a
// test can substitute ManualClock and make the timeout scenarios in
// spec.md §8 exactly reproducible without a real sleep.
type Clock interface {
	Now() time.Time
	// AfterFunc schedules callback to run after d elapses on this clock's
	// timeline and returns a Timer that can cancel it before it fires.
	AfterFunc(d time.Duration, callback func()) Timer
}

// RealClock backs Clock with actual wall-clock timers. Its callbacks fire
// on their own goroutine (time.AfterFunc's usual behavior) — a host
// embedding RealClock in a genuinely single-threaded loop is expected to
// bridge the fired callback back onto that loop (e.g. via a channel) before
// calling back into Provider, exactly as spec.md §5 describes "timer
// callbacks" as one of the four admitted state-transition drivers rather
// than something that mutates state directly from an arbitrary goroutine.
type RealClock struct{}

func NewRealClock() RealClock {
	return RealClock{}
}

func (RealClock) Now() time.Time {
	return time.Now()
}

func (RealClock) AfterFunc(d time.Duration, callback func()) Timer {
	return time.AfterFunc(d, callback)
}

// ManualClock is a logical clock driven entirely by Advance. It never reads
// the OS clock. Scheduled callbacks fire synchronously and in deadline
// order when Advance crosses their deadline, on the calling goroutine —
// there is no cross-goroutine handoff to reason about, which is what makes
// the retry/timeout scenarios in spec.md §8 deterministic in tests.
type ManualClock struct {
	now     time.Time
	pending *timerQueue
	nextHandle atomic.Uint64
}

func NewManualClock() *ManualClock {
	return &ManualClock{
		now:     time.Unix(0, 0),
		pending: newTimerQueue(),
	}
}

func (self *ManualClock) Now() time.Time {
	return self.now
}

func (self *ManualClock) AfterFunc(d time.Duration, callback func()) Timer {
	handle := self.nextHandle.Add(1)
	self.pending.Schedule(self.now.Add(d).UnixNano(), handle, callback)
	return &manualTimer{clock: self, handle: handle}
}

// Advance moves the clock forward by d, firing every callback whose
// deadline is now at or before the new time, in deadline order (ties
// broken by scheduling order).
func (self *ManualClock) Advance(d time.Duration) {
	target := self.now.Add(d).UnixNano()
	for {
		entry := self.pending.PeekFirst()
		if entry == nil || target < entry.fireAt {
			break
		}
		self.pending.PopFirst()
		self.now = time.Unix(0, entry.fireAt)
		entry.callback()
	}
	self.now = time.Unix(0, target)
}

type manualTimer struct {
	clock  *ManualClock
	handle uint64
}

func (self *manualTimer) Stop() bool {
	return self.clock.pending.Cancel(self.handle)
}
