package datasource

// fetchScheduler decides when a frontier is due for a new fetch (spec.md
// §4.3) and hands out correlation tokens (spec.md §3: "a monotonically
// increasing counter starting at 101"). It holds no per-list bookkeeping of
// its own beyond the counter — near-end evaluation reads straight off the
// ListState it is given, using whatever cacheChunkSize the caller's
// Configuration for that list's type carries, and in-flight/abandoned
// state lives in pendingRequestTable and retryPolicy respectively.
type fetchScheduler struct {
	nextCorrelation int64
}

func newFetchScheduler() *fetchScheduler {
	return &fetchScheduler{nextCorrelation: StartingCorrelationToken}
}

// NextCorrelation issues the next correlation token and advances the
// counter. Correlation tokens are never reused across the lifetime of a
// provider (spec.md §3).
func (self *fetchScheduler) NextCorrelation() int64 {
	c := self.nextCorrelation
	self.nextCorrelation++
	return c
}

// ShouldFetch reports whether direction d of state is due for a new fetch
// right now: the frontier must be open, must not already be abandoned, and
// must have no PendingRequest already in flight for it (invariant 4,
// spec.md §3), on top of the near-end distance check itself.
func (self *fetchScheduler) ShouldFetch(state *ListState, d Direction, cacheChunkSize int, pending *pendingRequestTable, retries *retryPolicy) bool {
	if _, open := state.FrontierToken(d); !open {
		return false
	}
	if retries.IsAbandoned(state.ListID, d) {
		return false
	}
	if _, inFlight := pending.GetByKey(state.ListID, d); inFlight {
		return false
	}
	return state.nearEnd(d, cacheChunkSize)
}

// ShouldFetchOnCreate reports whether direction d should be fetched
// immediately when a list is created, per spec.md §4.3's first bullet: "On
// list creation, an open frontier is always fetched at least once,
// regardless of distance." Abandonment cannot yet apply to a brand new
// list, so this only checks that the frontier is open.
func (self *fetchScheduler) ShouldFetchOnCreate(state *ListState, d Direction) bool {
	_, open := state.FrontierToken(d)
	return open
}
