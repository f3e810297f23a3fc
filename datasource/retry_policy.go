package datasource

// retryPolicy implements spec.md §4.6: "For each (listId, direction,
// pageToken) the provider maintains an attempt counter starting at 0."
// Because the counter is keyed by the pageToken being fetched, it
// naturally resets whenever a frontier successfully advances to a new
// token — there is nothing to explicitly reset on success, only cleanup
// to avoid an unbounded map (see forget).
type retryPolicy struct {
	attempts  map[retryKey]int
	abandoned map[requestKey]bool
}

type retryKey struct {
	listID    string
	direction Direction
	pageToken string
}

func newRetryPolicy() *retryPolicy {
	return &retryPolicy{
		attempts:  map[retryKey]int{},
		abandoned: map[requestKey]bool{},
	}
}

// RecordFailure counts one failed attempt (LOAD_TIMEOUT or
// MISSING_LIST_ITEMS) against (listID, d, pageToken) and reports whether a
// retry is still within budget. fetchRetries is the caller's current
// Configuration for this list's type, read fresh on every call rather than
// captured at construction — a Configure call must take effect on the next
// failure, not just for lists created afterward. When the budget is
// exhausted, the frontier is marked abandoned per spec.md §4.6: "the
// frontier is abandoned ... no further fetches for this frontier will be
// scheduled until external state changes."
func (self *retryPolicy) RecordFailure(listID string, d Direction, pageToken string, fetchRetries int) (retry bool, attempts int) {
	key := retryKey{listID: listID, direction: d, pageToken: pageToken}
	self.attempts[key] += 1
	attempts = self.attempts[key]
	if attempts <= fetchRetries {
		return true, attempts
	}
	self.abandoned[requestKey{listID: listID, direction: d}] = true
	delete(self.attempts, key)
	return false, attempts
}

// forget drops the attempt counter for (listID, d, pageToken), called once
// that pageToken resolves successfully so the map does not grow unbounded
// over a long-lived list.
func (self *retryPolicy) forget(listID string, d Direction, pageToken string) {
	delete(self.attempts, retryKey{listID: listID, direction: d, pageToken: pageToken})
}

func (self *retryPolicy) IsAbandoned(listID string, d Direction) bool {
	return self.abandoned[requestKey{listID: listID, direction: d}]
}

// Reset clears abandonment and any in-flight attempt counters for
// (listID, d) — used on reinflation and re-seeding (spec.md §4.7, §7:
// "Abandoned frontier ... no further fetches are scheduled" only holds
// "until external state changes").
func (self *retryPolicy) Reset(listID string, d Direction) {
	delete(self.abandoned, requestKey{listID: listID, direction: d})
	for key := range self.attempts {
		if key.listID == listID && key.direction == d {
			delete(self.attempts, key)
		}
	}
}

// ResetList clears all retry/abandonment state for listID, both
// directions. Used when a list is destroyed so its key can be reused.
func (self *retryPolicy) ResetList(listID string) {
	self.Reset(listID, DirectionForward)
	self.Reset(listID, DirectionBackward)
}
