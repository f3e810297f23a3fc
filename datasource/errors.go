package datasource

// ErrorReason enumerates the error taxonomy from spec.md §4.5.
type ErrorReason string

const (
	// Malformed envelope, duplicate list, null payload, or a frontier
	// that has exhausted its retry budget and is abandoned.
	ErrorReasonInternalError ErrorReason = "INTERNAL_ERROR"

	// Envelope references a list the provider does not know.
	ErrorReasonInvalidListID ErrorReason = "INVALID_LIST_ID"

	// Correlation->list and envelope->list disagree, or pageToken does not
	// match the expected frontier. spec.md §9 explicitly keeps this name
	// for the stale-pageToken case too, rather than a clearer
	// STALE_PAGE_TOKEN, for wire compatibility with the original.
	ErrorReasonInconsistentListID ErrorReason = "INCONSISTENT_LIST_ID"

	// Accepted envelope but items is empty; counts as a failed attempt.
	ErrorReasonMissingListItems ErrorReason = "MISSING_LIST_ITEMS"

	// A PendingRequest's deadline elapsed before any matching response.
	ErrorReasonLoadTimeout ErrorReason = "LOAD_TIMEOUT"
)

// ErrorRecord is one entry in the provider's pending error queue
// (spec.md §4.1 getPendingErrors, §4.5).
type ErrorRecord struct {
	ID      ErrorID     `json:"id"`
	Reason  ErrorReason `json:"reason"`
	ListID  string      `json:"listId"`
	Message string      `json:"message"`
}

// errorQueue is an ordered, append-only-until-drained queue. spec.md §4.1:
// "draining is destructive"; §5: "concurrent drains are not permitted" (a
// contract the host must respect — the queue itself takes no lock, per the
// package's no-locks design, see SPEC_FULL.md §5).
type errorQueue struct {
	records []ErrorRecord
}

func (self *errorQueue) push(reason ErrorReason, listID string, message string) ErrorRecord {
	record := ErrorRecord{
		ID:      NewErrorID(),
		Reason:  reason,
		ListID:  listID,
		Message: message,
	}
	self.records = append(self.records, record)
	return record
}

// drain returns all queued records and empties the queue.
func (self *errorQueue) drain() []ErrorRecord {
	if len(self.records) == 0 {
		return nil
	}
	out := self.records
	self.records = nil
	return out
}

func (self *errorQueue) empty() bool {
	return len(self.records) == 0
}
