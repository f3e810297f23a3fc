package datasource

// PendingRequest is one outstanding fetch (spec.md §3). Adapted from the
// teacher's PendingFetchRequest bookkeeping in
// connect/transfer_contract_manager.go (retryFetchRequest/clearTimeouts):
// there, retries reuse a request map and track "related tokens" so a late
// response for an earlier correlation can still be recognized; here the
// same relationship is spec.md §4.6's correlation substitution.
type PendingRequest struct {
	ListID            string
	Direction         Direction
	Correlation       int64
	ExpectedPageToken string
	RetriesRemaining  int

	// relatedCorrelations includes Correlation plus every earlier
	// correlation issued for this same (listId, direction, pageToken)
	// frontier across retries, so a late arrival for any of them can still
	// be matched to this PendingRequest (spec.md §4.6).
	relatedCorrelations []int64

	timer Timer
}

type requestKey struct {
	listID    string
	direction Direction
}

// pendingRequestTable is the PendingRequest table (spec.md §2, ~15% share):
// invariant 4 (at most one PendingRequest per (listId, direction)) is
// enforced by callers only ever Put-ing after confirming GetByKey returns
// nothing live for that key; the table itself does not arbitrate.
type pendingRequestTable struct {
	byKey         map[requestKey]*PendingRequest
	byCorrelation map[int64]*PendingRequest
}

func newPendingRequestTable() *pendingRequestTable {
	return &pendingRequestTable{
		byKey:         map[requestKey]*PendingRequest{},
		byCorrelation: map[int64]*PendingRequest{},
	}
}

func (self *pendingRequestTable) Put(req *PendingRequest) {
	key := requestKey{listID: req.ListID, direction: req.Direction}
	self.byKey[key] = req
	for _, c := range req.relatedCorrelations {
		self.byCorrelation[c] = req
	}
}

func (self *pendingRequestTable) GetByKey(listID string, d Direction) (*PendingRequest, bool) {
	req, ok := self.byKey[requestKey{listID: listID, direction: d}]
	return req, ok
}

func (self *pendingRequestTable) GetByCorrelation(correlation int64) (*PendingRequest, bool) {
	req, ok := self.byCorrelation[correlation]
	return req, ok
}

// Remove withdraws req's timer and every mapping for it (its key and every
// related correlation, including any issued by later retries).
func (self *pendingRequestTable) Remove(req *PendingRequest) {
	if req.timer != nil {
		req.timer.Stop()
	}
	key := requestKey{listID: req.ListID, direction: req.Direction}
	if current, ok := self.byKey[key]; ok && current == req {
		delete(self.byKey, key)
	}
	for _, c := range req.relatedCorrelations {
		if current, ok := self.byCorrelation[c]; ok && current == req {
			delete(self.byCorrelation, c)
		}
	}
}

// RemoveByKey removes whatever PendingRequest is live for (listId, d), if
// any. Used on reinflation/list destruction (spec.md §4.7, §5 cancellation).
func (self *pendingRequestTable) RemoveByKey(listID string, d Direction) {
	if req, ok := self.GetByKey(listID, d); ok {
		self.Remove(req)
	}
}

// RemoveAllForList withdraws every PendingRequest belonging to listID,
// covering both directions at once.
func (self *pendingRequestTable) RemoveAllForList(listID string) {
	self.RemoveByKey(listID, DirectionForward)
	self.RemoveByKey(listID, DirectionBackward)
}
