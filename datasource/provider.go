package datasource

import (
	"fmt"

	"golang.org/x/exp/maps"
)

// FetchRequestListener receives one FetchEvent every time Provider decides
// a frontier is due for a fetch (spec.md §4.3, §6.2). The host is
// responsible for actually dispatching the request and, eventually,
// routing its response back through ProcessUpdate.
type FetchRequestListener func(FetchEvent)

// Provider is the Dynamic Token List data source provider (spec.md §1-§5).
// It is not safe for concurrent use: every exported method must be called
// from the same single, cooperative loop (SPEC_FULL.md §5), matching the
// timer callbacks it arms through Clock — a RealClock's fired callback
// arrives on its own goroutine and the host must bridge it back onto that
// loop before calling HandleFetchTimeout.
type Provider struct {
	log   LogFunction
	clock Clock

	configs map[string]Configuration
	lists   map[string]*ListState

	pending   *pendingRequestTable
	retries   *retryPolicy
	scheduler *fetchScheduler
	errors    errorQueue
	monitor   changeMonitor

	fetchListeners []FetchRequestListener
}

// NewProvider constructs a Provider driven by clock. Pass a RealClock in
// production and a ManualClock in tests (spec.md §5, clock.go).
func NewProvider(clock Clock) *Provider {
	return &Provider{
		log:       LogFn(LogLevelInfo, "provider"),
		clock:     clock,
		configs:   map[string]Configuration{},
		lists:     map[string]*ListState{},
		pending:   newPendingRequestTable(),
		retries:   newRetryPolicy(),
		scheduler: newFetchScheduler(),
	}
}

// Configure registers the effective Configuration for one source type tag
// (spec.md §4.1 configure). Fields are defaulted by WithDefaults; an
// unset (zero) FetchRetries stays 0.
func (self *Provider) Configure(cfg Configuration) {
	self.configs[cfg.Type] = cfg.WithDefaults()
}

// GetConfiguration returns the effective Configuration for typeTag, or the
// package defaults if typeTag was never configured.
func (self *Provider) GetConfiguration(typeTag string) Configuration {
	if cfg, ok := self.configs[typeTag]; ok {
		return cfg
	}
	return Configuration{Type: typeTag, FetchRetries: DefaultFetchRetries}.WithDefaults()
}

// OnFetchRequest subscribes to every FetchEvent Provider emits.
func (self *Provider) OnFetchRequest(listener FetchRequestListener) {
	self.fetchListeners = append(self.fetchListeners, listener)
}

// OnChildrenChanged subscribes to every accepted splice.
func (self *Provider) OnChildrenChanged(listener ChildrenChangeListener) {
	self.monitor.Subscribe(listener)
}

// CreateList registers a brand new list from seed (spec.md §4.1 createList,
// §6.1). Fails with INTERNAL_ERROR if a required field (listId, pageToken)
// is missing, if seed.Type has no Configuration, or if a duplicate listId
// is rejected — a host that wants to
// replace an existing list's state must call ReinflateList.
func (self *Provider) CreateList(seed Seed) error {
	if err := validateSeedRequiredFields(seed); err != nil {
		self.errors.push(ErrorReasonInternalError, seed.ListID, "createList: "+err.Error())
		return err
	}
	if _, configured := self.configs[seed.Type]; !configured {
		self.errors.push(ErrorReasonInternalError, seed.ListID, fmt.Sprintf("createList: type %q is not configured", seed.Type))
		return fmt.Errorf("datasource: seed type %q is not configured", seed.Type)
	}
	if _, exists := self.lists[seed.ListID]; exists {
		self.errors.push(ErrorReasonInternalError, seed.ListID, "createList: list already exists")
		return fmt.Errorf("datasource: list %q already exists", seed.ListID)
	}
	self.installList(seed)
	return nil
}

// ReinflateList replaces whatever state is held for seed.ListID with a
// fresh one built from seed, discarding any in-flight requests and retry
// history for it first (spec.md §4.7: a reinflated list starts clean, as
// if newly created, even though the host-side listId is reused).
func (self *Provider) ReinflateList(seed Seed) error {
	if err := validateSeedRequiredFields(seed); err != nil {
		self.errors.push(ErrorReasonInternalError, seed.ListID, "reinflateList: "+err.Error())
		return err
	}
	self.pending.RemoveAllForList(seed.ListID)
	self.retries.ResetList(seed.ListID)
	self.installList(seed)
	return nil
}

// validateSeedRequiredFields enforces spec.md §4.1's "Fails with
// INTERNAL_ERROR if required fields are missing" for the fields a
// caller constructing a Seed struct directly (rather than going through
// DecodeSeed's schema validation) can otherwise skip entirely.
func validateSeedRequiredFields(seed Seed) error {
	if seed.ListID == "" {
		return fmt.Errorf("datasource: seed.ListID is required")
	}
	if seed.PageToken == "" {
		return fmt.Errorf("datasource: seed.PageToken is required")
	}
	return nil
}

func (self *Provider) installList(seed Seed) {
	state := NewListState(seed)
	self.lists[seed.ListID] = state
	self.log("createList %s type=%q items=%d", seed.ListID, seed.Type, state.ChildCount())

	for _, d := range []Direction{DirectionForward, DirectionBackward} {
		if self.scheduler.ShouldFetchOnCreate(state, d) {
			self.issueFetch(state, d)
		}
	}
}

// DestroyList withdraws all bookkeeping for listID: pending requests are
// cancelled, retry/abandonment history is cleared, and the listId becomes
// free to reuse in a later createList (spec.md §5 cancellation).
func (self *Provider) DestroyList(listID string) {
	self.pending.RemoveAllForList(listID)
	self.retries.ResetList(listID)
	delete(self.lists, listID)
}

// Ensure notifies Provider that absoluteIndex of listID is now laid out or
// approaching layout (spec.md §6.5's ViewportObserver.Ensure). It widens
// the list's tracked viewport and re-evaluates both frontiers.
func (self *Provider) Ensure(listID string, absoluteIndex int) {
	state, ok := self.lists[listID]
	if !ok {
		return
	}
	state.ObserveViewport(absoluteIndex)
	self.evaluateFrontiers(state)
}

func (self *Provider) evaluateFrontiers(state *ListState) {
	cfg := self.GetConfiguration(state.Type)
	for _, d := range []Direction{DirectionForward, DirectionBackward} {
		if self.scheduler.ShouldFetch(state, d, cfg.CacheChunkSize, self.pending, self.retries) {
			self.issueFetch(state, d)
		}
	}
}

// issueFetch arms a fresh PendingRequest for (state, d) at its current
// frontier token and emits the FetchEvent the host is expected to act on.
func (self *Provider) issueFetch(state *ListState, d Direction) {
	token, open := state.FrontierToken(d)
	if !open {
		return
	}
	correlation := self.scheduler.NextCorrelation()
	self.arm(state, d, token, correlation, []int64{correlation})
}

// retryFetch re-issues the same logical request with a new correlation
// token appended to prior's relatedCorrelations, so a late response for any
// earlier attempt still resolves to this one (spec.md §4.6 correlation
// substitution).
func (self *Provider) retryFetch(state *ListState, prior *PendingRequest) {
	correlation := self.scheduler.NextCorrelation()
	related := append(append([]int64{}, prior.relatedCorrelations...), correlation)
	self.arm(state, prior.Direction, prior.ExpectedPageToken, correlation, related)
}

func (self *Provider) arm(state *ListState, d Direction, pageToken string, correlation int64, related []int64) {
	cfg := self.GetConfiguration(state.Type)
	listID := state.ListID

	req := &PendingRequest{
		ListID:              listID,
		Direction:           d,
		Correlation:         correlation,
		ExpectedPageToken:   pageToken,
		relatedCorrelations: related,
	}
	req.timer = self.clock.AfterFunc(cfg.FetchTimeout, func() {
		self.HandleFetchTimeout(listID, d, correlation)
	})
	self.pending.Put(req)

	self.log("fetch listId=%s direction=%s correlation=%d pageToken=%s", listID, d, correlation, pageToken)
	self.emitFetchEvent(FetchEvent{
		Name: "fetch",
		Value: FetchEventValue{
			ListID:          listID,
			CorrelationToken: fmt.Sprintf("%d", correlation),
			PageToken:       pageToken,
		},
	})
}

func (self *Provider) emitFetchEvent(event FetchEvent) {
	for _, listener := range self.fetchListeners {
		listener := listener
		guardHostCallback("FetchRequestListener", func() {
			listener(event)
		})
	}
}

// HandleFetchTimeout advances the retry/timeout state machine for one
// outstanding correlation (spec.md §4.6). It is safe to call for a
// correlation that has already resolved or been superseded — it is then a
// no-op, which is what lets a RealClock-backed Timer's Stop() race a
// timeout callback that already queued without corrupting state.
func (self *Provider) HandleFetchTimeout(listID string, d Direction, correlation int64) {
	req, ok := self.pending.GetByCorrelation(correlation)
	if !ok || req.Correlation != correlation {
		return
	}
	state, ok := self.lists[listID]
	if !ok {
		self.pending.Remove(req)
		return
	}

	self.pending.Remove(req)
	cfg := self.GetConfiguration(state.Type)
	retry, attempts := self.retries.RecordFailure(listID, d, req.ExpectedPageToken, cfg.FetchRetries)
	self.log("timeout listId=%s direction=%s correlation=%d attempts=%d retry=%v", listID, d, correlation, attempts, retry)
	if retry {
		self.errors.push(ErrorReasonLoadTimeout, listID, fmt.Sprintf("no response for correlation %d within timeout", correlation))
		self.retryFetch(state, req)
		return
	}
	self.errors.push(ErrorReasonInternalError, listID, fmt.Sprintf("direction %s abandoned after %d attempts: no response for correlation %d within timeout", d, attempts, correlation))
}

// ProcessUpdate decodes and validates one inbound update envelope
// (spec.md §4.4, §6.3) and applies its effect: an accepted response is
// spliced into the target list and may trigger the next fetch; anything
// else is queued as an ErrorRecord and otherwise ignored. The returned bool
// reports whether the envelope was accepted and caused a state change
// (spec.md §4.1 processUpdate) — every rejection path, including
// MISSING_LIST_ITEMS (which only records a retry attempt, it never
// splices), reports false alongside its queued ErrorRecord.
func (self *Provider) ProcessUpdate(raw []byte) (bool, error) {
	envelope, err := DecodeUpdateEnvelope(raw)
	if err != nil {
		self.errors.push(ErrorReasonInternalError, "", "malformed update envelope: "+err.Error())
		return false, err
	}

	result := validateUpdate(envelope, self.lists, self.pending)
	switch result.verdict {
	case verdictInvalidListID:
		self.errors.push(ErrorReasonInvalidListID, envelope.ListID, result.message)
		return false, nil
	case verdictInternalError:
		self.errors.push(ErrorReasonInternalError, envelope.ListID, result.message)
		return false, nil
	case verdictInconsistentListID:
		self.errors.push(ErrorReasonInconsistentListID, envelope.ListID, result.message)
		return false, nil
	case verdictMissingItems:
		self.handleMissingItems(envelope, result.request)
		return false, nil
	case verdictAccepted:
		self.handleAccepted(envelope, result.request)
		return true, nil
	default:
		return false, nil
	}
}

func (self *Provider) handleMissingItems(envelope UpdateEnvelope, req *PendingRequest) {
	self.pending.Remove(req)

	state, ok := self.lists[envelope.ListID]
	fetchRetries := DefaultFetchRetries
	if ok {
		fetchRetries = self.GetConfiguration(state.Type).FetchRetries
	}
	retry, attempts := self.retries.RecordFailure(envelope.ListID, req.Direction, req.ExpectedPageToken, fetchRetries)
	self.log("missingItems listId=%s direction=%s attempts=%d retry=%v", envelope.ListID, req.Direction, attempts, retry)

	if retry {
		self.errors.push(ErrorReasonMissingListItems, envelope.ListID, "response for correlation "+fmt.Sprintf("%d", req.Correlation)+" carried zero items")
		if ok {
			self.retryFetch(state, req)
		}
		return
	}
	self.errors.push(ErrorReasonInternalError, envelope.ListID, fmt.Sprintf("direction %s abandoned after %d attempts: response for correlation %d carried zero items", req.Direction, attempts, req.Correlation))
}

func (self *Provider) handleAccepted(envelope UpdateEnvelope, req *PendingRequest) {
	self.pending.Remove(req)
	self.retries.forget(envelope.ListID, req.Direction, req.ExpectedPageToken)

	state, ok := self.lists[envelope.ListID]
	if !ok {
		return
	}

	beforeBase := state.BaseIndex()
	beforeCount := state.ChildCount()
	spliced := state.Splice(req.Direction, envelope.Items, envelope.NextPageToken)

	startIndex := beforeBase + beforeCount
	if req.Direction == DirectionBackward {
		startIndex = state.BaseIndex()
	}
	self.monitor.Notify(ChildrenChangeNotification{
		ListID:     envelope.ListID,
		Direction:  req.Direction,
		StartIndex: startIndex,
		Count:      spliced,
	})

	self.log("accepted listId=%s direction=%s spliced=%d nextToken=%q", envelope.ListID, req.Direction, spliced, envelope.NextPageToken)
	self.evaluateFrontiers(state)
}

// GetPendingErrors drains and returns every ErrorRecord queued since the
// last call (spec.md §4.1 getPendingErrors). Draining is destructive.
func (self *Provider) GetPendingErrors() []ErrorRecord {
	return self.errors.drain()
}

// ListIDs returns a snapshot of every currently registered listId. The
// order is unspecified, matching maps.Keys.
func (self *Provider) ListIDs() []string {
	return maps.Keys(self.lists)
}
