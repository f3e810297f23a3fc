package datasource

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

// TestScenarioBasicBidirectionalFill reproduces the walkthrough of a list
// seeded with five items and both frontiers open: creation fetches both
// directions (101 forward, 102 backward); once the backward response lands
// with another open token, the backward frontier is still within
// cacheChunkSize of the sequence's current start (the initial seed window
// is the default viewport until Ensure widens it) and gets a follow-on
// fetch, while the forward end sits far past cacheChunkSize and does not.
func TestScenarioBasicBidirectionalFill(t *testing.T) {
	provider, _ := newTestProvider(10, 2)
	var events []FetchEvent
	provider.OnFetchRequest(func(e FetchEvent) { events = append(events, e) })

	forward := "forwardPageToken1"
	backward := "backwardPageToken1"
	provider.CreateList(Seed{
		Type:              "dynamicTokenList",
		ListID:            "l1",
		PageToken:         "p0",
		Items:             rawItems(10, 11, 12, 13, 14),
		ForwardPageToken:  &forward,
		BackwardPageToken: &backward,
	})
	assert.Equal(t, 2, len(events))
	assert.Equal(t, "101", events[0].Value.CorrelationToken)
	assert.Equal(t, "102", events[1].Value.CorrelationToken)

	provider.ProcessUpdate(encodeUpdate(t, UpdateEnvelope{
		ListID: "l1", CorrelationToken: correlationString(101), PageToken: "forwardPageToken1",
		NextPageToken: "forwardPageToken2",
		Items:         rawItems(15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30),
	}))
	assert.Equal(t, 2, len(events))

	provider.ProcessUpdate(encodeUpdate(t, UpdateEnvelope{
		ListID: "l1", CorrelationToken: correlationString(102), PageToken: "backwardPageToken1",
		NextPageToken: "backwardPageToken2",
		Items:         rawItems(5, 6, 7, 8, 9),
	}))
	assert.Equal(t, 3, len(events))
	assert.Equal(t, "103", events[2].Value.CorrelationToken)
	assert.Equal(t, "backwardPageToken2", events[2].Value.PageToken)

	state := provider.lists["l1"]
	assert.Equal(t, 26, state.ChildCount())
	assert.Equal(t, -5, state.BaseIndex())
}

// TestScenarioTimeoutThenRetryResolves: a fetch that never answers before
// FetchTimeout is retried with a fresh correlation on the same pageToken,
// and a late response against that new correlation still resolves and
// splices normally.
func TestScenarioTimeoutThenRetryResolves(t *testing.T) {
	provider, clock := newTestProvider(10, 2)
	var events []FetchEvent
	provider.OnFetchRequest(func(e FetchEvent) { events = append(events, e) })

	forward := "f1"
	provider.CreateList(Seed{Type: "dynamicTokenList", ListID: "l1", PageToken: "p0", Items: rawItems(1), ForwardPageToken: &forward})
	assert.Equal(t, 1, len(events))

	clock.Advance(1500)
	assert.Equal(t, 2, len(events))
	assert.Equal(t, "102", events[1].Value.CorrelationToken)

	accepted, err := provider.ProcessUpdate(encodeUpdate(t, UpdateEnvelope{
		ListID: "l1", CorrelationToken: correlationString(102), PageToken: "f1",
		NextPageToken: "", Items: rawItems(2, 3),
	}))
	assert.Equal(t, nil, err)
	assert.Equal(t, true, accepted)
	assert.Equal(t, 3, provider.lists["l1"].ChildCount())
}

// TestScenarioLateOriginalAfterRetry: the original correlation's response
// arrives after a retry has already been armed. Correlation substitution
// (spec.md §4.6) means it still resolves the same logical request. A
// further arrival naming either correlation after that is now orphaned
// and rejected as INTERNAL_ERROR, not treated as a fresh request.
func TestScenarioLateOriginalAfterRetry(t *testing.T) {
	provider, clock := newTestProvider(10, 2)
	forward := "f1"
	provider.CreateList(Seed{Type: "dynamicTokenList", ListID: "l1", PageToken: "p0", Items: rawItems(1), ForwardPageToken: &forward})

	clock.Advance(1500) // times out correlation 101, arms 102

	accepted, err := provider.ProcessUpdate(encodeUpdate(t, UpdateEnvelope{
		ListID: "l1", CorrelationToken: correlationString(101), PageToken: "f1",
		NextPageToken: "", Items: rawItems(2),
	}))
	assert.Equal(t, nil, err)
	assert.Equal(t, true, accepted)
	assert.Equal(t, 2, provider.lists["l1"].ChildCount())

	_, stillPending := provider.pending.GetByKey("l1", DirectionForward)
	assert.Equal(t, false, stillPending)

	accepted, err = provider.ProcessUpdate(encodeUpdate(t, UpdateEnvelope{
		ListID: "l1", CorrelationToken: correlationString(102), PageToken: "f1",
		NextPageToken: "", Items: rawItems(3),
	}))
	assert.Equal(t, nil, err)
	assert.Equal(t, false, accepted)
	assert.Equal(t, 2, provider.lists["l1"].ChildCount())

	errs := provider.GetPendingErrors()
	assert.Equal(t, 2, len(errs))
	assert.Equal(t, ErrorReasonLoadTimeout, errs[0].Reason)
	assert.Equal(t, ErrorReasonInternalError, errs[1].Reason)
}

// TestScenarioInvalidCorrelationAndWrongList: a correlation token that
// matches nothing anywhere, next to a listId that IS registered, is
// INTERNAL_ERROR — there's a real list to be misbehaving about. One that
// resolves but names a different, live listId is INCONSISTENT_LIST_ID.
// Neither touches any list's state.
func TestScenarioInvalidCorrelationAndWrongList(t *testing.T) {
	provider, _ := newTestProvider(10, 2)
	fA := "fA"
	fB := "fB"
	provider.CreateList(Seed{Type: "dynamicTokenList", ListID: "a", PageToken: "p0", Items: rawItems(1), ForwardPageToken: &fA})
	provider.CreateList(Seed{Type: "dynamicTokenList", ListID: "b", PageToken: "p0", Items: rawItems(1), ForwardPageToken: &fB})

	provider.ProcessUpdate(encodeUpdate(t, UpdateEnvelope{
		ListID: "a", CorrelationToken: correlationString(999), PageToken: "fA", Items: rawItems(2),
	}))
	provider.ProcessUpdate(encodeUpdate(t, UpdateEnvelope{
		ListID: "b", CorrelationToken: correlationString(101), PageToken: "fA", Items: rawItems(2),
	}))

	errs := provider.GetPendingErrors()
	assert.Equal(t, 2, len(errs))
	assert.Equal(t, ErrorReasonInternalError, errs[0].Reason)
	assert.Equal(t, ErrorReasonInconsistentListID, errs[1].Reason)
	assert.Equal(t, 1, provider.lists["a"].ChildCount())
	assert.Equal(t, 1, provider.lists["b"].ChildCount())
}

// TestScenarioUnresolvableCorrelationWithUnregisteredListIDIsInvalidListID
// reproduces the walkthrough where only one list ("listId") and one
// outstanding correlation (101) exist: an envelope naming a correlation
// that resolves to nothing AND a listId that was never registered has no
// real list or request to be inconsistent about, so it comes back as
// INVALID_LIST_ID rather than INTERNAL_ERROR.
func TestScenarioUnresolvableCorrelationWithUnregisteredListIDIsInvalidListID(t *testing.T) {
	provider, _ := newTestProvider(10, 2)
	forward := "f1"
	provider.CreateList(Seed{Type: "dynamicTokenList", ListID: "listId", PageToken: "p0", Items: rawItems(1), ForwardPageToken: &forward})

	provider.ProcessUpdate(encodeUpdate(t, UpdateEnvelope{
		ListID: "other", CorrelationToken: correlationString(999), PageToken: "f1", Items: rawItems(2),
	}))

	errs := provider.GetPendingErrors()
	assert.Equal(t, 1, len(errs))
	assert.Equal(t, ErrorReasonInvalidListID, errs[0].Reason)
	assert.Equal(t, 1, provider.lists["listId"].ChildCount())
}

// TestScenarioInconsistentListIDReachableWithUnregisteredListID: a
// correlation that belongs to a live list still resolves to
// INCONSISTENT_LIST_ID even when the envelope names a listId that was
// never created, since correlation resolution runs across every list
// before the envelope's own listId is even considered.
func TestScenarioInconsistentListIDReachableWithUnregisteredListID(t *testing.T) {
	provider, _ := newTestProvider(10, 2)
	fA := "fA"
	provider.CreateList(Seed{Type: "dynamicTokenList", ListID: "a", PageToken: "p0", Items: rawItems(1), ForwardPageToken: &fA})

	provider.ProcessUpdate(encodeUpdate(t, UpdateEnvelope{
		ListID: "other", CorrelationToken: correlationString(101), PageToken: "fA", Items: rawItems(2),
	}))

	errs := provider.GetPendingErrors()
	assert.Equal(t, 1, len(errs))
	assert.Equal(t, ErrorReasonInconsistentListID, errs[0].Reason)
	assert.Equal(t, 1, provider.lists["a"].ChildCount())
}

// TestScenarioEmptyItemsExhaustsRetries: repeated MISSING_LIST_ITEMS
// responses count against the same retry budget as timeouts and eventually
// abandon the frontier.
func TestScenarioEmptyItemsExhaustsRetries(t *testing.T) {
	provider, _ := newTestProvider(10, 1)
	var events []FetchEvent
	provider.OnFetchRequest(func(e FetchEvent) { events = append(events, e) })

	forward := "f1"
	provider.CreateList(Seed{Type: "dynamicTokenList", ListID: "l1", PageToken: "p0", Items: rawItems(1), ForwardPageToken: &forward})
	assert.Equal(t, 1, len(events))

	provider.ProcessUpdate(encodeUpdate(t, UpdateEnvelope{
		ListID: "l1", CorrelationToken: correlationString(101), PageToken: "f1", Items: rawItems(),
	}))
	assert.Equal(t, 2, len(events))

	provider.ProcessUpdate(encodeUpdate(t, UpdateEnvelope{
		ListID: "l1", CorrelationToken: correlationString(102), PageToken: "f1", Items: rawItems(),
	}))
	assert.Equal(t, 2, len(events))

	errs := provider.GetPendingErrors()
	assert.Equal(t, 2, len(errs))
	assert.Equal(t, ErrorReasonMissingListItems, errs[0].Reason)
	assert.Equal(t, ErrorReasonInternalError, errs[1].Reason)
	assert.Equal(t, true, provider.retries.IsAbandoned("l1", DirectionForward))
}

// TestScenarioDuplicateListIDOnMultiSeed: seeding the same listId twice via
// CreateList is rejected; the original list's state is untouched.
func TestScenarioDuplicateListIDOnMultiSeed(t *testing.T) {
	provider, _ := newTestProvider(10, 2)
	provider.CreateList(Seed{Type: "dynamicTokenList", ListID: "l1", PageToken: "p0", Items: rawItems(1, 2, 3)})
	err := provider.CreateList(Seed{Type: "dynamicTokenList", ListID: "l1", PageToken: "p0", Items: rawItems(9)})
	assert.NotEqual(t, nil, err)

	assert.Equal(t, 3, provider.lists["l1"].ChildCount())
	errs := provider.GetPendingErrors()
	assert.Equal(t, 1, len(errs))
	assert.Equal(t, ErrorReasonInternalError, errs[0].Reason)
}

