package datasource

// updateVerdict is the outcome of running an UpdateEnvelope through the
// ordered checks in spec.md §4.4.
type updateVerdict int

const (
	verdictAccepted updateVerdict = iota
	verdictMissingItems
	verdictInvalidListID
	verdictInconsistentListID
	verdictInternalError
)

// validatedUpdate is what ResponseValidator hands back to Provider: enough
// to either splice, retry, or queue an ErrorRecord without Provider having
// to re-derive any of the matching logic.
type validatedUpdate struct {
	verdict updateVerdict
	request *PendingRequest
	message string
}

// validateUpdate runs the ordered semantic checks of spec.md §4.4 against
// an already structurally-valid envelope (DecodeUpdateEnvelope has already
// enforced §6.3's shape). Structural failures never reach here.
//
// Matching happens before the listId is even considered known: a
// correlationToken names a specific outstanding request regardless of
// which listId the envelope claims to be for, so a stale or forged
// listId next to a correlation that resolves to a *different*, live
// list is INCONSISTENT_LIST_ID, not INVALID_LIST_ID. INVALID_LIST_ID is
// reserved for the case where nothing — correlation or listId — points
// at anything real.
func validateUpdate(envelope UpdateEnvelope, lists map[string]*ListState, pending *pendingRequestTable) validatedUpdate {
	req, err := resolvePendingRequest(envelope, lists, pending)
	if err != nil {
		return *err
	}

	if req.ListID != envelope.ListID {
		return validatedUpdate{
			verdict: verdictInconsistentListID,
			request: req,
			message: "correlation token belongs to a different listId",
		}
	}

	if envelope.PageToken != req.ExpectedPageToken {
		return validatedUpdate{
			verdict: verdictInconsistentListID,
			request: req,
			message: "pageToken does not match the frontier's expected token",
		}
	}

	if len(envelope.Items) == 0 {
		return validatedUpdate{verdict: verdictMissingItems, request: req, message: "response carried zero items"}
	}

	return validatedUpdate{verdict: verdictAccepted, request: req}
}

// resolvePendingRequest matches envelope to the PendingRequest it answers.
//
// When correlationToken is present, spec.md §4.6's correlation substitution
// means any of a request's relatedCorrelations (its original attempt plus
// every retry) can resolve it, not only the latest one — pendingRequestTable
// already indexes all of them to the same *PendingRequest, across every
// list, so the lookup never needs envelope.ListID to be known first. A
// correlation that resolves to nothing at all — because it never existed,
// or because it named a request that has since resolved and been removed
// (its relatedCorrelations are orphaned along with it, spec.md §4.6) — is
// an INTERNAL_ERROR only when envelope.ListID names a list that actually
// exists; when it names nothing real either, there is no live request or
// list to be inconsistent about, so it falls back to INVALID_LIST_ID.
//
// When correlationToken is absent, spec.md §6.3 treats this as the
// initial-seed ambiguity case: a host that never plumbed the correlation
// token through is matched by pageToken equality against whichever
// pending request(s) for this listId expect it. Exactly one match
// resolves unambiguously; zero or more than one is INTERNAL_ERROR.
func resolvePendingRequest(envelope UpdateEnvelope, lists map[string]*ListState, pending *pendingRequestTable) (*PendingRequest, *validatedUpdate) {
	correlation, present, err := envelope.CorrelationInt()
	if err != nil {
		return nil, &validatedUpdate{verdict: verdictInternalError, message: "correlationToken is not a valid integer"}
	}

	if present {
		req, ok := pending.GetByCorrelation(correlation)
		if !ok {
			if _, known := lists[envelope.ListID]; !known {
				return nil, &validatedUpdate{verdict: verdictInvalidListID, message: "unknown listId " + envelope.ListID}
			}
			return nil, &validatedUpdate{verdict: verdictInternalError, message: "correlation token does not match any outstanding request"}
		}
		return req, nil
	}

	if _, known := lists[envelope.ListID]; !known {
		return nil, &validatedUpdate{verdict: verdictInvalidListID, message: "unknown listId " + envelope.ListID}
	}

	var matches []*PendingRequest
	if forward, ok := pending.GetByKey(envelope.ListID, DirectionForward); ok && forward.ExpectedPageToken == envelope.PageToken {
		matches = append(matches, forward)
	}
	if backward, ok := pending.GetByKey(envelope.ListID, DirectionBackward); ok && backward.ExpectedPageToken == envelope.PageToken {
		matches = append(matches, backward)
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, &validatedUpdate{verdict: verdictInternalError, message: "correlationToken omitted and no outstanding request's pageToken matches"}
	default:
		return nil, &validatedUpdate{verdict: verdictInternalError, message: "correlationToken omitted and multiple outstanding requests' pageTokens match"}
	}
}
