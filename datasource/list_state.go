package datasource

import (
	"encoding/json"
	"fmt"
)

// Direction is one of the two frontiers a ListState can extend at.
// spec.md §3 PendingRequest.direction.
type Direction int

const (
	DirectionForward Direction = iota
	DirectionBackward
)

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionBackward:
		return "backward"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// frontier tracks one end's opaque cursor. A nil token means the frontier
// is closed (spec.md §3: "absent means the ... end is closed").
type frontier struct {
	token *string
}

func openFrontier(token string) frontier {
	t := token
	return frontier{token: &t}
}

func (f frontier) isOpen() bool {
	return f.token != nil
}

// advance sets the frontier closed when nextToken is empty (spec.md §3: "The
// empty string is reserved: a response carrying an empty nextPageToken
// means no further page exists in that direction"), otherwise advances the
// cursor to nextToken.
func (f *frontier) advance(nextToken string) {
	if nextToken == "" {
		f.token = nil
		return
	}
	t := nextToken
	f.token = &t
}

// ListState is the virtual sequence backing one list id: spec.md §3.
type ListState struct {
	ListID            string
	Type              string
	PresentationToken string

	items     []json.RawMessage
	baseIndex int

	forward  frontier
	backward frontier

	hasFirstItem bool
	hasLastItem  bool

	// viewportMin/viewportMax track the widest absolute-index range the
	// scheduler has ever been told is laid out or approaching layout
	// (spec.md §4.3). They seed from the initial items' own range, since
	// those are inherently the first thing in view (§6.5's
	// ViewportObserver only ever grows this from there).
	viewportMin int
	viewportMax int
}

// NewListState builds the initial ListState from a validated Seed
// (spec.md §4.1 createList, §6.1 Seed).
func NewListState(seed Seed) *ListState {
	items := make([]json.RawMessage, len(seed.Items))
	copy(items, seed.Items)

	state := &ListState{
		ListID:            seed.ListID,
		Type:              seed.Type,
		PresentationToken: seed.PresentationToken,
		items:             items,
		baseIndex:         0,
		hasFirstItem:      seed.HasFirstItem,
		hasLastItem:       seed.HasLastItem,
	}
	if seed.ForwardPageToken != nil {
		state.forward = openFrontier(*seed.ForwardPageToken)
	}
	if seed.BackwardPageToken != nil {
		state.backward = openFrontier(*seed.BackwardPageToken)
	}
	state.viewportMin = state.baseIndex
	state.viewportMax = state.baseIndex + len(items) - 1
	if len(items) == 0 {
		state.viewportMax = state.baseIndex
	}
	return state
}

// ObserveViewport widens the tracked laid-out range to include
// absoluteIndex (spec.md §6.5's ViewportObserver.Ensure). The range only
// ever grows: once the host has reported an index as near layout, the
// scheduler keeps re-evaluating against it even if the host's attention
// later moves elsewhere, matching a container that never un-lays-out what
// it already measured.
func (self *ListState) ObserveViewport(absoluteIndex int) {
	if absoluteIndex < self.viewportMin {
		self.viewportMin = absoluteIndex
	}
	if absoluteIndex > self.viewportMax {
		self.viewportMax = absoluteIndex
	}
}

// nearEnd reports whether the tracked viewport range is within
// cacheChunkSize of the d end of the current items, per spec.md §4.3's
// "within cacheChunkSize items of the end of the currently held sequence."
func (self *ListState) nearEnd(d Direction, cacheChunkSize int) bool {
	switch d {
	case DirectionForward:
		forwardEnd := self.baseIndex + len(self.items) - 1
		return forwardEnd-self.viewportMax <= cacheChunkSize
	case DirectionBackward:
		backwardStart := self.baseIndex
		return self.viewportMin-backwardStart <= cacheChunkSize
	default:
		panic(fmt.Sprintf("unknown direction %v", d))
	}
}

// ChildCount is the number of virtual items currently held, excluding
// sentinels (spec.md §6.4: sentinels "do not count toward scheduling
// triggers, do not consume a page token").
func (self *ListState) ChildCount() int {
	return len(self.items)
}

// ChildAt returns the item at relative position i (0 <= i < ChildCount())
// and its absolute virtual index. The identity mapping absolute index ->
// child id (spec.md §4.2) is the consuming container's responsibility;
// ListState only guarantees the absolute index is stable across splices.
func (self *ListState) ChildAt(i int) (item json.RawMessage, absoluteIndex int, ok bool) {
	if i < 0 || len(self.items) <= i {
		return nil, 0, false
	}
	return self.items[i], self.baseIndex + i, true
}

func (self *ListState) BaseIndex() int {
	return self.baseIndex
}

func (self *ListState) HasFirstItem() bool { return self.hasFirstItem }
func (self *ListState) HasLastItem() bool  { return self.hasLastItem }

// FrontierToken returns the current cursor for d, and whether that
// frontier is open at all.
func (self *ListState) FrontierToken(d Direction) (token string, open bool) {
	f := self.frontierFor(d)
	if !f.isOpen() {
		return "", false
	}
	return *f.token, true
}

func (self *ListState) frontierFor(d Direction) *frontier {
	switch d {
	case DirectionForward:
		return &self.forward
	case DirectionBackward:
		return &self.backward
	default:
		panic(fmt.Sprintf("unknown direction %v", d))
	}
}

// Splice applies an accepted update's items at the frontier named by d,
// per spec.md §4.2's splice rules, and returns the count spliced. Callers
// (ResponseValidator, via Provider) must not call Splice with zero items —
// spec.md §4.2: "an accepted response with zero items is not a successful
// splice" — that case is rejected before Splice is ever reached.
func (self *ListState) Splice(d Direction, items []json.RawMessage, nextToken string) (spliced int) {
	if len(items) == 0 {
		panic("Splice called with zero items; caller must reject MISSING_LIST_ITEMS before splicing")
	}

	k := len(items)
	switch d {
	case DirectionForward:
		// baseIndex unchanged (invariant 6, spec.md §3).
		self.items = append(self.items, items...)
	case DirectionBackward:
		next := make([]json.RawMessage, 0, k+len(self.items))
		next = append(next, items...)
		next = append(next, self.items...)
		self.items = next
		self.baseIndex -= k
	default:
		panic(fmt.Sprintf("unknown direction %v", d))
	}
	self.frontierFor(d).advance(nextToken)
	return k
}
