package datasource

// ChildrenChangeNotification describes one accepted splice (spec.md §4.2)
// in absolute-index terms, so a host container can insert/reflow without
// re-reading the whole list and can compensate scroll offset when
// StartIndex is negative relative to whatever it currently anchors on.
type ChildrenChangeNotification struct {
	ListID     string
	Direction  Direction
	StartIndex int
	Count      int
}

// ChildrenChangeListener receives one notification per accepted splice.
// It runs on whatever goroutine ProcessUpdate was called from — Provider
// is not safe for concurrent use (SPEC_FULL.md §5), so neither is this.
type ChildrenChangeListener func(ChildrenChangeNotification)

// changeMonitor fans a splice notification out to every subscriber,
// containing a panic from any one of them the same way the rest of the
// package guards host-supplied callbacks (see guardHostCallback in
// trace.go) so a broken listener cannot corrupt Provider's own state
// machine mid-notification.
type changeMonitor struct {
	listeners []ChildrenChangeListener
}

func (self *changeMonitor) Subscribe(listener ChildrenChangeListener) {
	self.listeners = append(self.listeners, listener)
}

func (self *changeMonitor) Notify(n ChildrenChangeNotification) {
	for _, listener := range self.listeners {
		listener := listener
		guardHostCallback("ChildrenChangeListener", func() {
			listener(n)
		})
	}
}
