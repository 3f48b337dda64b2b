package frame

import "sync/atomic"

// Ticket is the disposable back-pressure token from spec §5: cloned to
// every consumer of a FrameBundle; the channel loop does not ask the
// stage for the next bundle until every clone has been released. Modeled as a shared
// refcount rather than a channel so Clone/Release are cheap and
// allocation-free on the steady-state path.
type Ticket struct {
	count    *atomic.Int64
	released chan struct{}
}

// NewTicket creates a ticket with one outstanding reference (the
// creator's own). Call Release when the creator is done with it, exactly
// like every clone.
func NewTicket() Ticket {
	c := &atomic.Int64{}
	c.Store(1)
	return Ticket{count: c, released: make(chan struct{})}
}

// Clone adds one outstanding reference, returning a ticket that shares
// the same underlying refcount. Call once per consumer the bundle is
// fanned out to, before handing the ticket to that consumer.
func (t Ticket) Clone() Ticket {
	t.count.Add(1)
	return t
}

// Release drops one outstanding reference. When the count reaches zero,
// Done() becomes ready.
func (t Ticket) Release() {
	if t.count.Add(-1) == 0 {
		close(t.released)
	}
}

// Done returns a channel that becomes ready once every clone of this
// ticket has been released — the signal the channel loop waits on
// before asking the stage for its next tick (spec §5's ticket protocol).
func (t Ticket) Done() <-chan struct{} {
	return t.released
}
