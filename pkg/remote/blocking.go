package remote

// Blocking presents the identical synchronous facade as pkg/link.Link
// over a *Remote. Every Remote method is already blocking (the RPC
// client calls are synchronous HTTP round-trips, and Go's goroutines
// already block on channel operations the way pkg/link's buffer pool
// does), so Blocking owns no async-specific state of its own: it exists
// purely so callers that type-switch on "does this satisfy the local
// facade" don't need a special case for the remote variant.
type Blocking struct {
	*Remote
}

// NewBlocking wraps r.
func NewBlocking(r *Remote) Blocking {
	return Blocking{Remote: r}
}
