package cache

// ScopedKeyer wraps a Keyer with a prefix so several tenants can share one
// backend. The HTTP viewer scopes frame keys by session, because colors are
// drawn per session.
//
//	sessionKeyer := NewScopedKeyer(NewDefaultKeyer(), "session:"+id+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// FrameKey generates a prefixed key for frame caching.
func (k *ScopedKeyer) FrameKey(traceDigest string, opts FrameKeyOpts) string {
	return k.prefix + k.inner.FrameKey(traceDigest, opts)
}

// RootsKey generates a prefixed key for root summaries.
func (k *ScopedKeyer) RootsKey(traceDigest string) string {
	return k.prefix + k.inner.RootsKey(traceDigest)
}
