package cache

// ScopedKeyer wraps a Keyer with a prefix so several data services can
// share one cache backend.
//
// Example usage:
//
//	// Keys for the service at a given base URL
//	keyer := NewServiceKeyer("http://localhost:8000")
//
//	// Explicit prefix
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "staging:")
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

// NewServiceKeyer scopes keys to a data-service base URL. The URL is
// hashed so keys stay short and free of separators.
func NewServiceKeyer(baseURL string) Keyer {
	return NewScopedKeyer(nil, hashKey("svc", baseURL)[:16]+":")
}

// RequestKey generates a prefixed request key.
func (k *ScopedKeyer) RequestKey(method, path string) string {
	return k.prefix + k.inner.RequestKey(method, path)
}
