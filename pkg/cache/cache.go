// Package cache stores data-service responses between runs.
//
// Three backends implement [Cache]: [FileCache] for the CLI, [RedisCache]
// for shared deployments and [NullCache] when caching is disabled. Keys are
// built by a [Keyer] so responses from different services never collide.
//
// Failed responses are never cached and nothing is retried here; a cache
// only short-circuits successful reads.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry owned by the cache.
	Clear(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Keyer derives cache keys for data-service requests.
type Keyer interface {
	// RequestKey returns the key of a request by method and path.
	RequestKey(method, path string) string
}

// DefaultKeyer builds unscoped keys of the form "http:METHOD:path".
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// RequestKey returns "http:METHOD:path".
func (DefaultKeyer) RequestKey(method, path string) string {
	return "http:" + method + ":" + path
}
