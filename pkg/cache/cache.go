// Package cache stores rendered diagram previews.
//
// Layout is cheap and always recomputed, so the only thing worth caching is
// the output of the Graphviz renderer, which is a pure function of the DOT
// source. Keys are derived from a hash of that source with [PreviewKey].
//
// Three backends implement [Cache]:
//
//   - [FileCache]: hash-sharded JSON entries on disk, used by the CLI
//   - [RedisCache]: shared entries in Redis, used by the HTTP server
//   - [NullCache]: stores nothing, used with --no-cache and in tests
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the stored value and whether it was found.
	// A missing or expired entry is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the backend.
	Close() error
}

// Clearer is implemented by backends that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}
