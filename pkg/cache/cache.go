// Package cache stores rendered artifacts so repeated requests skip layout
// and rendering.
//
// Three backends implement [Cache]:
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for the HTTP viewer
//   - [NullCache]: stores nothing, used with --no-cache
//
// Keys come from a [Keyer]. [ScopedKeyer] prefixes every key, which the
// HTTP viewer uses to give each view session its own namespace.
//
// Wrap any backend with [Instrument] to report hits, misses and writes to
// the observability cache hooks.
package cache

import (
	"context"
	"time"
)

// TTLs for cached entries.
const (
	// TTLArtifact bounds rendered files keyed by trace digest. The digest
	// changes with the trace, so entries only expire to reclaim space.
	TTLArtifact = 7 * 24 * time.Hour

	// TTLFrame bounds frames rendered for one view session.
	TTLFrame = 30 * time.Minute
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the entry for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the backend's resources.
	Close() error
}
