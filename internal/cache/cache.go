// Package cache provides the resolution record cache backends.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values with a per-entry TTL. Implementations must be
// safe for concurrent use. Errors report backend faults; a missing key is
// (nil, false, nil), never an error.
type Cache interface {
	// Get retrieves a cached value by key.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// Delete removes a cached value.
	Delete(ctx context.Context, key string) error
	// Purge removes all cached values.
	Purge(ctx context.Context) error
}

var (
	_ Cache = (*Memory)(nil)
	_ Cache = (*Redis)(nil)
	_ Cache = (*Tiered)(nil)
)
