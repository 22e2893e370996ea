package cache

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"
)

// entry wraps a cached value with its expiration time.
type entry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is an in-process W-TinyLFU cache backed by otter.
type Memory struct {
	cache *otter.Cache[string, entry]
}

// NewMemory creates an in-memory cache bounded to maxSize entries. maxTTL
// caps how long otter keeps any entry; per-entry TTLs passed to Set are
// enforced on read.
func NewMemory(maxSize int, maxTTL time.Duration) (*Memory, error) {
	c, err := otter.New[string, entry](&otter.Options[string, entry]{
		MaximumSize:      maxSize,
		ExpiryCalculator: otter.ExpiryWriting[string, entry](maxTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("cache: create memory cache: %w", err)
	}
	return &Memory{cache: c}, nil
}

// Get returns a copy of the value if present and not expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.cache.GetIfPresent(key)
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(e.expiresAt) {
		m.cache.Invalidate(key)
		return nil, false, nil
	}
	return bytes.Clone(e.data), true, nil
}

// Set stores a copy of val with per-entry TTL.
func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.cache.Set(key, entry{
		data:      bytes.Clone(val),
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

// Delete removes a value from the cache.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.cache.Invalidate(key)
	return nil
}

// Purge removes all values from the cache.
func (m *Memory) Purge(_ context.Context) error {
	m.cache.InvalidateAll()
	return nil
}
