package testutil

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// SetCall records one Set invocation on a FakeCache.
type SetCall struct {
	Key string
	Val []byte
	TTL time.Duration
}

// FakeCache is an in-memory cache that records writes. GetErr and SetErr
// simulate a faulty backend. TTLs are recorded but not enforced.
type FakeCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	sets   []SetCall
	gets   int
	GetErr error
	SetErr error
}

// NewFakeCache returns an empty FakeCache.
func NewFakeCache() *FakeCache {
	return &FakeCache{data: make(map[string][]byte)}
}

// Put seeds a value without recording a Set call.
func (c *FakeCache) Put(key string, val []byte) {
	c.mu.Lock()
	c.data[key] = bytes.Clone(val)
	c.mu.Unlock()
}

// Get returns the stored value, or GetErr when set.
func (c *FakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.GetErr != nil {
		return nil, false, c.GetErr
	}
	v, ok := c.data[key]
	return bytes.Clone(v), ok, nil
}

// Set records the call and stores the value unless SetErr is set.
func (c *FakeCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets = append(c.sets, SetCall{Key: key, Val: bytes.Clone(val), TTL: ttl})
	if c.SetErr != nil {
		return c.SetErr
	}
	c.data[key] = bytes.Clone(val)
	return nil
}

// Delete removes a value.
func (c *FakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return nil
}

// Purge removes all values.
func (c *FakeCache) Purge(context.Context) error {
	c.mu.Lock()
	clear(c.data)
	c.mu.Unlock()
	return nil
}

// Has reports whether key is stored.
func (c *FakeCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// Sets returns a copy of all recorded Set calls.
func (c *FakeCache) Sets() []SetCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SetCall(nil), c.sets...)
}

// Gets returns how many times Get was invoked.
func (c *FakeCache) Gets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets
}
