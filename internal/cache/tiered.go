package cache

import (
	"context"
	"errors"
	"time"
)

// Tiered fronts a shared Redis cache with an in-process Memory cache.
// Reads check L1 first, then L2; L2 hits are promoted into L1 for promoteTTL.
// Writes go to L2 first so other replicas see the entry, then to L1.
type Tiered struct {
	l1         *Memory
	l2         *Redis
	promoteTTL time.Duration
}

// NewTiered creates a two-level cache.
func NewTiered(l1 *Memory, l2 *Redis, promoteTTL time.Duration) *Tiered {
	if promoteTTL <= 0 {
		promoteTTL = time.Minute
	}
	return &Tiered{l1: l1, l2: l2, promoteTTL: promoteTTL}
}

// Get checks L1, then L2. An L2 fault is returned alongside the miss.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, _ := t.l1.Get(ctx, key); ok {
		return v, true, nil
	}
	v, ok, err := t.l2.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = t.l1.Set(ctx, key, v, t.promoteTTL)
	return v, true, nil
}

// Set writes the value to L2 and L1. L1 is populated even when L2 fails so
// this replica still benefits; the L2 error is returned.
func (t *Tiered) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	err := t.l2.Set(ctx, key, val, ttl)
	_ = t.l1.Set(ctx, key, val, min(ttl, t.promoteTTL))
	return err
}

// Delete removes the value from both levels.
func (t *Tiered) Delete(ctx context.Context, key string) error {
	_ = t.l1.Delete(ctx, key)
	return t.l2.Delete(ctx, key)
}

// Purge clears both levels.
func (t *Tiered) Purge(ctx context.Context) error {
	return errors.Join(t.l1.Purge(ctx), t.l2.Purge(ctx))
}

// Ping checks the L2 connection.
func (t *Tiered) Ping(ctx context.Context) error {
	return t.l2.Ping(ctx)
}

// Close closes the L2 client.
func (t *Tiered) Close() error {
	return t.l2.Close()
}
