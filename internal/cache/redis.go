package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// purgeBatch is the SCAN page size and the DEL batch size used by Purge.
const purgeBatch = 500

// RedisOptions configures the Redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// PurgeMatch is the SCAN pattern Purge deletes (e.g. "cep:*").
	// Empty disables Purge so a shared Redis is never flushed wholesale.
	PurgeMatch string
}

// Redis is a cache backed by a shared Redis server. Unlike Memory it reports
// connection faults to the caller, which decides whether to degrade.
type Redis struct {
	rdb        *redis.Client
	purgeMatch string
}

// NewRedis creates a Redis-backed cache. The connection is established lazily.
func NewRedis(opts RedisOptions) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &Redis{rdb: rdb, purgeMatch: opts.PurgeMatch}
}

// Get retrieves a value by key. redis.Nil is reported as a plain miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: redis get: %w", err)
	}
	return val, true, nil
}

// Set stores a value with the given TTL.
func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, key, val, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

// Delete removes a value.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache: redis del: %w", err)
	}
	return nil
}

// Purge deletes every key matching the configured pattern.
func (r *Redis) Purge(ctx context.Context) error {
	if r.purgeMatch == "" {
		return nil
	}
	iter := r.rdb.Scan(ctx, 0, r.purgeMatch, purgeBatch).Iterator()
	batch := make([]string, 0, purgeBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == purgeBatch {
			if err := r.rdb.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("cache: redis purge: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache: redis scan: %w", err)
	}
	if len(batch) > 0 {
		if err := r.rdb.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("cache: redis purge: %w", err)
		}
	}
	return nil
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
