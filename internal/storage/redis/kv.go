// Package redis implements the kv.Store interface on a Redis server.
package redis

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/storefront/internal/storage/kv"
)

var _ kv.Store = (*KV)(nil)

// KV is a Redis-backed key-value slot store.
type KV struct {
	client *redis.Client
}

// New connects to the Redis server at the given URL
// (redis://[user:pass@]host:port/db).
func New(url string) (*KV, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	return &KV{client: redis.NewClient(opts)}, nil
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := k.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, kv.ErrNotFound
		}
		return nil, errors.Wrapf(err, "redis get %q", key)
	}
	return data, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	// Slots are durable session state, not cache entries: no TTL.
	if err := k.client.Set(ctx, key, value, 0).Err(); err != nil {
		return errors.Wrapf(err, "redis set %q", key)
	}
	return nil
}

func (k *KV) Delete(ctx context.Context, key string) error {
	if err := k.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrapf(err, "redis del %q", key)
	}
	return nil
}

// Ping reports whether the server is reachable. Used by readiness checks.
func (k *KV) Ping(ctx context.Context) error {
	return k.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (k *KV) Close() error {
	return k.client.Close()
}
