package core

import (
	"context"
	"time"
)

// cacheItem wraps a cached value with its expiry deadline.
type cacheItem[T any] struct {
	Value     T         `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BuildFunc produces a fresh value for the cache.
type BuildFunc[T any] func(ctx context.Context) (T, error)

// Cached returns the value stored under (partition, key) if it has not yet
// expired, invoking build and persisting the result otherwise. Lookups are
// not single-flighted: concurrent callers racing an expired entry may each
// invoke build, and the last write wins.
func Cached[T any](ctx context.Context, store KeyValueStore, partition, key string, ttl time.Duration, build BuildFunc[T]) (T, error) {
	item, ok, err := Get[cacheItem[T]](ctx, store, partition, key)
	if err != nil {
		return item.Value, err
	}
	if ok && item.ExpiresAt.After(time.Now()) {
		return item.Value, nil
	}

	value, err := build(ctx)
	if err != nil {
		return value, err
	}

	fresh := cacheItem[T]{Value: value, ExpiresAt: time.Now().Add(ttl)}
	if err := Set(ctx, store, partition, key, fresh); err != nil {
		return value, err
	}
	return value, nil
}
