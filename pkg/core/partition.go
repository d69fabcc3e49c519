package core

import (
	"context"
	"time"
)

// Partition is a typed view over a single key/value partition. It spares
// callers from repeating the partition name and payload type on every
// operation.
type Partition[T any] struct {
	store KeyValueStore
	name  string
}

// NewPartition binds a store and partition name to a value type.
func NewPartition[T any](store KeyValueStore, name string) *Partition[T] {
	return &Partition[T]{store: store, name: name}
}

// Name returns the partition name.
func (p *Partition[T]) Name() string { return p.name }

// Get reads the value stored under key.
func (p *Partition[T]) Get(ctx context.Context, key string) (T, bool, error) {
	return Get[T](ctx, p.store, p.name, key)
}

// Set writes the value stored under key.
func (p *Partition[T]) Set(ctx context.Context, key string, value T) error {
	return Set(ctx, p.store, p.name, key, value)
}

// Remove deletes the value stored under key.
func (p *Partition[T]) Remove(ctx context.Context, key string) error {
	return p.store.Remove(ctx, p.name, key)
}

// List returns every key and value in the partition.
func (p *Partition[T]) List(ctx context.Context) ([]KeyValue[T], error) {
	return List[T](ctx, p.store, p.name)
}

// Cached returns the value under key, invoking build on a miss or after the
// TTL has passed.
func (p *Partition[T]) Cached(ctx context.Context, key string, ttl time.Duration, build BuildFunc[T]) (T, error) {
	return Cached(ctx, p.store, p.name, key, ttl, build)
}
