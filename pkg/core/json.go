package core

import (
	"context"
	"encoding/json"
	"fmt"
)

// KeyValue pairs a key with its decoded value.
type KeyValue[T any] struct {
	Key   string
	Value T
}

// Get reads and decodes a value from the store. The second return value is
// false when the key does not exist.
func Get[T any](ctx context.Context, store KeyValueStore, partition, key string) (T, bool, error) {
	var value T
	data, err := store.Get(ctx, partition, key)
	if err != nil {
		return value, false, err
	}
	if data == nil {
		return value, false, nil
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, false, fmt.Errorf("failed to decode value for %q in %q: %w", key, partition, err)
	}
	return value, true, nil
}

// Set encodes and writes a value to the store.
func Set[T any](ctx context.Context, store KeyValueStore, partition, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %q in %q: %w", key, partition, err)
	}
	return store.Set(ctx, partition, key, data)
}

// List reads and decodes every value in a partition.
func List[T any](ctx context.Context, store KeyValueStore, partition string) ([]KeyValue[T], error) {
	entries, err := store.List(ctx, partition)
	if err != nil {
		return nil, err
	}

	values := make([]KeyValue[T], 0, len(entries))
	for _, entry := range entries {
		var value T
		if err := json.Unmarshal(entry.Value, &value); err != nil {
			return nil, fmt.Errorf("failed to decode value for %q in %q: %w", entry.Key, partition, err)
		}
		values = append(values, KeyValue[T]{Key: entry.Key, Value: value})
	}
	return values, nil
}
