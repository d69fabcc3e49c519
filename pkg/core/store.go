package core

import (
	"context"
	"time"
)

// KeyValueStore is the persistence contract for partitioned key/value state.
// Values are opaque JSON documents; Get returns (nil, nil) when the key does
// not exist.
type KeyValueStore interface {
	Get(ctx context.Context, partition, key string) ([]byte, error)
	Set(ctx context.Context, partition, key string, value []byte) error
	Remove(ctx context.Context, partition, key string) error
	List(ctx context.Context, partition string) ([]Entry, error)
}

// EnqueueOptions control message placement on the queue.
type EnqueueOptions struct {
	// Key is the idempotency key. When set, an existing message with the same
	// (partition, key) pair is replaced and any in-flight reservation for it
	// is invalidated. When empty, a random key is generated.
	Key string

	// Delay postpones visibility: the message cannot be claimed until
	// now+Delay has passed.
	Delay time.Duration
}

// Queue is the persistence contract for the durable message queue.
type Queue interface {
	// Enqueue adds a message to a partition.
	Enqueue(ctx context.Context, partition string, payload []byte, opts EnqueueOptions) error

	// Dequeue claims the next visible message in a partition, hiding it from
	// other consumers for reserveFor. It returns nil when nothing is
	// claimable.
	Dequeue(ctx context.Context, partition string, reserveFor time.Duration) (*Message, error)

	// Complete removes a claimed message. Completing a message whose
	// reservation has lapsed is a no-op.
	Complete(ctx context.Context, partition string, msg *Message) error
}

// Store combines the persistence contracts implemented by a database backend.
type Store interface {
	KeyValueStore
	Queue
}
