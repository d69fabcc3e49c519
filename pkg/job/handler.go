package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SierraSoftworks/automate/pkg/core"
)

// Handler processes the messages of one queue partition. One concrete
// handler type exists per kind of work.
type Handler[T any] interface {
	// Partition names the queue partition this handler consumes.
	Partition() string

	// Handle processes a single decoded payload. Returning an error leaves
	// the message queued; it is redelivered once its reservation lapses.
	Handle(ctx context.Context, payload T) error
}

// TimeoutProvider lets a handler override the default reservation window.
type TimeoutProvider interface {
	Timeout() time.Duration
}

// Dispatch encodes payload as JSON and enqueues it onto partition.
func Dispatch[T any](ctx context.Context, q core.Queue, partition string, payload T, opts ...Option) error {
	options := NewOptions()
	for _, opt := range opts {
		opt.Apply(options)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload for %q: %w", partition, err)
	}

	return q.Enqueue(ctx, partition, data, core.EnqueueOptions{
		Key:   options.Key,
		Delay: options.Delay,
	})
}
