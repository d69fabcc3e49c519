package collector

import (
	"context"
	"fmt"

	"github.com/SierraSoftworks/automate/pkg/core"
)

// IncrementalSource fetches items newer than a watermark. The source owns
// its ordering: FetchSince returns both the new items and the watermark to
// resume from next time.
type IncrementalSource[T any, W any] interface {
	// Kind names the source type; it scopes the state partition.
	Kind() string

	// Key identifies this source instance within its kind.
	Key() string

	// FetchSince returns items strictly newer than since, plus the
	// watermark covering them. A nil since asks for everything.
	FetchSince(ctx context.Context, since *W) ([]T, W, error)
}

// Incremental collects only items that appeared after the last run.
type Incremental[T any, W any] struct {
	store  core.KeyValueStore
	source IncrementalSource[T, W]
}

// NewIncremental creates an incremental collector over source, persisting
// its watermark in store.
func NewIncremental[T any, W any](store core.KeyValueStore, source IncrementalSource[T, W]) *Incremental[T, W] {
	return &Incremental[T, W]{store: store, source: source}
}

func (c *Incremental[T, W]) partition() string {
	return "collector::" + c.source.Kind()
}

// Collect fetches items newer than the stored watermark. The watermark only
// advances when items were actually returned, so an empty collection never
// moves the resume point.
func (c *Incremental[T, W]) Collect(ctx context.Context) ([]T, error) {
	var since *W
	watermark, ok, err := core.Get[W](ctx, c.store, c.partition(), c.source.Key())
	if err != nil {
		return nil, err
	}
	if ok {
		since = &watermark
	}

	items, next, err := c.source.FetchSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", c.source.Kind(), err)
	}

	if len(items) > 0 {
		if err := core.Set(ctx, c.store, c.partition(), c.source.Key(), next); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// Reset forgets the persisted watermark: the next Collect fetches from the
// beginning.
func (c *Incremental[T, W]) Reset(ctx context.Context) error {
	return c.store.Remove(ctx, c.partition(), c.source.Key())
}
