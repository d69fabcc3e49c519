package collector

import (
	"context"
	"fmt"

	"github.com/SierraSoftworks/automate/pkg/core"
)

// DifferentialSource fetches the complete current state of some external
// collection. Identifier must be stable across fetches for the same item.
type DifferentialSource[T any, ID comparable] interface {
	// Kind names the source type; it scopes the state partition.
	Kind() string

	// Key identifies this source instance within its kind.
	Key() string

	// Identifier extracts the stable identity of an item.
	Identifier(item T) ID

	// Fetch returns the full current collection.
	Fetch(ctx context.Context) ([]T, error)
}

// Changes is the outcome of one differential collection.
type Changes[T any, ID comparable] struct {
	// Added holds items present now that were absent from the last run.
	Added []T

	// Removed holds identifiers from the last run that are now gone.
	Removed []ID
}

// Differential detects additions and removals between consecutive fetches
// of a source.
type Differential[T any, ID comparable] struct {
	store  core.KeyValueStore
	source DifferentialSource[T, ID]
}

// NewDifferential creates a differential collector over source, persisting
// its seen-ID set in store.
func NewDifferential[T any, ID comparable](store core.KeyValueStore, source DifferentialSource[T, ID]) *Differential[T, ID] {
	return &Differential[T, ID]{store: store, source: source}
}

func (c *Differential[T, ID]) partition() string {
	return "collector::" + c.source.Kind()
}

// Collect fetches the source and reports what changed since the last run.
// The full current ID set is persisted on every successful run, so items
// that disappear and later reappear are announced again.
func (c *Differential[T, ID]) Collect(ctx context.Context) (Changes[T, ID], error) {
	items, err := c.source.Fetch(ctx)
	if err != nil {
		return Changes[T, ID]{}, fmt.Errorf("failed to fetch %s: %w", c.source.Kind(), err)
	}

	known, _, err := core.Get[[]ID](ctx, c.store, c.partition(), c.source.Key())
	if err != nil {
		return Changes[T, ID]{}, err
	}
	knownSet := make(map[ID]bool, len(known))
	for _, id := range known {
		knownSet[id] = true
	}

	var changes Changes[T, ID]
	seen := make(map[ID]bool, len(items))
	current := make([]ID, 0, len(items))
	for _, item := range items {
		id := c.source.Identifier(item)
		if seen[id] {
			continue
		}
		seen[id] = true
		current = append(current, id)
		if !knownSet[id] {
			changes.Added = append(changes.Added, item)
		}
	}
	for _, id := range known {
		if !seen[id] {
			changes.Removed = append(changes.Removed, id)
		}
	}

	if err := core.Set(ctx, c.store, c.partition(), c.source.Key(), current); err != nil {
		return Changes[T, ID]{}, err
	}
	return changes, nil
}

// Reset forgets the persisted ID set: the next Collect reports the whole
// collection as added.
func (c *Differential[T, ID]) Reset(ctx context.Context) error {
	return c.store.Remove(ctx, c.partition(), c.source.Key())
}
