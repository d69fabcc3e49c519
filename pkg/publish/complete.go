package publish

import (
	"context"
	"fmt"

	"github.com/SierraSoftworks/automate/pkg/core"
	"github.com/SierraSoftworks/automate/pkg/todoist"
)

// TodoistComplete closes the task an earlier upsert created for a unique
// key, then forgets the key. Keys no task was ever recorded for are a no-op,
// so completions arriving ahead of (or instead of) an upsert are harmless.
type TodoistComplete struct {
	store      core.KeyValueStore
	defaults   todoist.Config
	clientOpts []todoist.ClientOption
}

// NewTodoistComplete creates the handler. defaults is the daemon-wide
// Todoist connection config; payloads may override it per job.
func NewTodoistComplete(store core.KeyValueStore, defaults todoist.Config, opts ...todoist.ClientOption) *TodoistComplete {
	return &TodoistComplete{store: store, defaults: defaults, clientOpts: opts}
}

// Partition implements job.Handler.
func (h *TodoistComplete) Partition() string { return CompletePartition }

// Handle implements job.Handler.
func (h *TodoistComplete) Handle(ctx context.Context, payload CompleteTaskPayload) error {
	state, known, err := core.Get[TaskState](ctx, h.store, statePartition, payload.UniqueKey)
	if err != nil {
		return err
	}
	if !known {
		return nil
	}

	client, _, err := clientFor(h.defaults, payload.Config, h.clientOpts)
	if err != nil {
		return err
	}

	if err := client.CloseTask(ctx, state.ID); err != nil {
		return fmt.Errorf("failed to close task %q: %w", state.ID, err)
	}
	return h.store.Remove(ctx, statePartition, payload.UniqueKey)
}
