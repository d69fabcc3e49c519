package publish

import (
	"context"
	"fmt"

	"github.com/SierraSoftworks/automate/pkg/core"
	"github.com/SierraSoftworks/automate/pkg/todoist"
)

// TodoistUpsert publishes tasks tracked across runs: a payload's unique key
// maps onto at most one external task, created on first sight and updated
// when its content fingerprint changes. Payloads whose fingerprint matches
// the stored state are skipped without an API call.
type TodoistUpsert struct {
	store      core.KeyValueStore
	defaults   todoist.Config
	clientOpts []todoist.ClientOption
}

// NewTodoistUpsert creates the handler. defaults is the daemon-wide Todoist
// connection config; payloads may override it per job.
func NewTodoistUpsert(store core.KeyValueStore, defaults todoist.Config, opts ...todoist.ClientOption) *TodoistUpsert {
	return &TodoistUpsert{store: store, defaults: defaults, clientOpts: opts}
}

// Partition implements job.Handler.
func (h *TodoistUpsert) Partition() string { return UpsertPartition }

// Handle implements job.Handler.
func (h *TodoistUpsert) Handle(ctx context.Context, payload UpsertTaskPayload) error {
	if payload.UniqueKey == "" {
		return fmt.Errorf("upsert payload for %q carries no unique key", payload.Title)
	}

	client, config, err := clientFor(h.defaults, payload.Config, h.clientOpts)
	if err != nil {
		return err
	}

	hash := payload.TaskContent.Hash()
	state, known, err := core.Get[TaskState](ctx, h.store, statePartition, payload.UniqueKey)
	if err != nil {
		return err
	}

	if known {
		if state.Hash == hash {
			return nil
		}
		return h.update(ctx, client, payload, state, hash)
	}
	return h.create(ctx, client, config, payload, hash)
}

func (h *TodoistUpsert) update(ctx context.Context, client *todoist.Client, payload UpsertTaskPayload, state TaskState, hash string) error {
	duration, durationUnit := durationArgs(payload.DurationMinutes)
	task, err := client.UpdateTask(ctx, state.ID, todoist.UpdateTaskArgs{
		Content:      payload.Title,
		Description:  payload.Description,
		Priority:     payload.Priority,
		DueDate:      payload.DueDate,
		DueDatetime:  payload.DueDatetime,
		DueString:    payload.DueString,
		DueLang:      "en",
		Duration:     duration,
		DurationUnit: durationUnit,
	})
	if err != nil {
		return fmt.Errorf("failed to update task %q: %w", payload.Title, err)
	}

	// An item changing again after completion means there is new work to do.
	if task.IsCompleted {
		if err := client.ReopenTask(ctx, state.ID); err != nil {
			return fmt.Errorf("failed to reopen task %q: %w", payload.Title, err)
		}
	}

	return core.Set(ctx, h.store, statePartition, payload.UniqueKey, TaskState{
		ID:    state.ID,
		Hash:  hash,
		Title: payload.Title,
	})
}

func (h *TodoistUpsert) create(ctx context.Context, client *todoist.Client, config todoist.Config, payload UpsertTaskPayload, hash string) error {
	projectID, err := resolveProject(ctx, h.store, client, config.Project)
	if err != nil {
		return err
	}
	sectionID, err := resolveSection(ctx, h.store, client, projectID, config.Section)
	if err != nil {
		return err
	}

	duration, durationUnit := durationArgs(payload.DurationMinutes)
	task, err := client.CreateTask(ctx, todoist.CreateTaskArgs{
		Content:      payload.Title,
		Description:  payload.Description,
		ProjectID:    projectID,
		SectionID:    sectionID,
		Priority:     payload.Priority,
		DueDate:      payload.DueDate,
		DueDatetime:  payload.DueDatetime,
		DueString:    payload.DueString,
		DueLang:      "en",
		Duration:     duration,
		DurationUnit: durationUnit,
	})
	if err != nil {
		return fmt.Errorf("failed to create task %q: %w", payload.Title, err)
	}

	return core.Set(ctx, h.store, statePartition, payload.UniqueKey, TaskState{
		ID:    task.ID,
		Hash:  hash,
		Title: payload.Title,
	})
}
