package publish

import (
	"context"
	"fmt"

	"github.com/SierraSoftworks/automate/pkg/core"
	"github.com/SierraSoftworks/automate/pkg/todoist"
)

// TodoistCreate publishes one-shot tasks: every payload becomes a fresh task
// in the configured project and section.
type TodoistCreate struct {
	store      core.KeyValueStore
	defaults   todoist.Config
	clientOpts []todoist.ClientOption
}

// NewTodoistCreate creates the handler. defaults is the daemon-wide Todoist
// connection config; payloads may override it per job.
func NewTodoistCreate(store core.KeyValueStore, defaults todoist.Config, opts ...todoist.ClientOption) *TodoistCreate {
	return &TodoistCreate{store: store, defaults: defaults, clientOpts: opts}
}

// Partition implements job.Handler.
func (h *TodoistCreate) Partition() string { return CreatePartition }

// Handle implements job.Handler.
func (h *TodoistCreate) Handle(ctx context.Context, payload CreateTaskPayload) error {
	client, config, err := clientFor(h.defaults, payload.Config, h.clientOpts)
	if err != nil {
		return err
	}

	projectID, err := resolveProject(ctx, h.store, client, config.Project)
	if err != nil {
		return err
	}
	sectionID, err := resolveSection(ctx, h.store, client, projectID, config.Section)
	if err != nil {
		return err
	}

	duration, durationUnit := durationArgs(payload.DurationMinutes)
	_, err = client.CreateTask(ctx, todoist.CreateTaskArgs{
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
	return nil
}
