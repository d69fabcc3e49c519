package publish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SierraSoftworks/automate/pkg/core"
	"github.com/SierraSoftworks/automate/pkg/job"
	"github.com/SierraSoftworks/automate/pkg/todoist"
)

// Queue partitions consumed by the publisher jobs.
const (
	CreatePartition   = "todoist::create-task"
	UpsertPartition   = "todoist::upsert-task"
	CompletePartition = "todoist::complete-task"
)

// statePartition holds one TaskState per upserted logical item.
const statePartition = "todoist::task"

// Project and section listings change rarely; they are cached to avoid
// hitting the API on every published task.
const (
	projectsPartition = "todoist::projects"
	sectionsPartition = "todoist::sections"
	lookupKey         = "default"
	lookupTTL         = 24 * time.Hour
)

// defaultProject receives tasks when no project is configured.
const defaultProject = "Inbox"

// TaskContent is the visible portion of a published task.
type TaskContent struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    int    `json:"priority,omitempty"`

	// Due accepts a date ("2026-01-02"), an RFC 3339 datetime or a natural
	// language phrase ("today"); at most one should be set.
	DueDate     string `json:"due_date,omitempty"`
	DueDatetime string `json:"due_datetime,omitempty"`
	DueString   string `json:"due_string,omitempty"`

	DurationMinutes int `json:"duration_minutes,omitempty"`
}

// Hash fingerprints the task content. Upserts compare it against the stored
// fingerprint to skip API calls for unchanged items.
func (c TaskContent) Hash() string {
	data, _ := json.Marshal(c)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// TaskState records the external task created for one logical item, keyed by
// the item's unique key in the state partition.
type TaskState struct {
	ID    string `json:"id"`
	Hash  string `json:"hash"`
	Title string `json:"title,omitempty"`
}

// CreateTaskPayload asks for a fresh task, with optional per-job connection
// overrides.
type CreateTaskPayload struct {
	TaskContent

	Config todoist.Config `json:"config,omitempty"`
}

// UpsertTaskPayload creates or updates the task tracked under UniqueKey.
type UpsertTaskPayload struct {
	UniqueKey string `json:"unique_key"`

	TaskContent

	Config todoist.Config `json:"config,omitempty"`
}

// CompleteTaskPayload closes the task tracked under UniqueKey.
type CompleteTaskPayload struct {
	UniqueKey string `json:"unique_key"`

	Config todoist.Config `json:"config,omitempty"`
}

// DispatchCreate enqueues a create-task job.
func DispatchCreate(ctx context.Context, q core.Queue, payload CreateTaskPayload, opts ...job.Option) error {
	return job.Dispatch(ctx, q, CreatePartition, payload, opts...)
}

// DispatchUpsert enqueues an upsert-task job.
func DispatchUpsert(ctx context.Context, q core.Queue, payload UpsertTaskPayload, opts ...job.Option) error {
	return job.Dispatch(ctx, q, UpsertPartition, payload, opts...)
}

// DispatchComplete enqueues a complete-task job.
func DispatchComplete(ctx context.Context, q core.Queue, payload CompleteTaskPayload, opts ...job.Option) error {
	return job.Dispatch(ctx, q, CompletePartition, payload, opts...)
}

// clientFor builds a Todoist client from the daemon defaults merged with a
// payload's overrides.
func clientFor(defaults, overrides todoist.Config, opts []todoist.ClientOption) (*todoist.Client, todoist.Config, error) {
	config := defaults.Merge(overrides)
	client, err := todoist.NewClient(config.APIKey, opts...)
	if err != nil {
		return nil, config, err
	}
	return client, config, nil
}

// resolveProject returns the id of the named project, listing projects
// through the cache.
func resolveProject(ctx context.Context, store core.KeyValueStore, client *todoist.Client, name string) (string, error) {
	if name == "" {
		name = defaultProject
	}

	projects, err := core.Cached(ctx, store, projectsPartition, lookupKey, lookupTTL, func(ctx context.Context) ([]todoist.Project, error) {
		return client.Projects(ctx)
	})
	if err != nil {
		return "", err
	}

	for _, project := range projects {
		if project.Name == name {
			return project.ID, nil
		}
	}
	return "", fmt.Errorf("todoist project %q not found", name)
}

// resolveSection returns the id of the named section within a project, or ""
// when no section is configured.
func resolveSection(ctx context.Context, store core.KeyValueStore, client *todoist.Client, projectID, name string) (string, error) {
	if name == "" {
		return "", nil
	}

	sections, err := core.Cached(ctx, store, sectionsPartition, lookupKey, lookupTTL, func(ctx context.Context) ([]todoist.Section, error) {
		return client.Sections(ctx)
	})
	if err != nil {
		return "", err
	}

	for _, section := range sections {
		if section.ProjectID == projectID && section.Name == name {
			return section.ID, nil
		}
	}
	return "", fmt.Errorf("todoist section %q not found in project %q", name, projectID)
}

func durationArgs(minutes int) (int, string) {
	if minutes <= 0 {
		return 0, ""
	}
	return minutes, "minute"
}
