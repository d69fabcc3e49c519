package webhook

import (
	"context"

	"github.com/SierraSoftworks/automate/pkg/core"
	"github.com/SierraSoftworks/automate/pkg/publish"
	"github.com/SierraSoftworks/automate/pkg/todoist"
)

// ForwardConfig describes one configured webhook endpoint and the task its
// deliveries turn into.
type ForwardConfig struct {
	// Name is the endpoint's path segment: deliveries arrive at
	// /webhooks/<name> and flow through the webhook::<name> partition.
	Name string `yaml:"name" json:"name"`

	// Title is the content of the created task. Defaults to the webhook
	// name when empty.
	Title string `yaml:"title" json:"title,omitempty"`

	// Priority is the task priority, in Todoist's 1 (normal) to 4 (urgent)
	// scale.
	Priority int `yaml:"priority" json:"priority,omitempty"`

	// Todoist overrides the daemon-wide connection config for this webhook.
	Todoist todoist.Config `yaml:"todoist" json:"todoist,omitempty"`
}

// Forwarder turns the deliveries of one configured webhook into create-task
// dispatches. One forwarder instance runs per configured webhook.
type Forwarder struct {
	queue  core.Queue
	config ForwardConfig
}

// NewForwarder creates the forwarder for one configured webhook.
func NewForwarder(q core.Queue, config ForwardConfig) *Forwarder {
	return &Forwarder{queue: q, config: config}
}

// Partition implements job.Handler.
func (f *Forwarder) Partition() string {
	return Partition(f.config.Name)
}

// Handle implements job.Handler. The delivery body travels on the task
// description so the resulting task carries the original payload.
func (f *Forwarder) Handle(ctx context.Context, event Event) error {
	title := f.config.Title
	if title == "" {
		title = f.config.Name
	}

	return publish.DispatchCreate(ctx, f.queue, publish.CreateTaskPayload{
		TaskContent: publish.TaskContent{
			Title:       title,
			Description: event.Body,
			Priority:    f.config.Priority,
			DueString:   "today",
		},
		Config: f.config.Todoist,
	})
}
