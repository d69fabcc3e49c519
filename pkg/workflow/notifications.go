package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/SierraSoftworks/automate/pkg/collector"
	"github.com/SierraSoftworks/automate/pkg/core"
	"github.com/SierraSoftworks/automate/pkg/github"
	"github.com/SierraSoftworks/automate/pkg/publish"
	"github.com/SierraSoftworks/automate/pkg/todoist"
)

// NotificationsPartition is the queue partition feeding the notification
// workflow.
const NotificationsPartition = "workflow::github-notifications"

// GitHubNotificationsJob configures the notification workflow. The feed is
// account-wide, so at most one schedule of this kind is useful per token.
type GitHubNotificationsJob struct {
	Todoist todoist.Config `yaml:"todoist" json:"todoist,omitempty"`
}

// String returns the stable identity used as the cron idempotency key.
func (j GitHubNotificationsJob) String() string {
	return "github-notifications"
}

// GitHubNotifications mirrors the notification feed into tracked tasks: a
// thread appearing files an upsert, a thread disappearing (handled on
// GitHub's side) completes the task it created. Change detection is
// differential over the full feed.
type GitHubNotifications struct {
	store  core.Store
	client *github.Client
}

// NewGitHubNotifications creates the workflow handler over store and client.
func NewGitHubNotifications(store core.Store, client *github.Client) *GitHubNotifications {
	return &GitHubNotifications{store: store, client: client}
}

// Partition implements job.Handler.
func (w *GitHubNotifications) Partition() string { return NotificationsPartition }

// Handle implements job.Handler.
func (w *GitHubNotifications) Handle(ctx context.Context, payload GitHubNotificationsJob) error {
	source := github.NewNotificationsSource(w.client)
	changes, err := collector.NewDifferential[github.Notification, string](w.store, source).Collect(ctx)
	if err != nil {
		return err
	}

	for _, item := range changes.Added {
		err := publish.DispatchUpsert(ctx, w.store, publish.UpsertTaskPayload{
			UniqueKey: notificationKey(item.ID),
			TaskContent: publish.TaskContent{
				Title: fmt.Sprintf("[github:%s](%s): %s (%s)",
					item.Repository.FullName, item.Repository.HTMLURL, item.Subject.Title, item.Reason),
				Priority:    reasonPriority(item.Reason),
				DueDatetime: item.UpdatedAt.Format(time.RFC3339),
			},
			Config: payload.Todoist,
		})
		if err != nil {
			return err
		}
	}

	for _, id := range changes.Removed {
		err := publish.DispatchComplete(ctx, w.store, publish.CompleteTaskPayload{
			UniqueKey: notificationKey(id),
			Config:    payload.Todoist,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func notificationKey(threadID string) string {
	return "github::notification::" + threadID
}

// reasonPriority maps notification reasons onto Todoist's 1 (normal) to
// 4 (urgent) scale.
func reasonPriority(reason string) int {
	switch reason {
	case "security_alert":
		return 4
	case "approval_requested", "assign", "mention", "team_mention", "review_requested":
		return 3
	case "subscribed", "comment", "author":
		return 2
	default:
		return 1
	}
}
