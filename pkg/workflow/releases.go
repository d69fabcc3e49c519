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

// ReleasesPartition is the queue partition feeding the release workflow.
const ReleasesPartition = "workflow::github-releases"

// GitHubReleasesJob configures one watched repository. It doubles as the
// workflow's queue payload, so a configured schedule carries everything the
// handler needs.
type GitHubReleasesJob struct {
	Repository string `yaml:"repository" json:"repository"`

	Todoist todoist.Config `yaml:"todoist" json:"todoist,omitempty"`
}

// String returns the stable identity used as the cron idempotency key.
func (j GitHubReleasesJob) String() string {
	return "github-releases::" + j.Repository
}

// GitHubReleases watches repository release feeds and files a task for each
// new release. Change detection is incremental: the release publication time
// is the watermark, persisted per repository.
type GitHubReleases struct {
	store  core.Store
	client *github.Client
}

// NewGitHubReleases creates the workflow handler over store and client.
func NewGitHubReleases(store core.Store, client *github.Client) *GitHubReleases {
	return &GitHubReleases{store: store, client: client}
}

// Partition implements job.Handler.
func (w *GitHubReleases) Partition() string { return ReleasesPartition }

// Handle implements job.Handler. Each new release becomes one create-task
// dispatch; the publisher picks those up on its own partition.
func (w *GitHubReleases) Handle(ctx context.Context, payload GitHubReleasesJob) error {
	source := github.NewReleasesSource(w.client, payload.Repository)
	releases, err := collector.NewIncremental[github.Release, time.Time](w.store, source).Collect(ctx)
	if err != nil {
		return err
	}

	for _, release := range releases {
		err := publish.DispatchCreate(ctx, w.store, publish.CreateTaskPayload{
			TaskContent: publish.TaskContent{
				Title: fmt.Sprintf("[github:%s](%s): Released %s (%s)",
					payload.Repository, release.HTMLURL, release.Name, release.TagName),
				Description: release.Body,
				DueString:   "today",
			},
			Config: payload.Todoist,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
