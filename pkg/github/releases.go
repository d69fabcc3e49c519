package github

import (
	"context"
	"time"
)

// ReleasesSource watches a repository's release feed. It is an incremental
// source: the publication timestamp is the watermark, so each collection
// only reports releases published after the last one seen.
type ReleasesSource struct {
	client *Client
	repo   string
}

// NewReleasesSource creates a release source for the repository given as
// "owner/name".
func NewReleasesSource(client *Client, repo string) *ReleasesSource {
	return &ReleasesSource{client: client, repo: repo}
}

// Kind implements collector.IncrementalSource.
func (s *ReleasesSource) Kind() string { return "github-releases" }

// Key implements collector.IncrementalSource.
func (s *ReleasesSource) Key() string { return s.repo }

// FetchSince returns the releases published strictly after since, together
// with the latest publication time seen. Draft releases never surface; they
// have no meaningful publication time yet.
func (s *ReleasesSource) FetchSince(ctx context.Context, since *time.Time) ([]Release, time.Time, error) {
	releases, err := s.client.Releases(ctx, s.repo)
	if err != nil {
		return nil, time.Time{}, err
	}

	var watermark time.Time
	items := make([]Release, 0, len(releases))
	for _, release := range releases {
		if release.Draft {
			continue
		}
		if release.PublishedAt.After(watermark) {
			watermark = release.PublishedAt
		}
		if since != nil && !release.PublishedAt.After(*since) {
			continue
		}
		items = append(items, release)
	}
	return items, watermark, nil
}
