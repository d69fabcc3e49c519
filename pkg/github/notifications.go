package github

import (
	"context"
)

// NotificationsSource watches the authenticated user's notification feed.
// It is a differential source: the feed is small enough to list wholesale,
// and a thread vanishing from it is the only signal that the notification
// was handled elsewhere.
type NotificationsSource struct {
	client *Client
}

// NewNotificationsSource creates a notification source over client.
func NewNotificationsSource(client *Client) *NotificationsSource {
	return &NotificationsSource{client: client}
}

// Kind implements collector.DifferentialSource.
func (s *NotificationsSource) Kind() string { return "github-notifications" }

// Key implements collector.DifferentialSource.
func (s *NotificationsSource) Key() string { return "default" }

// Identifier implements collector.DifferentialSource. Thread ids are stable
// for the lifetime of a notification.
func (s *NotificationsSource) Identifier(item Notification) string { return item.ID }

// Fetch implements collector.DifferentialSource.
func (s *NotificationsSource) Fetch(ctx context.Context) ([]Notification, error) {
	return s.client.Notifications(ctx)
}
