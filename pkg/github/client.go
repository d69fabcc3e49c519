package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the production GitHub REST API endpoint.
const DefaultBaseURL = "https://api.github.com"

// apiVersion is sent on every request as X-GitHub-Api-Version.
const apiVersion = "2022-11-28"

var (
	// ErrNotFound is returned when a repository or resource does not exist,
	// or the token cannot see it.
	ErrNotFound = errors.New("github: not found")

	// ErrUnauthorized is returned when the token is rejected.
	ErrUnauthorized = errors.New("github: authorization failed")

	// ErrRateLimited is returned when GitHub throttles the client.
	ErrRateLimited = errors.New("github: rate limit exceeded")
)

// Release is a published release on a repository.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body,omitempty"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	CreatedAt   time.Time `json:"created_at"`
	PublishedAt time.Time `json:"published_at"`
	HTMLURL     string    `json:"html_url"`
}

// Notification is one thread on the authenticated user's notification feed.
type Notification struct {
	ID         string              `json:"id"`
	Reason     string              `json:"reason"`
	Unread     bool                `json:"unread"`
	UpdatedAt  time.Time           `json:"updated_at"`
	Repository NotificationRepo    `json:"repository"`
	Subject    NotificationSubject `json:"subject"`
}

// NotificationRepo identifies the repository a notification belongs to.
type NotificationRepo struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
}

// NotificationSubject describes what a notification is about.
type NotificationSubject struct {
	Title string `json:"title"`
	Type  string `json:"type"`
	URL   string `json:"url,omitempty"`
}

// Client talks to the GitHub REST API. The token is optional:
// unauthenticated clients can still read public release feeds, at a lower
// rate limit.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption interface {
	applyClient(*Client)
}

type clientOptionFunc func(*Client)

func (f clientOptionFunc) applyClient(c *Client) { f(c) }

// WithBaseURL points the client at an alternative API endpoint.
func WithBaseURL(url string) ClientOption {
	return clientOptionFunc(func(c *Client) {
		c.baseURL = url
	})
}

// WithHTTPClient replaces the http.Client used for requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return clientOptionFunc(func(c *Client) {
		c.httpClient = hc
	})
}

// NewClient creates a GitHub API client. An empty token leaves requests
// unauthenticated.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt.applyClient(c)
	}
	return c
}

// Releases lists the releases of a repository given as "owner/name",
// newest first.
func (c *Client) Releases(ctx context.Context, repo string) ([]Release, error) {
	var releases []Release
	if err := c.do(ctx, http.MethodGet, "/repos/"+repo+"/releases", &releases); err != nil {
		return nil, err
	}
	return releases, nil
}

// Notifications lists the authenticated user's unread notification threads.
func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	var notifications []Notification
	if err := c.do(ctx, http.MethodGet, "/notifications", &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkDone marks a notification thread as done, removing it from the feed.
func (c *Client) MarkDone(ctx context.Context, threadID string) error {
	return c.do(ctx, http.MethodDelete, "/notifications/threads/"+threadID, nil)
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", "SierraSoftworks/automate")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusResetContent:
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s %s", ErrUnauthorized, method, path)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s %s", ErrRateLimited, method, path)
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("github: %s %s returned %s: %s", method, path, resp.Status, detail)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode github response: %w", err)
	}
	return nil
}
