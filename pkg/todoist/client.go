package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultBaseURL is the production Todoist REST API endpoint.
const DefaultBaseURL = "https://api.todoist.com/rest/v2"

var (
	// ErrMissingToken is returned by NewClient when no API token is
	// configured.
	ErrMissingToken = errors.New("todoist: missing API token")

	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("todoist: not found")
)

// Task is a Todoist task as returned by the API.
type Task struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
	SectionID   string `json:"section_id,omitempty"`
	Priority    int    `json:"priority,omitempty"`
	IsCompleted bool   `json:"is_completed"`
	URL         string `json:"url,omitempty"`
}

// Project is a Todoist project.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Section is a named section within a project.
type Section struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
}

// CreateTaskArgs are the parameters for CreateTask. At most one of DueDate,
// DueDatetime and DueString should be set.
type CreateTaskArgs struct {
	Content      string `json:"content"`
	Description  string `json:"description,omitempty"`
	ProjectID    string `json:"project_id,omitempty"`
	SectionID    string `json:"section_id,omitempty"`
	Priority     int    `json:"priority,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
	DueDatetime  string `json:"due_datetime,omitempty"`
	DueString    string `json:"due_string,omitempty"`
	DueLang      string `json:"due_lang,omitempty"`
	Duration     int    `json:"duration,omitempty"`
	DurationUnit string `json:"duration_unit,omitempty"`
}

// UpdateTaskArgs are the parameters for UpdateTask. Zero-valued fields are
// left unchanged on the task.
type UpdateTaskArgs struct {
	Content      string `json:"content,omitempty"`
	Description  string `json:"description,omitempty"`
	Priority     int    `json:"priority,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
	DueDatetime  string `json:"due_datetime,omitempty"`
	DueString    string `json:"due_string,omitempty"`
	DueLang      string `json:"due_lang,omitempty"`
	Duration     int    `json:"duration,omitempty"`
	DurationUnit string `json:"duration_unit,omitempty"`
}

// Client talks to the Todoist REST API.
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

// NewClient creates a Todoist API client authenticated with token.
func NewClient(token string, opts ...ClientOption) (*Client, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt.applyClient(c)
	}
	return c, nil
}

// CreateTask creates a new task and returns it.
func (c *Client) CreateTask(ctx context.Context, args CreateTaskArgs) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodPost, "/tasks", args, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask updates an existing task and returns its new state.
func (c *Client) UpdateTask(ctx context.Context, id string, args UpdateTaskArgs) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodPost, "/tasks/"+id, args, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CloseTask marks a task as completed.
func (c *Client) CloseTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/tasks/"+id+"/close", nil, nil)
}

// ReopenTask uncompletes a previously closed task.
func (c *Client) ReopenTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/tasks/"+id+"/reopen", nil, nil)
}

// Projects lists every project in the account.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.do(ctx, http.MethodGet, "/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// Sections lists every section across all projects.
func (c *Client) Sections(ctx context.Context) ([]Section, error) {
	var sections []Section
	if err := c.do(ctx, http.MethodGet, "/sections", nil, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode todoist request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build todoist request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("todoist request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("todoist: %s %s returned %s: %s", method, path, resp.Status, bytes.TrimSpace(detail))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode todoist response: %w", err)
	}
	return nil
}
