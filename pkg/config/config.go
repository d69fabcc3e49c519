package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"go.yaml.in/yaml/v3"

	"github.com/SierraSoftworks/automate/pkg/todoist"
	"github.com/SierraSoftworks/automate/pkg/webhook"
	"github.com/SierraSoftworks/automate/pkg/workflow"
)

// Defaults applied to fields the file leaves unset.
const (
	DefaultDatabase = "automate.db"
	DefaultAddress  = "localhost:8080"
)

// Config is the daemon's full configuration.
type Config struct {
	// Database is the path of the SQLite database file.
	Database string `yaml:"database"`

	Log         Log                     `yaml:"log"`
	Web         Web                     `yaml:"web"`
	Connections Connections             `yaml:"connections"`
	Webhooks    []webhook.ForwardConfig `yaml:"webhooks"`
	Workflows   Workflows               `yaml:"workflows"`
}

// Log configures the daemon's structured logging.
type Log struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// SlogLevel maps the configured level onto slog's scale.
func (l Log) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Web configures the HTTP surface.
type Web struct {
	// Address is the host:port the server listens on.
	Address string `yaml:"address"`
}

// Connections holds the credentials for external services.
type Connections struct {
	Todoist todoist.Config   `yaml:"todoist"`
	GitHub  GitHubConnection `yaml:"github"`
}

// GitHubConnection configures the GitHub API client. The token is optional
// for public release feeds but required for notifications.
type GitHubConnection struct {
	APIKey string `yaml:"api_key"`
}

// Workflows lists the scheduled automations, one slice per workflow kind.
type Workflows struct {
	GitHubReleases      []workflow.Schedule[workflow.GitHubReleasesJob]      `yaml:"github_releases"`
	GitHubNotifications []workflow.Schedule[workflow.GitHubNotificationsJob] `yaml:"github_notifications"`
}

// validWebhookName keeps webhook endpoints path- and partition-safe.
var validWebhookName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Parse strictly decodes a configuration document, applies defaults and
// validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}
	return Parse(data)
}

func (c *Config) applyDefaults() {
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.Web.Address == "" {
		c.Web.Address = DefaultAddress
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate rejects configurations that would fail at runtime: bad log
// settings, unusable webhook names and cron expressions that do not parse.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}

	seen := make(map[string]bool, len(c.Webhooks))
	for _, hook := range c.Webhooks {
		if !validWebhookName.MatchString(hook.Name) {
			return fmt.Errorf("invalid webhook name %q", hook.Name)
		}
		if seen[hook.Name] {
			return fmt.Errorf("duplicate webhook name %q", hook.Name)
		}
		seen[hook.Name] = true
	}

	for _, s := range c.Workflows.GitHubReleases {
		if s.Job.Repository == "" {
			return fmt.Errorf("github_releases schedule %q is missing a repository", s.Cron)
		}
		if _, err := workflow.ParseCron(s.Cron); err != nil {
			return err
		}
	}
	for _, s := range c.Workflows.GitHubNotifications {
		if _, err := workflow.ParseCron(s.Cron); err != nil {
			return err
		}
	}
	return nil
}

// WebhookNames returns the configured webhook endpoint names.
func (c *Config) WebhookNames() []string {
	names := make([]string, 0, len(c.Webhooks))
	for _, hook := range c.Webhooks {
		names = append(names, hook.Name)
	}
	return names
}
