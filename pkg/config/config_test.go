package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullConfig = `
database: /var/lib/automate/automate.db
log:
  level: debug
  format: json
web:
  address: 0.0.0.0:9090
connections:
  todoist:
    api_key: todoist-token
    project: Automation
  github:
    api_key: github-token
webhooks:
  - name: grafana
    title: Grafana alert fired
    priority: 3
  - name: tailscale
workflows:
  github_releases:
    - cron: "0 8 * * *"
      repository: example/repo
      todoist:
        project: Releases
  github_notifications:
    - cron: "*/15 * * * *"
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullConfig))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/automate/automate.db", cfg.Database)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "0.0.0.0:9090", cfg.Web.Address)
	assert.Equal(t, "todoist-token", cfg.Connections.Todoist.APIKey)
	assert.Equal(t, "github-token", cfg.Connections.GitHub.APIKey)

	require.Len(t, cfg.Webhooks, 2)
	assert.Equal(t, "grafana", cfg.Webhooks[0].Name)
	assert.Equal(t, 3, cfg.Webhooks[0].Priority)
	assert.Equal(t, []string{"grafana", "tailscale"}, cfg.WebhookNames())

	require.Len(t, cfg.Workflows.GitHubReleases, 1)
	assert.Equal(t, "0 8 * * *", cfg.Workflows.GitHubReleases[0].Cron)
	assert.Equal(t, "example/repo", cfg.Workflows.GitHubReleases[0].Job.Repository)
	assert.Equal(t, "Releases", cfg.Workflows.GitHubReleases[0].Job.Todoist.Project)
	require.Len(t, cfg.Workflows.GitHubNotifications, 1)
}

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, DefaultDatabase, cfg.Database)
	assert.Equal(t, DefaultAddress, cfg.Web.Address)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("databse: typo.db"))
	assert.Error(t, err, "misspelled keys should fail instead of being ignored")
}

func TestParse_RejectsBadCronExpression(t *testing.T) {
	_, err := Parse([]byte(`
workflows:
  github_releases:
    - cron: "not a schedule"
      repository: example/repo
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a schedule")
}

func TestParse_RejectsMissingRepository(t *testing.T) {
	_, err := Parse([]byte(`
workflows:
  github_releases:
    - cron: "0 8 * * *"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repository")
}

func TestParse_RejectsBadWebhookNames(t *testing.T) {
	_, err := Parse([]byte("webhooks:\n  - name: \"has space\"\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("webhooks:\n  - name: ok\n  - name: ok\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestParse_RejectsBadLogSettings(t *testing.T) {
	_, err := Parse([]byte("log:\n  level: loud\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("log:\n  format: xml\n"))
	assert.Error(t, err)
}

func TestLogSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Log{Level: "debug"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, Log{Level: "info"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, Log{Level: "warn"}.SlogLevel())
	assert.Equal(t, slog.LevelError, Log{Level: "error"}.SlogLevel())
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "automate.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: from-file.db\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file.db", cfg.Database)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
