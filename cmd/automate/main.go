// Command automate runs the automation daemon: it schedules the configured
// workflows, processes their queues and serves the webhook/admin HTTP
// surface, all over a single embedded SQLite database.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/SierraSoftworks/automate/pkg/config"
	"github.com/SierraSoftworks/automate/pkg/github"
	"github.com/SierraSoftworks/automate/pkg/job"
	"github.com/SierraSoftworks/automate/pkg/metrics"
	"github.com/SierraSoftworks/automate/pkg/publish"
	"github.com/SierraSoftworks/automate/pkg/storage"
	"github.com/SierraSoftworks/automate/pkg/web"
	"github.com/SierraSoftworks/automate/pkg/webhook"
	"github.com/SierraSoftworks/automate/pkg/workflow"
)

// shutdownTimeout bounds how long the HTTP server drains on exit.
const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "automate.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.Log)

	if err := run(*configPath, cfg); err != nil {
		slog.Error("daemon failed", "error", err)
		os.Exit(1)
	}
}

func setupLogging(cfg config.Log) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func run(configPath string, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	slog.Info("store ready", "database", cfg.Database)

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	metrics.NewQueueCollector(prometheus.DefaultRegisterer, store)
	observer := job.WithObserver(jobMetrics.Observer())

	gh := github.NewClient(cfg.Connections.GitHub.APIKey)
	todoistDefaults := cfg.Connections.Todoist

	// The first setup fails fast: a bad schedule should stop the daemon
	// before any worker starts.
	if err := setupSchedules(ctx, store, cfg); err != nil {
		return err
	}

	var wg sync.WaitGroup
	startRunner(ctx, &wg, job.NewRunner(store, workflow.NewCronJob(store), observer))
	startRunner(ctx, &wg, job.NewRunner(store, workflow.NewGitHubReleases(store, gh), observer))
	startRunner(ctx, &wg, job.NewRunner(store, workflow.NewGitHubNotifications(store, gh), observer))
	startRunner(ctx, &wg, job.NewRunner(store, publish.NewTodoistCreate(store, todoistDefaults), observer))
	startRunner(ctx, &wg, job.NewRunner(store, publish.NewTodoistUpsert(store, todoistDefaults), observer))
	startRunner(ctx, &wg, job.NewRunner(store, publish.NewTodoistComplete(store, todoistDefaults), observer))

	forwarders := make(map[string]bool, len(cfg.Webhooks))
	for _, hook := range cfg.Webhooks {
		forwarders[hook.Name] = true
		startRunner(ctx, &wg, job.NewRunner(store, webhook.NewForwarder(store, hook), observer))
	}

	server := web.NewServer(store, store, cfg.WebhookNames())
	httpServer := &http.Server{Addr: cfg.Web.Address, Handler: server}
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("http server listening", "address", cfg.Web.Address)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	// Config reloads re-arm schedules and swap the accepted webhook set;
	// connection and database changes still need a restart.
	watcher := config.NewWatcher(configPath, slog.Default())
	updates := watcher.Subscribe()
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := watcher.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("config watcher stopped", "error", err)
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case next := <-updates:
				if err := setupSchedules(ctx, store, next); err != nil {
					slog.Error("failed to apply reloaded schedules", "error", err)
					continue
				}
				server.SetWebhooks(next.WebhookNames())
				for _, hook := range next.Webhooks {
					if !forwarders[hook.Name] {
						forwarders[hook.Name] = true
						startRunner(ctx, &wg, job.NewRunner(store, webhook.NewForwarder(store, hook), observer))
					}
				}
				slog.Info("configuration applied")
			}
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}

	wg.Wait()
	return nil
}

// setupSchedules (re-)arms every configured cron timer. Idempotency keys
// collapse re-runs onto the pending timers, so calling this again is safe.
func setupSchedules(ctx context.Context, store *storage.GormStore, cfg *config.Config) error {
	if err := workflow.SetupCronJobs(ctx, store, workflow.ReleasesPartition, cfg.Workflows.GitHubReleases); err != nil {
		return err
	}
	return workflow.SetupCronJobs(ctx, store, workflow.NotificationsPartition, cfg.Workflows.GitHubNotifications)
}

// startRunner runs one job loop until the daemon's context is cancelled.
func startRunner[T any](ctx context.Context, wg *sync.WaitGroup, runner *job.Runner[T]) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = runner.Run(ctx)
	}()
}
