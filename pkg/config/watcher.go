package config

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow absorbs the multiple filesystem events editors emit for a
// single save, and gives atomic rename-writes time to settle.
const debounceWindow = 250 * time.Millisecond

// Watcher reloads the configuration file when it changes and publishes the
// new configuration to subscribers. Reloads that fail to parse or validate
// are logged and dropped: the previously published configuration stays in
// force.
type Watcher struct {
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	lastHash [sha256.Size]byte
	subs     []chan *Config
}

// NewWatcher creates a watcher over the configuration file at path. A nil
// logger falls back to slog.Default.
func NewWatcher(path string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: path, logger: logger.With("path", path)}
}

// Subscribe returns a channel receiving each successfully reloaded
// configuration. Slow subscribers miss intermediate versions rather than
// blocking the watcher.
func (w *Watcher) Subscribe() <-chan *Config {
	ch := make(chan *Config, 1)
	w.mu.Lock()
	w.subs = append(w.subs, ch)
	w.mu.Unlock()
	return ch
}

// Watch blocks until ctx is cancelled, reloading the file on every change.
// The current content is hashed first so an unchanged rewrite never
// republishes.
func (w *Watcher) Watch(ctx context.Context) error {
	if data, err := os.ReadFile(w.path); err == nil {
		w.mu.Lock()
		w.lastHash = sha256.Sum256(data)
		w.mu.Unlock()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace files by rename,
	// which would orphan a file-level watch.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, w.reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("config watch error", "error", err)
		}
	}
}

// reload re-reads the file and publishes the parsed configuration when its
// content actually changed.
func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Error("failed to re-read config", "error", err)
		return
	}

	hash := sha256.Sum256(data)
	w.mu.Lock()
	unchanged := hash == w.lastHash
	w.mu.Unlock()
	if unchanged {
		return
	}

	cfg, err := Parse(data)
	if err != nil {
		w.logger.Error("config change rejected, keeping previous configuration", "error", err)
		return
	}

	w.mu.Lock()
	w.lastHash = hash
	subs := make([]chan *Config, len(w.subs))
	copy(subs, w.subs)
	w.mu.Unlock()

	w.logger.Info("config reloaded")
	for _, ch := range subs {
		select {
		case ch <- cfg:
		default:
			// Drop the stale version the subscriber never picked up and
			// offer the latest instead.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- cfg:
			default:
			}
		}
	}
}
