package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/srtux/sre-agent-sub000/internal/logging"
)

// ReloadCallback is called when the config file is successfully reloaded.
// If the callback returns an error, it is logged but the watcher continues
// watching.
type ReloadCallback func(cfg *Config) error

// WatcherConfig holds configuration for the config file Watcher.
type WatcherConfig struct {
	// FilePath is the path to the YAML config file to watch
	FilePath string

	// DebounceMillis coalesces multiple file change events within this
	// period into a single reload. Default: 500ms.
	DebounceMillis int
}

// Watcher watches the config file for changes and triggers reload callbacks
// with debouncing to prevent reload storms from editor save sequences.
//
// Invalid configs during reload are logged but do not crash the watcher; it
// continues with the previous valid config. The server uses this to hot
// reload log levels without a restart.
type Watcher struct {
	config   WatcherConfig
	callback ReloadCallback
	logger   *logging.Logger
	cancel   context.CancelFunc
	stopped  chan struct{}
	ready    chan struct{}
	mu       sync.Mutex

	debounceTimer *time.Timer
}

// NewWatcher creates a new watcher for the given config file.
func NewWatcher(config WatcherConfig, callback ReloadCallback) (*Watcher, error) {
	if config.FilePath == "" {
		return nil, fmt.Errorf("FilePath cannot be empty")
	}
	if callback == nil {
		return nil, fmt.Errorf("callback cannot be nil")
	}
	if config.DebounceMillis == 0 {
		config.DebounceMillis = 500
	}

	return &Watcher{
		config:   config,
		callback: callback,
		logger:   logging.GetLogger("config.watcher"),
		stopped:  make(chan struct{}),
		ready:    make(chan struct{}),
	}, nil
}

// Start loads the initial config, invokes the callback with it, then begins
// watching for file changes. Returns once the fsnotify watcher is
// initialized; the watch loop runs until Stop() or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	initial, err := Load(w.config.FilePath)
	if err != nil {
		return fmt.Errorf("failed to load initial config: %w", err)
	}
	if err := w.callback(initial); err != nil {
		return fmt.Errorf("initial callback failed: %w", err)
	}

	w.logger.InfoWithFields("loaded initial config",
		logging.Field("path", w.config.FilePath),
	)

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	go w.watchLoop(watchCtx)

	select {
	case <-w.ready:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for file watcher to initialize")
	}

	return nil
}

func (w *Watcher) signalReady() {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.ready:
	default:
		close(w.ready)
	}
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.stopped)
	defer w.signalReady()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.ErrorWithErr("failed to create file watcher", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(w.config.FilePath); err != nil {
		w.logger.ErrorWithErr("failed to watch config file", err)
		return
	}

	w.logger.InfoWithFields("watching config file",
		logging.Field("path", w.config.FilePath),
		logging.Field("debounce_ms", w.config.DebounceMillis),
	)

	w.signalReady()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("context cancelled, stopping config watcher")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			// Remove/Rename matter for atomic writes: the old inode is
			// unlinked before the new file lands, so the watch must be
			// re-added.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				if event.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
					time.Sleep(50 * time.Millisecond)
					if err := watcher.Add(w.config.FilePath); err != nil {
						w.logger.Warn("failed to re-add watch after %s: %v", event.Op, err)
					}
				}
				w.handleFileChange()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.ErrorWithErr("config watcher error", err)
		}
	}
}

// handleFileChange debounces by resetting a timer on each event.
func (w *Watcher) handleFileChange() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(
		time.Duration(w.config.DebounceMillis)*time.Millisecond,
		w.reloadConfig,
	)
}

// reloadConfig reloads the config file and calls the callback if valid.
// A broken file keeps the previous config in effect.
func (w *Watcher) reloadConfig() {
	newCfg, err := Load(w.config.FilePath)
	if err != nil {
		w.logger.Warn("failed to reload config, keeping previous: %v", err)
		return
	}

	if err := w.callback(newCfg); err != nil {
		w.logger.Warn("config reload callback error: %v", err)
		return
	}

	w.logger.Info("config reloaded from %s", w.config.FilePath)
}

// Stop gracefully stops the file watcher.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}

	select {
	case <-w.stopped:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for watcher to stop")
	}
}
