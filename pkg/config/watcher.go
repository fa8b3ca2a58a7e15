package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// PricingWatcher watches a standalone pricing file for changes and pushes
// reloaded tables to a callback. It debounces bursts of filesystem events
// so editors that write-then-rename do not trigger reload storms.
type PricingWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	path     string
	debounce time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewPricingWatcher creates a watcher for the pricing file at path.
func NewPricingWatcher(path string, logger *slog.Logger) (*PricingWatcher, error) {
	if path == "" {
		return nil, fmt.Errorf("pricing file path cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &PricingWatcher{
		watcher:  watcher,
		logger:   logger.With("component", "config.pricing_watcher"),
		path:     path,
		debounce: 100 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch starts watching for pricing file changes. On every change the file
// is re-parsed and, if valid, passed to onReload. Invalid pricing files are
// logged and skipped; the previous table stays in effect.
//
// This is a blocking operation that runs until the context is cancelled or
// Stop is called.
func (pw *PricingWatcher) Watch(ctx context.Context, onReload func(map[string]ModelPricingConfig)) error {
	pw.mu.Lock()
	if pw.running {
		pw.mu.Unlock()
		return fmt.Errorf("pricing watcher already running")
	}
	pw.running = true
	pw.mu.Unlock()

	defer func() {
		pw.mu.Lock()
		pw.running = false
		pw.mu.Unlock()
		close(pw.doneCh)
	}()

	// Watch the directory, not the file: editors replace files by rename,
	// which drops a direct file watch.
	dir := filepath.Dir(pw.path)
	if err := pw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	pw.logger.Info("pricing watcher started", "path", pw.path)

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pw.stopCh:
			return nil
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(pw.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(pw.debounce)
			} else {
				timer.Reset(pw.debounce)
			}
			timerCh = timer.C
		case <-timerCh:
			timerCh = nil
			pw.reload(onReload)
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return nil
			}
			pw.logger.Warn("pricing watcher error", "error", err)
		}
	}
}

// reload parses the pricing file and pushes the table to the callback.
func (pw *PricingWatcher) reload(onReload func(map[string]ModelPricingConfig)) {
	pricing, err := LoadPricing(pw.path)
	if err != nil {
		pw.logger.Warn("pricing reload failed, keeping previous table",
			"path", pw.path,
			"error", err,
		)
		return
	}

	pw.logger.Info("pricing reloaded", "path", pw.path, "models", len(pricing))
	onReload(pricing)
}

// Stop stops the watcher and waits for the watch loop to exit.
func (pw *PricingWatcher) Stop() {
	pw.mu.Lock()
	running := pw.running
	pw.mu.Unlock()

	close(pw.stopCh)
	if running {
		<-pw.doneCh
	}
	pw.watcher.Close()
}
