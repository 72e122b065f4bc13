package template

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/outliner/internal/persist"
)

// DefaultReloadDelay is how long Watch waits for edits to settle.
const DefaultReloadDelay = 200 * time.Millisecond

// WatchOption configures Watch.
type WatchOption func(*watchConfig)

type watchConfig struct {
	delay    time.Duration
	logger   *slog.Logger
	onReload func(n int, err error)
}

// WithReloadDelay sets the quiet period before recompiling.
func WithReloadDelay(d time.Duration) WatchOption {
	return func(c *watchConfig) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithWatchLogger replaces slog.Default.
func WithWatchLogger(l *slog.Logger) WatchOption {
	return func(c *watchConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// OnReload is called after every recompilation with the number of templates
// loaded, or the compile error that left the registry unchanged.
func OnReload(fn func(n int, err error)) WatchOption {
	return func(c *watchConfig) {
		c.onReload = fn
	}
}

// Watch recompiles dir into reg whenever a .cue file in it changes, until
// ctx is cancelled. Bursts of events are coalesced.
func Watch(ctx context.Context, dir string, reg *Registry, opts ...WatchOption) error {
	cfg := watchConfig{delay: DefaultReloadDelay, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger.With("dir", dir)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	reload := persist.NewDebouncer(cfg.delay, 4*cfg.delay, func(string) {
		templates, err := CompileDir(dir)
		if err != nil {
			logger.Warn("template reload failed; keeping previous templates", "error", err)
		} else {
			reg.Replace(templates)
			logger.Info("templates reloaded", "count", len(templates))
		}
		if cfg.onReload != nil {
			cfg.onReload(len(templates), err)
		}
	})
	defer reload.Cancel()

	logger.Info("watching templates")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(ev.Name) != ".cue" {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				logger.Debug("template file changed", "path", ev.Name, "op", ev.Op.String())
				reload.Trigger(ev.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}
