// Package watch re-runs a computation whenever a task table file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joshharrison/pertloom/internal/ctxlog"
)

// Watcher monitors a single file. The parent directory is watched so that
// editors which save by rename-and-replace are still seen.
type Watcher struct {
	Path     string
	Debounce time.Duration

	watcher *fsnotify.Watcher
}

// New creates a watcher for path. Call Run to start it.
func New(path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &Watcher{Path: abs, Debounce: debounce, watcher: fw}, nil
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run calls fn once immediately and again after every burst of changes to
// the file, until ctx is cancelled. Each call is independent; an error from
// fn is logged and watching continues.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context) error) error {
	defer w.watcher.Close()
	log := ctxlog.FromContext(ctx)

	run := func() {
		if err := fn(ctx); err != nil {
			log.Warn("recompute failed", "path", w.Path, "err", err)
		}
	}
	run()

	var pending time.Time
	ticker := time.NewTicker(w.Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.Path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				log.Debug("task table changed", "path", w.Path, "op", event.Op.String())
				pending = time.Now()
			}

		case <-ticker.C:
			if !pending.IsZero() && time.Since(pending) >= w.Debounce {
				pending = time.Time{}
				run()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "err", err)
		}
	}
}
