// Package watch reruns a function whenever a file changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/shaderlab"
)

// DefaultDebounce collapses the burst of events a single save produces.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches one file. The containing directory is watched so that
// editors which save by renaming a temporary file are noticed.
type Watcher struct {
	path     string
	debounce time.Duration
}

// New returns a Watcher for path. A non-positive debounce uses
// DefaultDebounce.
func New(path string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{path: filepath.Clean(path), debounce: debounce}
}

// Run calls fn once, then again after every change to the file, until ctx
// ends. Errors from fn are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context) error) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch: add %s: %w", dir, err)
	}

	run := func() {
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			shaderlab.Logger().Warn("watch: run failed", "path", w.path, "err", err)
		}
	}
	run()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				shaderlab.Logger().Debug("watch: change", "path", event.Name, "op", event.Op.String())
				timer.Reset(w.debounce)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			shaderlab.Logger().Warn("watch: watcher error", "err", err)
		case <-timer.C:
			run()
		}
	}
}

// relevant reports whether event changes the watched file's contents.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
