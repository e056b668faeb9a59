// Package watcher re-runs a handler when the transcript tree changes.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/alexwday/aegis-project-sub000/internal/ingestion"
)

// DefaultDebounce is how long the tree must be quiet before the handler runs.
const DefaultDebounce = 2 * time.Second

// Handler is run once per burst of changes.
type Handler func(ctx context.Context) error

// Watcher monitors a transcript root and every directory below it.
type Watcher struct {
	root     string
	debounce time.Duration
	handler  Handler
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
}

// New creates a watcher on root. A non-positive debounce uses DefaultDebounce.
func New(root string, debounce time.Duration, handler Handler, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{root: root, debounce: debounce, handler: handler, logger: logger, watcher: fw}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and its subdirectories, skipping ignored ones.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("add watch path: %w", err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && ingestion.IgnoredDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("add watch path %s: %w", path, err)
		}
		return nil
	})
}

// Start blocks, running the handler after each quiet period that follows a
// change, until ctx is done. Handler errors are logged and watching
// continues.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("watching transcripts", "root", w.root, "debounce", w.debounce)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if w.relevant(event) {
				w.logger.Debug("transcript tree changed", "path", event.Name, "op", event.Op.String())
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("watcher error", "error", err)

		case <-timer.C:
			if err := w.handler(ctx); err != nil {
				w.logger.Error("sync after change failed", "error", err)
			}
		}
	}
}

// relevant reports whether event can change the catalog plan. New
// directories are added to the watch list.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if ingestion.IgnoredDir(name) {
				return false
			}
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return true
		}
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		return !ingestion.IgnoredDir(name) || ingestion.IsTranscriptFile(name)
	}
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
		return ingestion.IsTranscriptFile(name)
	}
	return false
}

// Stop closes the file watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}
