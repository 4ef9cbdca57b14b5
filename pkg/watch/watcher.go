// Package watch monitors a build descriptor for changes and triggers rebuilds.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stepcache/stepcache/pkg/hash"
	"github.com/stepcache/stepcache/pkg/logging"
)

// Watcher monitors a build descriptor for changes and triggers rebuilds.
type Watcher struct {
	path       string
	onChange   func() error
	logger     *slog.Logger
	debounce   time.Duration
	lastDigest string
}

// NewWatcher creates a file watcher for the given descriptor path.
// onChange is called when the file content changes (after debouncing).
func NewWatcher(path string, onChange func() error) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		logger:   logging.NewDiscardLogger(),
		debounce: 300 * time.Millisecond,
	}
}

// SetLogger sets the logger for watcher events.
func (w *Watcher) SetLogger(logger *slog.Logger) {
	if logger != nil {
		w.logger = logger
	}
}

// SetDebounce sets the debounce duration for file changes.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Watch starts watching the descriptor for changes.
// Blocks until context is cancelled.
//
// We watch the parent directory rather than the file directly because most
// editors use atomic saves (write to temp file, then rename). When a file is
// renamed over the watched file, fsnotify loses track of it. Watching the
// directory catches all events including renames.
//
// Filesystem events alone are not enough to decide whether a rebuild is
// needed: a build rewrites the descriptor segment by segment and restores
// it afterwards, which produces events even though the content ends up
// unchanged. Each debounced event is therefore checked against a content
// digest, and onChange only fires when the content actually differs.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory containing the file, not the file itself.
	dir := filepath.Dir(w.path)
	filename := filepath.Base(w.path)

	if err := watcher.Add(dir); err != nil {
		return err
	}

	if digest, err := hash.Tree(w.path, "", w.logger); err == nil {
		w.lastDigest = digest
	}

	w.logger.Info("watching for descriptor changes", "path", w.path)

	var debounceTimer *time.Timer
	var debounceChan <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping descriptor watcher")
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// Only process events for our target file
			if filepath.Base(event.Name) != filename {
				continue
			}

			// Trigger on write or create events.
			// Create handles atomic saves where a temp file is renamed over target.
			// Write handles direct writes to the file.
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.logger.Debug("descriptor changed", "event", event.Op.String())

				// Debounce: reset timer on each change
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.NewTimer(w.debounce)
				debounceChan = debounceTimer.C
			}

		case <-debounceChan:
			debounceChan = nil

			digest, err := hash.Tree(w.path, "", w.logger)
			if err != nil {
				w.logger.Error("reading descriptor failed", "error", err)
				continue
			}
			if digest == w.lastDigest {
				w.logger.Debug("descriptor content unchanged, skipping rebuild")
				continue
			}
			w.lastDigest = digest

			w.logger.Info("descriptor change detected, rebuilding")
			if err := w.onChange(); err != nil {
				w.logger.Error("rebuild failed", "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}
