package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"splice/internal/fileutil"
	"splice/internal/logging"
)

// Watcher delivers files created in one directory.
type Watcher struct {
	dir    string
	fs     *fsnotify.Watcher
	logger *slog.Logger
}

// NewWatcher starts watching dir. Files already present are not delivered.
func NewWatcher(dir string, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{dir: dir, fs: fw, logger: logger}, nil
}

// Run calls handle for every new visible file until ctx ends, then closes
// the watcher.
func (w *Watcher) Run(ctx context.Context, handle func(path string)) error {
	defer w.fs.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if !ev.Has(fsnotify.Create) {
				continue
			}
			if !isOutputName(filepath.Base(ev.Name)) {
				continue
			}
			handle(ev.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			w.logger.Warn("output watch error",
				logging.Error(err),
				logging.String("dir", w.dir),
				logging.String(logging.FieldEventType, "output_watch_error"),
				logging.String(logging.FieldErrorHint, "events may have been missed; restart the daemon to rescan"),
			)
		}
	}
}

// Close stops a watcher that Run never consumed.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func isOutputName(name string) bool {
	return !fileutil.IsHidden(name) && !IsManifest(name)
}
