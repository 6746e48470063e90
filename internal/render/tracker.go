package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"splice/internal/config"
	"splice/internal/ledger"
	"splice/internal/logging"
	"splice/internal/notifications"
	"splice/internal/services"
)

// Tracker turns files appearing in the output directory into render state.
type Tracker struct {
	dir        string
	board      StatusBoard
	settler    Settler
	deps       Deps
	logger     *slog.Logger
	retryDelay time.Duration
	sem        *semaphore.Weighted

	mu           sync.Mutex
	inFlight     map[string]struct{}
	watcher      *Watcher
	bootstrapped map[string]time.Time
	wg           sync.WaitGroup
}

// NewTracker builds a tracker for cfg's output directory.
func NewTracker(cfg *config.Config, board StatusBoard, deps Deps) *Tracker {
	return &Tracker{
		dir:        cfg.OutputDir(),
		board:      board,
		settler:    NewSettler(cfg.Render),
		deps:       deps,
		logger:     deps.logger("render-tracker"),
		retryDelay: time.Duration(cfg.DeadLetter.RetryIntervalSeconds) * time.Second,
		sem:        semaphore.NewWeighted(int64(max(cfg.Render.MaxConcurrentSettle, 1))),
		inFlight:   make(map[string]struct{}),
	}
}

// errInFlight reports that another handler owns the path.
var errInFlight = errors.New("output already being handled")

type outputFile struct {
	path    string
	name    string
	modTime time.Time
}

// Bootstrap records every output already present, oldest first, without
// settling or changing status. It returns the number recorded. The output
// watch is attached before the scan, so files created from then on reach Run.
func (t *Tracker) Bootstrap(ctx context.Context) (recorded int, err error) {
	if err := t.watch(); err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			t.closeWatcher()
		}
	}()

	entries, err := os.ReadDir(t.dir)
	if err != nil {
		return 0, services.Wrap(services.ErrConfiguration, "render", "bootstrap", "read output directory", err)
	}

	files := make([]outputFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isOutputName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, outputFile{
			path:    filepath.Join(t.dir, entry.Name()),
			name:    entry.Name(),
			modTime: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		if !files[i].modTime.Equal(files[j].modTime) {
			return files[i].modTime.Before(files[j].modTime)
		}
		return files[i].name < files[j].name
	})

	seen := make(map[string]time.Time, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return recorded, err
		}
		ident, err := Identify(f.path)
		if err != nil {
			t.deadLetter(ctx, f.path, Identity{}, err)
			continue
		}
		t.board.RecordOutput(ident.ProjectID, f.path)
		seen[f.path] = f.modTime
		recorded++
	}
	t.mu.Lock()
	t.bootstrapped = seen
	t.mu.Unlock()
	t.logger.Info("render outputs bootstrapped",
		logging.Int("recorded", recorded),
		logging.String("dir", t.dir),
		logging.String(logging.FieldEventType, "outputs_bootstrapped"),
	)
	return recorded, nil
}

// Run watches the output directory until ctx ends and waits for in-flight
// files to finish. It reuses the watch attached by Bootstrap.
func (t *Tracker) Run(ctx context.Context) error {
	if err := t.watch(); err != nil {
		return err
	}
	t.mu.Lock()
	w := t.watcher
	t.watcher = nil
	t.mu.Unlock()
	return t.RunWatcher(ctx, w)
}

func (t *Tracker) watch() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.watcher != nil {
		return nil
	}
	w, err := NewWatcher(t.dir, t.logger)
	if err != nil {
		return err
	}
	t.watcher = w
	return nil
}

func (t *Tracker) closeWatcher() {
	t.mu.Lock()
	w := t.watcher
	t.watcher = nil
	t.mu.Unlock()
	if w != nil {
		_ = w.Close()
	}
}

// RunWatcher is Run over an existing watcher.
func (t *Tracker) RunWatcher(ctx context.Context, w *Watcher) error {
	err := w.Run(ctx, func(path string) { t.Track(ctx, path) })
	t.wg.Wait()
	return err
}

// Track handles path in the background. A path already being handled is
// ignored.
func (t *Tracker) Track(ctx context.Context, path string) {
	if !t.claim(path) {
		return
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.release(path)
		if err := t.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer t.sem.Release(1)
		_ = t.HandleFile(ctx, path)
	}()
}

// HandleFile settles and records one output. Failures are dead-lettered and
// returned.
func (t *Tracker) HandleFile(ctx context.Context, path string) error {
	ident, err := t.process(ctx, path)
	if err != nil && ctx.Err() == nil {
		t.deadLetter(ctx, path, ident, err)
	}
	return err
}

// retry re-handles a dead-lettered output. It returns errInFlight without
// touching the file when the live watch is already handling it.
func (t *Tracker) retry(ctx context.Context, path string) error {
	if !t.claim(path) {
		return errInFlight
	}
	defer t.release(path)
	_, err := t.process(ctx, path)
	return err
}

func (t *Tracker) claim(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.inFlight[path]; busy {
		return false
	}
	t.inFlight[path] = struct{}{}
	return true
}

func (t *Tracker) release(path string) {
	t.mu.Lock()
	delete(t.inFlight, path)
	t.mu.Unlock()
}

// takeBootstrapped reports whether Bootstrap already recorded this exact
// file. Each entry matches once; a rewritten file has a new mod time.
func (t *Tracker) takeBootstrapped(path string, modTime time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	seen, ok := t.bootstrapped[path]
	if !ok || !seen.Equal(modTime) {
		return false
	}
	delete(t.bootstrapped, path)
	return true
}

var errDirectory = errors.New("not a regular file")

func (t *Tracker) process(ctx context.Context, path string) (Identity, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Identity{}, fmt.Errorf("stat output: %w", err)
	}
	if info.IsDir() {
		return Identity{}, errDirectory
	}
	if t.takeBootstrapped(path, info.ModTime()) {
		t.logger.Debug("output already recorded at startup",
			logging.String("path", path),
			logging.String(logging.FieldEventType, "output_already_recorded"),
		)
		return Identity{}, nil
	}

	ident, parseErr := ParseOutputName(path)
	logger := t.logger.With(logging.String("path", path))
	if parseErr == nil {
		logger = logging.WithContext(services.WithProjectID(ctx, ident.ProjectID), logger)
	}
	logger.Debug("settling render output", logging.String(logging.FieldEventType, "output_settling"))

	if err := t.settler.Settle(ctx, path); err != nil {
		return ident, err
	}
	ident, err = Identify(path)
	if err != nil {
		return ident, err
	}

	status := t.board.Complete(ident.ProjectID, ident.VersionID, path)
	ctx = services.WithProjectID(ctx, ident.ProjectID)
	if ident.VersionID > 0 {
		ctx = services.WithVersionID(ctx, ident.VersionID)
	}
	logger = logging.WithContext(ctx, t.logger.With(logging.String("path", path)))
	logger.Info("render output recorded",
		logging.String("status", string(status)),
		logging.Bool("from_manifest", ident.FromManifest),
		logging.String(logging.FieldEventType, string(ledger.EventOutputRecorded)),
	)
	t.deps.journal(ctx, logger, ledger.Event{
		ProjectID: ident.ProjectID,
		VersionID: ident.VersionID,
		Kind:      ledger.EventOutputRecorded,
		Path:      path,
		Detail:    string(status),
	})
	if status == StatusDone {
		t.deps.notify(ctx, logger, notifications.EventRenderCompleted, notifications.Payload{
			"projectId": ident.ProjectID,
			"versionId": ident.VersionID,
			"file":      filepath.Base(path),
		})
	}
	return ident, nil
}

func (t *Tracker) deadLetter(ctx context.Context, path string, ident Identity, cause error) {
	if errors.Is(cause, errDirectory) {
		return
	}
	logger := t.logger.With(logging.String("path", path))
	if ident.ProjectID != "" {
		logger = logging.WithContext(services.WithProjectID(ctx, ident.ProjectID), logger)
	}
	logging.WarnWithContext(logger, "render output dead-lettered", string(ledger.EventDeadLettered),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "the file is retried from the dead-letter queue"),
		logging.String(logging.FieldImpact, "render status not updated for this file"),
	)
	if t.deps.DeadLetters == nil {
		return
	}
	if _, err := t.deps.DeadLetters.Put(ctx, ledger.DeadLetter{
		Queue:     ledger.QueueOutput,
		Path:      path,
		ProjectID: ident.ProjectID,
		VersionID: ident.VersionID,
		Reason:    cause.Error(),
	}, t.retryDelay); err != nil {
		logging.ErrorWithContext(logger, "dead letter write failed", "dead_letter_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the ledger database"),
			logging.String(logging.FieldImpact, "file will not be retried"),
		)
		return
	}
	t.deps.journal(ctx, logger, ledger.Event{
		ProjectID: ident.ProjectID,
		VersionID: ident.VersionID,
		Kind:      ledger.EventDeadLettered,
		Path:      path,
		Detail:    cause.Error(),
	})
}
