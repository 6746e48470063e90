package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"splice/internal/api"
	"splice/internal/config"
	"splice/internal/ledger"
	"splice/internal/logging"
)

// OutputTracker records finished renders. *render.Tracker satisfies it.
type OutputTracker interface {
	Bootstrap(ctx context.Context) (int, error)
	Run(ctx context.Context) error
}

// Runner is a background loop that ends when its context does.
type Runner interface {
	Run(ctx context.Context) error
}

// APIServer is the HTTP surface. *api.Server satisfies it.
type APIServer interface {
	Start(ctx context.Context) error
	Stop()
}

// Components are the services the daemon supervises.
type Components struct {
	Tracker     OutputTracker
	Retrier     Runner
	Server      APIServer
	DeadLetters api.DeadLetterLister
	SessionID   string
	// Lock, when already held through AcquireLock, is adopted by Start and
	// left for the caller to release.
	Lock *flock.Flock
}

// LockFile returns the single-instance lock path for cfg.
func LockFile(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "spliced.lock")
}

// AcquireLock takes the single-instance lock ahead of Start. It fails when
// another daemon holds it.
func AcquireLock(cfg *config.Config) (*flock.Flock, error) {
	lock := flock.New(LockFile(cfg))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, errLocked
	}
	return lock, nil
}

var errLocked = errors.New("another splice daemon instance is already running")

// Daemon owns the process lifecycle and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	parts  Components

	lockPath string
	lock     *flock.Flock
	ownsLock bool

	mu        sync.Mutex
	running   bool
	startedAt time.Time
	cancel    context.CancelFunc
	group     *errgroup.Group
}

// New constructs a daemon around ready-to-run components.
func New(cfg *config.Config, logger *slog.Logger, parts Components) (*Daemon, error) {
	if cfg == nil || parts.Tracker == nil || parts.Server == nil {
		return nil, errors.New("daemon requires config, tracker, and api server")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lock := parts.Lock
	if lock == nil {
		lock = flock.New(LockFile(cfg))
	}
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		parts:    parts,
		lockPath: lock.Path(),
		lock:     lock,
		ownsLock: parts.Lock == nil,
	}, nil
}

// Start acquires the daemon lock, records outputs already on disk, and
// launches the tracker, the retry loop, and the API server.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("daemon already running")
	}

	if !d.lock.Locked() {
		ok, err := d.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return errLocked
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	if _, err := d.parts.Tracker.Bootstrap(runCtx); err != nil {
		cancel()
		d.releaseLock()
		return fmt.Errorf("bootstrap render outputs: %w", err)
	}

	group, groupCtx := errgroup.WithContext(runCtx)
	if err := d.parts.Server.Start(groupCtx); err != nil {
		cancel()
		d.releaseLock()
		return fmt.Errorf("start api server: %w", err)
	}
	group.Go(func() error {
		if err := d.parts.Tracker.Run(groupCtx); err != nil {
			return fmt.Errorf("render tracker: %w", err)
		}
		return nil
	})
	if d.parts.Retrier != nil {
		group.Go(func() error {
			if err := d.parts.Retrier.Run(groupCtx); err != nil {
				return fmt.Errorf("dead letter retry: %w", err)
			}
			return nil
		})
	}

	d.cancel = cancel
	d.group = group
	d.startedAt = time.Now().UTC()
	d.running = true
	d.logger.Info("splice daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Wait blocks until the supervised loops end and returns the first failure.
func (d *Daemon) Wait() error {
	d.mu.Lock()
	group := d.group
	d.mu.Unlock()
	if group == nil {
		return nil
	}
	return group.Wait()
}

// Stop ends background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}

	d.cancel()
	if err := d.group.Wait(); err != nil {
		d.logger.Warn("background loop ended with error",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_loop_failed"),
		)
	}
	d.parts.Server.Stop()
	d.releaseLock()
	d.cancel = nil
	d.group = nil
	d.running = false
	d.logger.Info("splice daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

func (d *Daemon) releaseLock() {
	if !d.ownsLock {
		return
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

// LockPath returns the path of the single-instance lock file.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Running reports whether Start succeeded and Stop has not run.
func (d *Daemon) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Status summarizes the daemon for the status endpoint.
func (d *Daemon) Status(ctx context.Context) api.StatusResponse {
	d.mu.Lock()
	resp := api.StatusResponse{
		Running:    d.running,
		PID:        os.Getpid(),
		SessionID:  d.parts.SessionID,
		StartedAt:  d.startedAt,
		DataDir:    d.cfg.Paths.DataDir,
		LedgerPath: d.cfg.LedgerPath(),
		LockPath:   d.lockPath,
		Completion: d.cfg.Render.Completion,
	}
	d.mu.Unlock()

	if d.parts.DeadLetters != nil {
		letters, err := d.parts.DeadLetters.DeadLetters(ctx)
		if err != nil {
			d.logger.Warn("dead letter count unavailable", logging.Error(err))
		}
		for _, dl := range letters {
			if dl.Status == ledger.StatusPending {
				resp.DeadLetters++
			}
		}
	}
	return resp
}
