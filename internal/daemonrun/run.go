package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"splice/internal/api"
	"splice/internal/command"
	"splice/internal/config"
	"splice/internal/daemon"
	"splice/internal/ledger"
	"splice/internal/logging"
	"splice/internal/notifications"
	"splice/internal/preflight"
	"splice/internal/project"
	"splice/internal/render"
	"splice/internal/services/llm"
	"splice/internal/staging"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the splice daemon and blocks until a signal arrives, the
// parent context ends, or a background loop fails.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	// The run files below belong to whichever process holds the lock.
	lock, err := daemon.AcquireLock(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("splice-%s.log", runID))
	eventsPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("splice-%s.jsonl", runID))
	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		JSONFile:    eventsPath,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	sessionID := uuid.NewString()
	logger = logger.With(logging.String("session_id", sessionID))

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update splice.log link: %v\n", err)
	}
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logPath, eventsPath)
	pidPath := filepath.Join(cfg.Paths.LogDir, "splice.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	logPreflightSnapshot(logger, cfg)
	staging.CleanStale(signalCtx, cfg.IntakeDir(), time.Duration(cfg.Render.IntakeRetentionDays)*24*time.Hour, logger)

	journal, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		logger.Error("open ledger", logging.Error(err), logging.String("path", cfg.LedgerPath()))
		return err
	}
	defer journal.Close()

	notifier := notifications.NewService(cfg)
	registry := render.NewRegistry()
	renderDeps := render.Deps{DeadLetters: journal, Journal: journal, Notifier: notifier, Logger: logger}
	dispatcher := render.NewDispatcher(cfg, registry, renderDeps)
	tracker := render.NewTracker(cfg, registry, renderDeps)
	retrier := render.NewRetrier(cfg, tracker, dispatcher, renderDeps)

	store := project.NewStore(cfg.ProjectsDir(), cfg.Projects.DocumentName)
	executor := command.NewExecutor(cfg, command.Deps{
		Chain:      project.NewChain(store, journal, logger),
		Dispatcher: dispatcher,
		Translator: newTranslator(cfg, logger),
		Notifier:   notifier,
		Logger:     logger,
	})

	var d *daemon.Daemon
	server := api.NewServer(cfg, api.Deps{
		Store:       store,
		Executor:    executor,
		Board:       registry,
		Events:      journal,
		DeadLetters: journal,
		Status:      func(ctx context.Context) api.StatusResponse { return d.Status(ctx) },
		Logger:      logger,
	})
	d, err = daemon.New(cfg, logger, daemon.Components{
		Tracker:     tracker,
		Retrier:     retrier,
		Server:      server,
		DeadLetters: journal,
		SessionID:   sessionID,
		Lock:        lock,
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check for another running daemon and directory permissions"),
		)
		return err
	}
	defer d.Stop()

	waitErr := make(chan error, 1)
	go func() { waitErr <- d.Wait() }()
	select {
	case <-signalCtx.Done():
		logger.Info("splice daemon shutting down")
		return nil
	case err := <-waitErr:
		if err != nil && signalCtx.Err() == nil {
			logging.ErrorWithContext(logger, "background loop failed", "daemon_loop_failed", logging.Error(err))
			return err
		}
		return nil
	}
}

// newTranslator returns nil when no API key is configured so translate
// commands fail as a configuration error.
func newTranslator(cfg *config.Config, logger *slog.Logger) command.Translator {
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.Translate.APIKey,
		BaseURL:        cfg.Translate.BaseURL,
		Model:          cfg.Translate.Model,
		Referer:        cfg.Translate.Referer,
		Title:          cfg.Translate.Title,
		TimeoutSeconds: cfg.Translate.TimeoutSeconds,
	})
	if !client.Configured() {
		logger.Info("translation disabled; no api key configured",
			logging.String(logging.FieldEventType, "translate_disabled"),
		)
		return nil
	}
	return client
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logging.CurrentLogName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logPreflightSnapshot(logger *slog.Logger, cfg *config.Config) {
	results := preflight.RunAll(cfg)
	for _, r := range results {
		attrs := []logging.Attr{
			logging.String("check", r.Name),
			logging.Bool("passed", r.Passed),
			logging.String("detail", r.Detail),
		}
		if r.Passed || r.Optional {
			attrs = append(attrs, logging.String(logging.FieldEventType, "preflight_check"))
			logger.Info("preflight check", logging.Args(attrs...)...)
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_check_failed", attrs...)
	}
	if failed := preflight.Failed(results); len(failed) > 0 {
		logging.WarnWithContext(logger, "preflight found problems", "preflight_summary",
			logging.Int("failed", len(failed)),
			logging.String(logging.FieldImpact, "renders or edits touching these paths will fail"),
		)
	}
}
