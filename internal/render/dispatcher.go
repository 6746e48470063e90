package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"splice/internal/config"
	"splice/internal/fileutil"
	"splice/internal/ledger"
	"splice/internal/logging"
	"splice/internal/notifications"
	"splice/internal/project"
	"splice/internal/services"
)

// Dispatcher hands committed versions to the renderer.
type Dispatcher struct {
	intakeDir  string
	board      StatusBoard
	deps       Deps
	logger     *slog.Logger
	retryDelay time.Duration
	now        func() time.Time
}

// NewDispatcher builds a dispatcher for cfg's intake directory.
func NewDispatcher(cfg *config.Config, board StatusBoard, deps Deps) *Dispatcher {
	return &Dispatcher{
		intakeDir:  cfg.IntakeDir(),
		board:      board,
		deps:       deps,
		logger:     deps.logger("render-dispatch"),
		retryDelay: time.Duration(cfg.DeadLetter.RetryIntervalSeconds) * time.Second,
		now:        time.Now,
	}
}

// IntakePath returns where v is copied for the renderer.
func (d *Dispatcher) IntakePath(v project.Version) string {
	return filepath.Join(d.intakeDir, filepath.Base(v.Path))
}

// Dispatch marks the project rendering and copies v into the intake
// directory under its own base name with a sidecar manifest. When the copy
// fails the previous status is restored, the version is dead-lettered for a
// later retry and an error notification is sent.
func (d *Dispatcher) Dispatch(ctx context.Context, v project.Version) error {
	ctx = services.WithVersionID(services.WithProjectID(ctx, v.ProjectID), v.ID)
	logger := logging.WithContext(ctx, d.logger)

	err := d.deliver(ctx, logger, v)
	if err == nil {
		return nil
	}

	logging.ErrorWithContext(logger, "render dispatch failed", string(ledger.EventDispatchFailed),
		logging.Error(err),
		logging.String("source", v.Path),
		logging.String(logging.FieldErrorHint, "check the render intake directory is writable"),
	)
	d.deps.journal(ctx, logger, ledger.Event{
		ProjectID: v.ProjectID,
		VersionID: v.ID,
		Kind:      ledger.EventDispatchFailed,
		Path:      v.Path,
		Detail:    err.Error(),
	})
	if d.deps.DeadLetters != nil {
		if _, dlErr := d.deps.DeadLetters.Put(ctx, ledger.DeadLetter{
			Queue:     ledger.QueueIntake,
			Path:      v.Path,
			ProjectID: v.ProjectID,
			VersionID: v.ID,
			Reason:    err.Error(),
		}, d.retryDelay); dlErr != nil {
			logging.ErrorWithContext(logger, "dead letter write failed", "dead_letter_failed",
				logging.Error(dlErr),
				logging.String(logging.FieldErrorHint, "check the ledger database"),
			)
		}
	}
	d.deps.notify(ctx, logger, notifications.EventError, notifications.Payload{
		"projectId": v.ProjectID,
		"context":   "render dispatch",
		"error":     err,
	})
	return err
}

// Redeliver retries a dispatch recorded in the intake dead-letter queue.
func (d *Dispatcher) Redeliver(ctx context.Context, dl ledger.DeadLetter) error {
	v := project.Version{ProjectID: dl.ProjectID, ID: dl.VersionID, Path: dl.Path}
	ctx = services.WithVersionID(services.WithProjectID(ctx, v.ProjectID), v.ID)
	return d.deliver(ctx, logging.WithContext(ctx, d.logger), v)
}

func (d *Dispatcher) deliver(ctx context.Context, logger *slog.Logger, v project.Version) error {
	if v.ProjectID == "" || v.Path == "" {
		return services.Wrap(services.ErrValidation, "render", "dispatch", "version without project or path", nil)
	}
	mark := d.board.MarkRendering(v.ProjectID, v.ID)

	dst := d.IntakePath(v)
	now := d.now().UTC()
	manifest := Manifest{
		ProjectID:    v.ProjectID,
		VersionID:    v.ID,
		File:         filepath.Base(dst),
		DispatchedAt: &now,
	}
	if err := WriteManifest(dst, manifest); err != nil {
		d.board.Revert(mark)
		return services.Wrap(services.ErrTransient, "render", "dispatch", "write intake manifest", err)
	}
	if err := fileutil.CopyAtomic(v.Path, dst); err != nil {
		_ = os.Remove(ManifestPath(dst))
		d.board.Revert(mark)
		return services.Wrap(services.ErrTransient, "render", "dispatch", fmt.Sprintf("copy %s to intake", filepath.Base(v.Path)), err)
	}

	logger.Info("render dispatched",
		logging.String("intake", dst),
		logging.String(logging.FieldEventType, string(ledger.EventRenderDispatched)),
	)
	d.deps.journal(ctx, logger, ledger.Event{
		ProjectID: v.ProjectID,
		VersionID: v.ID,
		Kind:      ledger.EventRenderDispatched,
		Path:      dst,
	})
	d.deps.notify(ctx, logger, notifications.EventRenderDispatched, notifications.Payload{
		"projectId": v.ProjectID,
		"versionId": v.ID,
	})
	return nil
}
