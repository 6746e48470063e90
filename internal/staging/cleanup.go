package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"splice/internal/fileutil"
	"splice/internal/logging"
)

// CleanStaleResult contains the outcome of an intake cleanup pass.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes intake files, manifests included, last modified more
// than maxAge ago. Directories such as the output directory are never
// touched. A non-positive maxAge disables cleanup.
func CleanStale(ctx context.Context, intakeDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	intakeDir = strings.TrimSpace(intakeDir)
	if intakeDir == "" || maxAge <= 0 {
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	entries, err := os.ReadDir(intakeDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: intakeDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.Type().IsRegular() || fileutil.IsHidden(entry.Name()) {
			continue
		}

		path := filepath.Join(intakeDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logger.Warn("failed to remove stale intake file",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "intake_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check render intake directory permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		logger.Debug("removed stale intake file",
			logging.String("path", path),
			logging.Duration("age", time.Since(info.ModTime())),
		)
	}

	if len(result.Removed) > 0 {
		logger.Info("intake cleanup complete",
			logging.Int("removed", len(result.Removed)),
			logging.Int("errors", len(result.Errors)),
			logging.String(logging.FieldEventType, "intake_cleanup"),
		)
	}
	return result
}
