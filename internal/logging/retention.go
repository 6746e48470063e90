package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// CurrentLogName is the pointer in the log directory that always resolves
// to the running daemon's text log.
const CurrentLogName = "splice.log"

// RunLogPatterns match the per-run text and event logs the daemon writes.
var RunLogPatterns = []string{"splice-*.log", "splice-*.jsonl"}

// PruneRunLogs removes per-run logs in dir whose last write is older than
// retentionDays and returns how many it removed. Paths in keep and the file
// behind the current log pointer are never removed. retentionDays <= 0
// disables pruning.
func PruneRunLogs(logger *slog.Logger, dir string, retentionDays int, keep ...string) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	if logger == nil {
		logger = NewNop()
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	var protected []os.FileInfo
	for _, path := range append(slices.Clone(keep), filepath.Join(dir, CurrentLogName)) {
		if path = strings.TrimSpace(path); path == "" {
			continue
		}
		if info, err := os.Stat(path); err == nil {
			protected = append(protected, info)
		}
	}

	removed := 0
	for _, pattern := range RunLogPatterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		for _, path := range matches {
			info, err := os.Lstat(path)
			if err != nil || !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
				continue
			}
			if slices.ContainsFunc(protected, func(p os.FileInfo) bool { return os.SameFile(p, info) }) {
				continue
			}
			if err := os.Remove(path); err != nil {
				WarnWithContext(logger, "run log not pruned", "log_retention_failed",
					String("path", path),
					Error(err),
					String(FieldErrorHint, "check permissions on paths.log_dir"),
					String(FieldImpact, "old run log stays on disk"),
				)
				continue
			}
			removed++
			logger.Debug("run log pruned",
				String("path", path),
				String(FieldEventType, "log_pruned"),
			)
		}
	}
	if removed > 0 {
		logger.Info("old run logs pruned",
			Int("removed", removed),
			Int("retention_days", retentionDays),
			String(FieldEventType, "logs_pruned"),
		)
	}
	return removed
}
