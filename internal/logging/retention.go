package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// runLogPattern matches the per-run log files written by NewFromConfig.
const runLogPattern = "cgex-*.log"

// PruneRunLogs deletes run logs in dir whose modification time is older than
// keepDays, never touching current. keepDays <= 0 keeps everything. It
// returns the number of files removed.
func PruneRunLogs(logger *slog.Logger, dir string, keepDays int, current string) int {
	if keepDays <= 0 || dir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, runLogPattern))
	if err != nil {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -keepDays)
	if current != "" {
		if abs, err := filepath.Abs(current); err == nil {
			current = abs
		}
	}

	removed := 0
	for _, path := range matches {
		if abs, err := filepath.Abs(path); err == nil && abs == current {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "run log prune failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check ownership of paths.log_dir"),
				String(FieldImpact, "old run log stays on disk"),
			)
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Debug("old run logs pruned",
			Int("count", removed),
			Int("keep_days", keepDays),
			String(FieldEventType, "log_pruned"),
		)
	}
	return removed
}
