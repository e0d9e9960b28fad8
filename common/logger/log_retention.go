package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
)

// StartLogRetentionCleaner removes *.log files older than retentionDays from logDir,
// once immediately and then daily until ctx is done.
func StartLogRetentionCleaner(ctx context.Context, retentionDays int, logDir string) {
	if retentionDays <= 0 || strings.TrimSpace(logDir) == "" {
		Logger.Debug("log retention disabled",
			zap.Int("log_retention_days", retentionDays),
			zap.String("log_dir", logDir))
		return
	}

	sweep := func() {
		removed, err := removeExpiredLogs(logDir, time.Now().AddDate(0, 0, -retentionDays))
		if err != nil {
			Logger.Warn("log retention sweep failed", zap.Error(err))
			return
		}
		if removed > 0 {
			Logger.Info("expired log files removed", zap.Int("count", removed))
		}
	}
	sweep()

	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweep()
			}
		}
	}()
}

func removeExpiredLogs(logDir string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "read log directory")
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(logDir, entry.Name())
		if err := os.Remove(path); err != nil {
			Logger.Warn("remove expired log file", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}
