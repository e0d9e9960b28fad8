package model

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/gptbots-qa/agent-tester/common/logger"
)

const historyRetentionSweepInterval = 24 * time.Hour

// StartHistoryRetentionCleaner removes run records older than retentionDays once a day.
func StartHistoryRetentionCleaner(ctx context.Context, retentionDays int) {
	if retentionDays <= 0 {
		logger.Logger.Debug("history retention disabled", zap.Int("history_retention_days", retentionDays))
		return
	}

	cleanup := func() {
		deleted, err := CleanExpiredHistories(ctx, retentionDays)
		if err != nil {
			logger.Logger.Warn("history retention cleanup failed", zap.Error(err))
			return
		}
		if deleted > 0 {
			logger.Logger.Info("deleted expired test histories",
				zap.Int64("deleted_rows", deleted), zap.Int("history_retention_days", retentionDays))
		}
	}

	cleanup()

	ticker := time.NewTicker(historyRetentionSweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Logger.Info("history retention cleaner stopped")
				return
			case <-ticker.C:
				cleanup()
			}
		}
	}()

	logger.Logger.Info("history retention cleaner started", zap.Int("history_retention_days", retentionDays))
}

// CleanExpiredHistories deletes records created more than retentionDays ago.
func CleanExpiredHistories(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().Add(-time.Duration(retentionDays) * 24 * time.Hour).UnixMilli()

	var deleted int64
	err := runWithSQLiteBusyRetry(ctx, func() error {
		tx := DB.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&TestHistory{})
		deleted = tx.RowsAffected
		return tx.Error
	})
	if err != nil {
		return 0, errors.Wrap(err, "delete expired test histories")
	}
	return deleted, nil
}
