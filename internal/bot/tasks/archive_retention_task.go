package tasks

import (
	"context"
	"fmt"
	"time"
)

const archiveRetentionTimeout = 2 * time.Minute

// NewArchiveRetentionTask returns a task that prunes archived exchanges
// older than the configured retention window.
func NewArchiveRetentionTask(deps TaskDeps) ScheduledTaskFunc {
	return func(ctx context.Context) error {
		log := deps.Logger.With("task", "archive_retention")

		retentionDays := deps.Config.Database.RetentionDays
		cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

		timeoutCtx, cancel := context.WithTimeout(ctx, archiveRetentionTimeout)
		defer cancel()

		deleted, err := deps.Store.DeleteExchangesBefore(timeoutCtx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "Archive retention failed", "error", err, "cutoff", cutoff)
			return fmt.Errorf("archive retention: %w", err)
		}

		log.InfoContext(ctx, "Archive retention finished", "deleted", deleted, "cutoff", cutoff)
		return nil
	}
}
