package tasks

import (
	"context"
	"fmt"
	"time"
)

const sqlMaintenanceTimeout = 5 * time.Minute

// NewSQLMaintenanceTask returns a task that runs database maintenance
// (VACUUM/ANALYZE) on the exchange archive.
func NewSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	return func(ctx context.Context) error {
		log := deps.Logger.With("task", "sql_maintenance")

		timeoutCtx, cancel := context.WithTimeout(ctx, sqlMaintenanceTimeout)
		defer cancel()

		if err := deps.Store.RunSQLMaintenance(timeoutCtx); err != nil {
			log.ErrorContext(ctx, "SQL maintenance failed", "error", err)
			return fmt.Errorf("sql maintenance: %w", err)
		}

		return nil
	}
}
