// Package tasks contains the scheduled background tasks and their
// registration logic.
package tasks

import (
	"context"
	"log/slog"

	"github.com/diyorbek/relaybot/internal/config"
	"github.com/diyorbek/relaybot/internal/database"
)

// ScheduledTaskFunc is the signature every scheduled task implements.
type ScheduledTaskFunc func(ctx context.Context) error

// TaskDeps provides dependencies for scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Store  database.Store
}
