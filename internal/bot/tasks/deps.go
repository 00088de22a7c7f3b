// Package tasks implements the archiver's scheduled maintenance tasks.
package tasks

import (
	"context"
	"log/slog"

	"github.com/BogdanYatsenko/telegram-backup-bot/internal/database"
)

// ScheduledTaskFunc defines the standard signature for scheduled tasks.
// The context provided by the scheduler should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// TaskDeps contains the dependencies scheduled tasks draw on.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
}
