// Package bot wires the archiver's components together and manages
// their lifecycle: the Telegram poller, the ingestion worker pool, and
// the maintenance scheduler.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/BogdanYatsenko/telegram-backup-bot/internal/archive"
	"github.com/BogdanYatsenko/telegram-backup-bot/internal/telegram"
)

// Bot represents the archiver application and its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	pool      *archive.Pool
	tg        *telegram.Bot
	scheduler *Scheduler
}

// NewBot creates the orchestrator over its components.
func NewBot(logger *slog.Logger, pool *archive.Pool, tg *telegram.Bot, scheduler *Scheduler) *Bot {
	return &Bot{
		logger:    logger.With("component", "orchestrator"),
		pool:      pool,
		tg:        tg,
		scheduler: scheduler,
	}
}

// Run starts all components and blocks until ctx is cancelled or a
// component fails. Shutdown order follows cancellation: the poller stops
// submitting, the pool finishes in-flight events, the scheduler waits
// for running jobs.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting archiver components")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.pool.Run(gCtx)
	})

	g.Go(func() error {
		if err := b.tg.Run(gCtx); err != nil {
			return fmt.Errorf("telegram transport: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := b.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Archiver stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Archiver stopped gracefully")
	return nil
}
