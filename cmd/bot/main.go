// Package main contains the entrypoint for the Telegram archiver.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BogdanYatsenko/telegram-backup-bot/internal/archive"
	"github.com/BogdanYatsenko/telegram-backup-bot/internal/bot"
	"github.com/BogdanYatsenko/telegram-backup-bot/internal/bot/tasks"
	"github.com/BogdanYatsenko/telegram-backup-bot/internal/config"
	"github.com/BogdanYatsenko/telegram-backup-bot/internal/database"
	"github.com/BogdanYatsenko/telegram-backup-bot/internal/downloader"
	"github.com/BogdanYatsenko/telegram-backup-bot/internal/logger"
	"github.com/BogdanYatsenko/telegram-backup-bot/internal/media"
	"github.com/BogdanYatsenko/telegram-backup-bot/internal/telegram"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components, handles graceful
// shutdown, and returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	blobs, err := media.NewStore(cfg.Media.Dir, log)
	if err != nil {
		log.Error("Failed to initialize media store", "dir", cfg.Media.Dir, "error", err)
		return 1
	}

	tg, err := telegram.New(cfg.Telegram.Token, log)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	fetcher := downloader.New(tg, downloader.Config{
		MaxAttempts: cfg.Download.MaxAttempts,
		BaseDelay:   cfg.Download.BaseDelay,
		MaxDelay:    cfg.Download.MaxDelay,
		Timeout:     cfg.Download.Timeout,
		MaxFileSize: cfg.Media.MaxFileSize,
	}, log)

	coordinator := archive.NewCoordinator(store, blobs, fetcher, log)
	pool := archive.NewPool(coordinator, cfg.Pool.Workers, cfg.Pool.QueueSize, log)
	tg.AttachPool(pool)

	me, err := tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)

	scheduler, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: log,
		Store:  store,
	}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, pool, tg, scheduler)

	log.Info("Starting archiver...")
	runErr := app.Run(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Archiver stopped due to error", "error", runErr)
		return 1
	}

	log.Info("Archiver stopped gracefully.")
	return 0
}
