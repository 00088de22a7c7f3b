// Package telegram adapts the Telegram Bot API to the archiver: it polls
// for updates, maps them to archive events, and resolves file references
// for the downloader.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BogdanYatsenko/telegram-backup-bot/internal/archive"
	"github.com/BogdanYatsenko/telegram-backup-bot/internal/logger"
)

// Bot is the long-polling Telegram transport. Every archivable update is
// submitted to the ingestion pool; outcomes are logged by the workers.
// Failed events are acknowledged anyway (the polling offset advances):
// their metadata is already committed degraded, and redelivering a
// poison update would wedge the stream.
type Bot struct {
	bot    *bot.Bot
	token  string
	pool   *archive.Pool
	logger *slog.Logger
}

// New creates the Telegram transport. The ingestion pool is attached
// separately with AttachPool: the pool's coordinator needs a downloader,
// and the downloader resolves files through this bot.
func New(token string, log *slog.Logger, opts ...bot.Option) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}

	t := &Bot{
		token:  token,
		logger: log.With("component", "telegram"),
	}

	botOpts := append([]bot.Option{
		bot.WithMiddlewares(logger.Middleware(t.logger)),
		bot.WithDefaultHandler(t.handleUpdate),
	}, opts...)

	b, err := bot.New(token, botOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	t.bot = b

	return t, nil
}

// AttachPool wires the ingestion pool. Must be called before Run.
func (t *Bot) AttachPool(pool *archive.Pool) {
	t.pool = pool
}

// Run starts long polling and blocks until ctx is cancelled.
func (t *Bot) Run(ctx context.Context) error {
	if t.pool == nil {
		return fmt.Errorf("ingestion pool not attached")
	}
	t.logger.Info("Starting Telegram long polling")
	t.bot.Start(ctx)
	t.logger.Info("Telegram long polling stopped")

	if ctx.Err() == nil {
		return fmt.Errorf("telegram listener stopped unexpectedly")
	}
	return nil
}

// GetMe fetches the bot's own identity, used at startup as a token check.
func (t *Bot) GetMe(ctx context.Context) (*models.User, error) {
	me, err := t.bot.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	return me, nil
}

// handleUpdate maps one update to an archive event and enqueues it.
func (t *Bot) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg, edited := messageFromUpdate(update)
	if msg == nil {
		return
	}

	ev, ok := eventFromMessage(msg, edited)
	if !ok {
		return
	}

	if err := t.pool.Submit(ctx, ev); err != nil {
		t.logger.WarnContext(ctx, "Dropping event, pool not accepting",
			"chat_id", ev.ChatID, "message_id", ev.MessageID, "error", err)
	}
}

// messageFromUpdate picks the message payload out of an update, covering
// new and edited messages in both chats and channels.
func messageFromUpdate(update *models.Update) (msg *models.Message, edited bool) {
	switch {
	case update.Message != nil:
		return update.Message, false
	case update.EditedMessage != nil:
		return update.EditedMessage, true
	case update.ChannelPost != nil:
		return update.ChannelPost, false
	case update.EditedChannelPost != nil:
		return update.EditedChannelPost, true
	default:
		return nil, false
	}
}
