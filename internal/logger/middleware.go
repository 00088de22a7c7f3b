package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Middleware creates a logging middleware for the Telegram bot.
// It times each update and records its type and message identity.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()

			logEntry := log.With("update_id", update.ID)

			var updateType string
			var msg *models.Message
			switch {
			case update.Message != nil:
				updateType = "message"
				msg = update.Message
			case update.EditedMessage != nil:
				updateType = "edited_message"
				msg = update.EditedMessage
			case update.ChannelPost != nil:
				updateType = "channel_post"
				msg = update.ChannelPost
			case update.EditedChannelPost != nil:
				updateType = "edited_channel_post"
				msg = update.EditedChannelPost
			default:
				updateType = "other"
			}
			logEntry = logEntry.With("update_type", updateType)

			if msg != nil {
				logEntry = logEntry.With(
					"chat_id", msg.Chat.ID,
					"message_id", msg.ID,
				)
			}

			logEntry.DebugContext(ctx, "Processing update")

			next(ctx, b, update)

			logEntry.DebugContext(ctx, "Finished processing update", "duration", time.Since(startTime))
		}
	}
}
