package archive

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/BogdanYatsenko/telegram-backup-bot/internal/database"
	"github.com/BogdanYatsenko/telegram-backup-bot/internal/downloader"
	"github.com/BogdanYatsenko/telegram-backup-bot/internal/media"
)

// Fetcher resolves an attachment reference to bytes. Implemented by
// downloader.Downloader over the Telegram transport.
type Fetcher interface {
	Fetch(ctx context.Context, fileID string) ([]byte, error)
}

// BlobStore persists attachment bytes under a content-addressed path.
// Implemented by media.Store.
type BlobStore interface {
	Put(ctx context.Context, data []byte, suggestedName, kind string) (media.Stored, error)
}

// Coordinator orchestrates handling of one event: classify, extract
// metadata, download and store the attachment if present, then commit
// the message record. The repository commit is the single externally
// visible state transition; attachment bytes are durable on disk before
// any row links to them.
type Coordinator struct {
	store   database.Store
	blobs   BlobStore
	fetcher Fetcher
	logger  *slog.Logger
}

// NewCoordinator creates a Coordinator over the given collaborators.
func NewCoordinator(store database.Store, blobs BlobStore, fetcher Fetcher, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Coordinator{
		store:   store,
		blobs:   blobs,
		fetcher: fetcher,
		logger:  logger.With("component", "coordinator"),
	}
}

// Handle processes one event and reports the outcome. Delivery is
// at-least-once, so the duplicate check against the repository is part
// of the contract, not an optimization. A failed download still commits
// the metadata row with a null attachment link (degraded success).
func (c *Coordinator) Handle(ctx context.Context, ev Event) Outcome {
	if ev.ChatID == 0 || ev.MessageID == 0 {
		return Skipped("missing message identity")
	}
	if ev.Text == "" && ev.Attachment == nil {
		return Skipped("no archivable content")
	}

	log := c.logger.With("chat_id", ev.ChatID, "message_id", ev.MessageID)

	existing, err := c.store.GetMessage(ctx, ev.ChatID, ev.MessageID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to look up existing message", "error", err)
		return Failed(ReasonStorage)
	}

	if existing != nil && existing.Text.String == ev.Text {
		log.DebugContext(ctx, "Duplicate delivery, content unchanged")
		return Duplicate()
	}

	record := c.buildRecord(ev)

	// Download only for a first sighting without a stored attachment.
	// Edits never touch an existing attachment link, so re-deliveries of
	// attachment-bearing messages cost no network traffic.
	degraded := ""
	if ev.Attachment != nil && (existing == nil || !existing.AttachmentID.Valid) {
		attachmentID, reason := c.archiveAttachment(ctx, log, ev)
		if reason != "" {
			degraded = reason
		} else {
			record.AttachmentID = sql.NullInt64{Int64: attachmentID, Valid: true}
		}
	}

	if err := c.store.UpsertMessage(ctx, record); err != nil {
		log.ErrorContext(ctx, "Failed to commit message record", "error", err)
		return Failed(ReasonStorage)
	}

	if degraded != "" {
		log.WarnContext(ctx, "Message archived without attachment", "reason", degraded)
		return Failed(degraded)
	}

	// An edited delivery can be the first sighting when the original
	// predates the archiver; it is still archived as an edit.
	if existing != nil || ev.Edited {
		log.InfoContext(ctx, "Message edit archived", "first_sighting", existing == nil)
	} else {
		log.InfoContext(ctx, "Message archived", "has_attachment", record.AttachmentID.Valid)
	}
	return Stored()
}

// archiveAttachment downloads the referenced bytes, writes them to the
// blob store, and records the attachment row. Returns the attachment row
// ID, or a failure reason when the message should be committed degraded.
func (c *Coordinator) archiveAttachment(ctx context.Context, log *slog.Logger, ev Event) (int64, string) {
	ref := ev.Attachment

	data, err := c.fetcher.Fetch(ctx, ref.FileID)
	if err != nil {
		if errors.Is(err, downloader.ErrTooLarge) {
			log.WarnContext(ctx, "Attachment exceeds size ceiling", "file_id", ref.FileID, "error", err)
			return 0, ReasonTooLarge
		}
		log.WarnContext(ctx, "Attachment download failed", "file_id", ref.FileID, "error", err)
		return 0, ReasonDownload
	}

	stored, err := c.blobs.Put(ctx, data, ref.FileName, ref.Kind)
	if err != nil {
		log.ErrorContext(ctx, "Attachment store write failed", "file_id", ref.FileID, "error", err)
		return 0, ReasonStorage
	}

	attachment, err := c.store.GetOrCreateAttachment(ctx, &database.Attachment{
		Fingerprint: stored.Fingerprint,
		Kind:        ref.Kind,
		FilePath:    stored.Path,
		ByteSize:    stored.Size,
		FileName:    nullString(ref.FileName),
		MimeType:    nullString(stored.Mime),
	})
	if err != nil {
		log.ErrorContext(ctx, "Attachment record commit failed", "fingerprint", stored.Fingerprint, "error", err)
		return 0, ReasonStorage
	}

	return attachment.ID, ""
}

func (c *Coordinator) buildRecord(ev Event) *database.Message {
	record := &database.Message{
		ChatID:     ev.ChatID,
		MessageID:  ev.MessageID,
		ChatType:   ev.ChatType,
		IsGroup:    ev.IsGroup,
		Text:       nullString(ev.Text),
		SentAt:     ev.SentAt,
		IngestedAt: time.Now().UTC(),
	}
	if ev.SenderID != 0 {
		record.UserID = sql.NullInt64{Int64: ev.SenderID, Valid: true}
	}
	record.Username = nullString(ev.SenderUsername)
	record.FullName = nullString(ev.SenderName)
	if ev.ReplyToMessageID != 0 {
		record.ReplyToMessageID = sql.NullInt64{Int64: ev.ReplyToMessageID, Valid: true}
	}
	if ev.Attachment != nil {
		record.FileUniqueID = nullString(ev.Attachment.UniqueID)
	}
	return record
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
