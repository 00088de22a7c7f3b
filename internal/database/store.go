package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for archive persistence operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// UpsertMessage inserts a message record or, when (chat_id, message_id)
	// already exists, updates text and ingested_at in place. An existing
	// attachment link is never overwritten. The whole operation is one
	// transaction; concurrent upserts for the same pair resolve through the
	// schema's uniqueness constraint rather than erroring.
	UpsertMessage(ctx context.Context, message *Message) error

	// GetMessage retrieves a message by its (chat_id, message_id) identity.
	// Returns nil, nil when absent.
	GetMessage(ctx context.Context, chatID, messageID int64) (*Message, error)

	// MessageExists reports whether a (chat_id, message_id) pair is recorded.
	MessageExists(ctx context.Context, chatID, messageID int64) (bool, error)

	// GetOrCreateAttachment inserts an attachment record keyed by content
	// fingerprint, or returns the existing record when the fingerprint is
	// already known. The returned record always carries the stored row's ID.
	GetOrCreateAttachment(ctx context.Context, attachment *Attachment) (*Attachment, error)

	// GetAttachment retrieves an attachment by row ID. Returns nil, nil when absent.
	GetAttachment(ctx context.Context, id int64) (*Attachment, error)

	// ListAttachments returns all attachment records, used by the media sweep task.
	ListAttachments(ctx context.Context) ([]*Attachment, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertMessage inserts or updates a message record transactionally.
// Edit ordering is last-writer-wins by commit order: whichever upsert lands
// last owns the text, and ingested_at records when that happened.
func (s *sqlxStore) UpsertMessage(ctx context.Context, message *Message) error {
	if message == nil {
		return fmt.Errorf("cannot upsert nil message")
	}
	if message.ChatID == 0 {
		return fmt.Errorf("message must have a non-zero chat_id")
	}
	if message.MessageID == 0 {
		return fmt.Errorf("message must have a non-zero message_id")
	}
	if message.SentAt.IsZero() {
		return fmt.Errorf("message must have a non-zero sent_at")
	}

	if message.IngestedAt.IsZero() {
		message.IngestedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for message upsert",
			"chat_id", message.ChatID, "message_id", message.MessageID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	query := `
        INSERT INTO messages (
            chat_id, message_id, user_id, username, full_name, text,
            reply_to_message_id, chat_type, is_group, file_unique_id,
            attachment_id, sent_at, ingested_at
        ) VALUES (
            :chat_id, :message_id, :user_id, :username, :full_name, :text,
            :reply_to_message_id, :chat_type, :is_group, :file_unique_id,
            :attachment_id, :sent_at, :ingested_at
        )
        ON CONFLICT (chat_id, message_id) DO UPDATE SET
            text          = excluded.text,
            ingested_at   = excluded.ingested_at,
            attachment_id = COALESCE(messages.attachment_id, excluded.attachment_id);
    `

	if _, err := tx.NamedExecContext(ctx, query, message); err != nil {
		s.logger.ErrorContext(ctx, "Error upserting message",
			"chat_id", message.ChatID, "message_id", message.MessageID, "error", err)
		return fmt.Errorf("failed to upsert message (chat %d, message %d): %w",
			message.ChatID, message.MessageID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit message upsert",
			"chat_id", message.ChatID, "message_id", message.MessageID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Message upserted",
		"chat_id", message.ChatID, "message_id", message.MessageID)
	return nil
}

// GetMessage retrieves a message by its (chat_id, message_id) identity.
func (s *sqlxStore) GetMessage(ctx context.Context, chatID, messageID int64) (*Message, error) {
	if chatID == 0 || messageID == 0 {
		return nil, fmt.Errorf("chat_id and message_id must be non-zero")
	}

	var message Message
	query := `SELECT * FROM messages WHERE chat_id = ? AND message_id = ? LIMIT 1;`
	if err := s.db.GetContext(ctx, &message, query, chatID, messageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.ErrorContext(ctx, "Error fetching message",
			"chat_id", chatID, "message_id", messageID, "error", err)
		return nil, fmt.Errorf("failed to fetch message (chat %d, message %d): %w", chatID, messageID, err)
	}

	return &message, nil
}

// MessageExists reports whether a (chat_id, message_id) pair is recorded.
func (s *sqlxStore) MessageExists(ctx context.Context, chatID, messageID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM messages WHERE chat_id = ? AND message_id = ?);`
	if err := s.db.GetContext(ctx, &exists, query, chatID, messageID); err != nil {
		return false, fmt.Errorf("failed to check message existence (chat %d, message %d): %w",
			chatID, messageID, err)
	}
	return exists, nil
}

// GetOrCreateAttachment inserts an attachment record or returns the existing
// one for the same fingerprint. The insert uses ON CONFLICT DO NOTHING so a
// concurrent insert of the same content is benign.
func (s *sqlxStore) GetOrCreateAttachment(ctx context.Context, attachment *Attachment) (*Attachment, error) {
	if attachment == nil {
		return nil, fmt.Errorf("cannot save nil attachment")
	}
	if attachment.Fingerprint == "" {
		return nil, fmt.Errorf("attachment must have a fingerprint")
	}
	if attachment.FilePath == "" {
		return nil, fmt.Errorf("attachment must have a file path")
	}

	if attachment.CreatedAt.IsZero() {
		attachment.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	insert := `
        INSERT INTO attachments (fingerprint, kind, file_path, byte_size, file_name, mime_type, created_at)
        VALUES (:fingerprint, :kind, :file_path, :byte_size, :file_name, :mime_type, :created_at)
        ON CONFLICT (fingerprint) DO NOTHING;
    `
	if _, err := tx.NamedExecContext(ctx, insert, attachment); err != nil {
		s.logger.ErrorContext(ctx, "Error inserting attachment",
			"fingerprint", attachment.Fingerprint, "error", err)
		return nil, fmt.Errorf("failed to insert attachment %s: %w", attachment.Fingerprint, err)
	}

	var stored Attachment
	query := `SELECT * FROM attachments WHERE fingerprint = ? LIMIT 1;`
	if err := tx.GetContext(ctx, &stored, query, attachment.Fingerprint); err != nil {
		return nil, fmt.Errorf("failed to fetch attachment %s: %w", attachment.Fingerprint, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	return &stored, nil
}

// GetAttachment retrieves an attachment by row ID.
func (s *sqlxStore) GetAttachment(ctx context.Context, id int64) (*Attachment, error) {
	var attachment Attachment
	query := `SELECT * FROM attachments WHERE id = ? LIMIT 1;`
	if err := s.db.GetContext(ctx, &attachment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch attachment %d: %w", id, err)
	}
	return &attachment, nil
}

// ListAttachments returns all attachment records ordered by creation time.
func (s *sqlxStore) ListAttachments(ctx context.Context) ([]*Attachment, error) {
	var attachments []*Attachment
	query := `SELECT * FROM attachments ORDER BY created_at ASC;`
	if err := s.db.SelectContext(ctx, &attachments, query); err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return attachments, nil
}

// RunSQLMaintenance performs database maintenance (ANALYZE and VACUUM).
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Running SQL maintenance")

	if _, err := s.db.ExecContext(ctx, "ANALYZE;"); err != nil {
		return fmt.Errorf("failed to run ANALYZE: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		return fmt.Errorf("failed to run VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "SQL maintenance completed")
	return nil
}
