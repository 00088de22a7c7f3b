package database

import (
	"database/sql"
	"time"
)

// Message is one archived chat message. A row is created the first time a
// (chat_id, message_id) pair is seen; edits overwrite text and bump
// ingested_at, and the attachment link is immutable once set.
type Message struct {
	ID int64 `db:"id"`

	ChatID    int64 `db:"chat_id"`
	MessageID int64 `db:"message_id"`

	UserID   sql.NullInt64  `db:"user_id"` // NULL for channel posts
	Username sql.NullString `db:"username"`
	FullName sql.NullString `db:"full_name"`

	Text             sql.NullString `db:"text"` // message text or media caption
	ReplyToMessageID sql.NullInt64  `db:"reply_to_message_id"`
	ChatType         string         `db:"chat_type"`
	IsGroup          bool           `db:"is_group"`

	// FileUniqueID is Telegram's stable id for the primary attachment,
	// kept for audit. Dedup itself is keyed on content fingerprint.
	FileUniqueID sql.NullString `db:"file_unique_id"`
	AttachmentID sql.NullInt64  `db:"attachment_id"`

	SentAt     time.Time `db:"sent_at"`     // source-provided, authoritative
	IngestedAt time.Time `db:"ingested_at"` // local clock, audit
}

// Attachment is one stored media object, deduplicated by content fingerprint.
// Multiple messages may reference the same row.
type Attachment struct {
	ID int64 `db:"id"`

	Fingerprint string `db:"fingerprint"` // sha256 hex of the bytes
	Kind        string `db:"kind"`
	FilePath    string `db:"file_path"`
	ByteSize    int64  `db:"byte_size"`

	FileName sql.NullString `db:"file_name"`
	MimeType sql.NullString `db:"mime_type"`

	CreatedAt time.Time `db:"created_at"`
}
