// Package archive implements the ingestion pipeline: events delivered by
// the chat transport are turned into durable message records and
// content-addressed attachment files.
package archive

import "time"

// Attachment kinds, mirroring Telegram's media types.
const (
	KindPhoto     = "photo"
	KindVideo     = "video"
	KindDocument  = "document"
	KindVoice     = "voice"
	KindAudio     = "audio"
	KindAnimation = "animation"
	KindSticker   = "sticker"
)

// AttachmentRef is an opaque, transport-scoped handle to attachment bytes.
// It is not the content itself; the downloader resolves it.
type AttachmentRef struct {
	FileID   string
	UniqueID string
	Kind     string
	FileName string
	Size     int64
}

// Event is one inbound chat occurrence (new or edited message).
type Event struct {
	ChatID    int64
	MessageID int64
	ChatType  string
	IsGroup   bool

	// Sender fields are zero for channel posts.
	SenderID       int64
	SenderUsername string
	SenderName     string

	Text             string // message text or media caption
	ReplyToMessageID int64
	Edited           bool
	SentAt           time.Time

	Attachment *AttachmentRef
}

// Status classifies the result of handling one event.
type Status int

const (
	// StatusStored means the record was committed (insert or edit).
	StatusStored Status = iota
	// StatusDuplicate means an identical record already existed.
	StatusDuplicate
	// StatusSkipped means the event carried nothing to archive.
	StatusSkipped
	// StatusFailed means handling failed; Outcome.Reason says how.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusStored:
		return "stored"
	case StatusDuplicate:
		return "duplicate"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of Coordinator.Handle for one event.
type Outcome struct {
	Status Status
	Reason string
}

// Failure reasons carried on failed outcomes.
const (
	ReasonDownload = "download"
	ReasonTooLarge = "too_large"
	ReasonStorage  = "storage"
)

// Stored reports a committed record.
func Stored() Outcome { return Outcome{Status: StatusStored} }

// Duplicate reports an already-archived, unchanged event.
func Duplicate() Outcome { return Outcome{Status: StatusDuplicate} }

// Skipped reports an event with nothing to archive.
func Skipped(reason string) Outcome { return Outcome{Status: StatusSkipped, Reason: reason} }

// Failed reports a handling failure.
func Failed(reason string) Outcome { return Outcome{Status: StatusFailed, Reason: reason} }
