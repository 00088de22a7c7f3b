package telegram

import (
	"strings"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/BogdanYatsenko/telegram-backup-bot/internal/archive"
)

// eventFromMessage converts a Telegram message to an archive event.
// Commands and messages with nothing to archive are dropped (ok=false).
func eventFromMessage(msg *models.Message, edited bool) (archive.Event, bool) {
	if msg == nil {
		return archive.Event{}, false
	}
	if strings.HasPrefix(msg.Text, "/") {
		return archive.Event{}, false
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	chatType := string(msg.Chat.Type)
	ev := archive.Event{
		ChatID:     msg.Chat.ID,
		MessageID:  int64(msg.ID),
		ChatType:   chatType,
		IsGroup:    chatType == "group" || chatType == "supergroup",
		Text:       text,
		Edited:     edited,
		SentAt:     time.Unix(int64(msg.Date), 0).UTC(),
		Attachment: attachmentFromMessage(msg),
	}

	// Channel posts carry no sender.
	if msg.From != nil {
		ev.SenderID = msg.From.ID
		ev.SenderUsername = msg.From.Username
		ev.SenderName = fullName(msg.From.FirstName, msg.From.LastName)
	}

	if msg.ReplyToMessage != nil {
		ev.ReplyToMessageID = int64(msg.ReplyToMessage.ID)
	}

	if ev.Text == "" && ev.Attachment == nil {
		return archive.Event{}, false
	}
	return ev, true
}

// attachmentFromMessage picks the primary attachment of a message.
// One primary per message, in fixed precedence order; for photos the
// largest rendition is the last element of the size list.
func attachmentFromMessage(msg *models.Message) *archive.AttachmentRef {
	switch {
	case len(msg.Photo) > 0:
		photo := msg.Photo[len(msg.Photo)-1]
		return &archive.AttachmentRef{
			FileID:   photo.FileID,
			UniqueID: photo.FileUniqueID,
			Kind:     archive.KindPhoto,
			Size:     int64(photo.FileSize),
		}
	case msg.Video != nil:
		return &archive.AttachmentRef{
			FileID:   msg.Video.FileID,
			UniqueID: msg.Video.FileUniqueID,
			Kind:     archive.KindVideo,
			FileName: msg.Video.FileName,
			Size:     int64(msg.Video.FileSize),
		}
	case msg.Document != nil:
		return &archive.AttachmentRef{
			FileID:   msg.Document.FileID,
			UniqueID: msg.Document.FileUniqueID,
			Kind:     archive.KindDocument,
			FileName: msg.Document.FileName,
			Size:     int64(msg.Document.FileSize),
		}
	case msg.Voice != nil:
		return &archive.AttachmentRef{
			FileID:   msg.Voice.FileID,
			UniqueID: msg.Voice.FileUniqueID,
			Kind:     archive.KindVoice,
			Size:     int64(msg.Voice.FileSize),
		}
	case msg.Audio != nil:
		return &archive.AttachmentRef{
			FileID:   msg.Audio.FileID,
			UniqueID: msg.Audio.FileUniqueID,
			Kind:     archive.KindAudio,
			FileName: msg.Audio.FileName,
			Size:     int64(msg.Audio.FileSize),
		}
	case msg.Animation != nil:
		return &archive.AttachmentRef{
			FileID:   msg.Animation.FileID,
			UniqueID: msg.Animation.FileUniqueID,
			Kind:     archive.KindAnimation,
			FileName: msg.Animation.FileName,
			Size:     int64(msg.Animation.FileSize),
		}
	case msg.Sticker != nil:
		return &archive.AttachmentRef{
			FileID:   msg.Sticker.FileID,
			UniqueID: msg.Sticker.FileUniqueID,
			Kind:     archive.KindSticker,
			Size:     int64(msg.Sticker.FileSize),
		}
	default:
		return nil
	}
}

// fullName builds a readable name from first/last parts.
func fullName(first, last string) string {
	parts := make([]string, 0, 2)
	if first != "" {
		parts = append(parts, first)
	}
	if last != "" {
		parts = append(parts, last)
	}
	return strings.Join(parts, " ")
}
