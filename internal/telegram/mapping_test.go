package telegram

import (
	"testing"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/BogdanYatsenko/telegram-backup-bot/internal/archive"
)

func baseMessage() *models.Message {
	return &models.Message{
		ID:   42,
		Date: 1748779200, // 2025-06-01T12:00:00Z
		Chat: models.Chat{ID: 1, Type: "private"},
		From: &models.User{ID: 7, Username: "tester", FirstName: "Test", LastName: "User"},
	}
}

func TestEventFromMessageText(t *testing.T) {
	t.Parallel()

	msg := baseMessage()
	msg.Text = "hello there"

	ev, ok := eventFromMessage(msg, false)
	if !ok {
		t.Fatal("eventFromMessage() ok = false, want true")
	}
	if ev.ChatID != 1 || ev.MessageID != 42 {
		t.Errorf("identity = (%d, %d), want (1, 42)", ev.ChatID, ev.MessageID)
	}
	if ev.Text != "hello there" {
		t.Errorf("Text = %q", ev.Text)
	}
	if ev.SenderID != 7 || ev.SenderUsername != "tester" {
		t.Errorf("sender = %d/%q, want 7/tester", ev.SenderID, ev.SenderUsername)
	}
	if ev.SenderName != "Test User" {
		t.Errorf("SenderName = %q, want joined name", ev.SenderName)
	}
	if !ev.SentAt.Equal(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("SentAt = %v", ev.SentAt)
	}
	if ev.Attachment != nil {
		t.Error("Attachment set for text-only message")
	}
}

func TestEventFromMessageSkipsCommands(t *testing.T) {
	t.Parallel()

	msg := baseMessage()
	msg.Text = "/start"

	if _, ok := eventFromMessage(msg, false); ok {
		t.Error("eventFromMessage() accepted a command")
	}
}

func TestEventFromMessageSkipsEmpty(t *testing.T) {
	t.Parallel()

	if _, ok := eventFromMessage(baseMessage(), false); ok {
		t.Error("eventFromMessage() accepted a message with nothing to archive")
	}
}

func TestEventFromMessageChannelPostHasNoSender(t *testing.T) {
	t.Parallel()

	msg := baseMessage()
	msg.From = nil
	msg.Chat.Type = "channel"
	msg.Text = "announcement"

	ev, ok := eventFromMessage(msg, false)
	if !ok {
		t.Fatal("eventFromMessage() ok = false, want true")
	}
	if ev.SenderID != 0 {
		t.Errorf("SenderID = %d, want 0 for channel post", ev.SenderID)
	}
	if ev.IsGroup {
		t.Error("IsGroup = true for channel")
	}
}

func TestEventFromMessageGroupFlag(t *testing.T) {
	t.Parallel()

	for _, chatType := range []string{"group", "supergroup"} {
		msg := baseMessage()
		msg.Chat.Type = models.ChatType(chatType)
		msg.Text = "in a group"

		ev, ok := eventFromMessage(msg, false)
		if !ok {
			t.Fatalf("%s: eventFromMessage() ok = false", chatType)
		}
		if !ev.IsGroup {
			t.Errorf("%s: IsGroup = false, want true", chatType)
		}
	}
}

func TestEventFromMessagePhotoPicksLargest(t *testing.T) {
	t.Parallel()

	msg := baseMessage()
	msg.Caption = "look at this"
	msg.Photo = []models.PhotoSize{
		{FileID: "small", FileUniqueID: "u-small", FileSize: 100},
		{FileID: "large", FileUniqueID: "u-large", FileSize: 9000},
	}

	ev, ok := eventFromMessage(msg, false)
	if !ok {
		t.Fatal("eventFromMessage() ok = false, want true")
	}
	if ev.Text != "look at this" {
		t.Errorf("Text = %q, want caption", ev.Text)
	}
	if ev.Attachment == nil {
		t.Fatal("Attachment = nil")
	}
	if ev.Attachment.FileID != "large" {
		t.Errorf("FileID = %q, want largest photo size", ev.Attachment.FileID)
	}
	if ev.Attachment.Kind != archive.KindPhoto {
		t.Errorf("Kind = %q, want photo", ev.Attachment.Kind)
	}
}

func TestAttachmentPrecedence(t *testing.T) {
	t.Parallel()

	msg := baseMessage()
	msg.Photo = []models.PhotoSize{{FileID: "photo-id", FileUniqueID: "u1"}}
	msg.Document = &models.Document{FileID: "doc-id", FileUniqueID: "u2", FileName: "notes.pdf"}

	ref := attachmentFromMessage(msg)
	if ref == nil || ref.Kind != archive.KindPhoto {
		t.Fatalf("ref = %+v, want photo to win precedence", ref)
	}
}

func TestAttachmentKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		set  func(*models.Message)
		kind string
	}{
		{"video", func(m *models.Message) {
			m.Video = &models.Video{FileID: "f", FileUniqueID: "u", FileName: "clip.mp4"}
		}, archive.KindVideo},
		{"document", func(m *models.Message) {
			m.Document = &models.Document{FileID: "f", FileUniqueID: "u", FileName: "a.pdf"}
		}, archive.KindDocument},
		{"voice", func(m *models.Message) {
			m.Voice = &models.Voice{FileID: "f", FileUniqueID: "u"}
		}, archive.KindVoice},
		{"audio", func(m *models.Message) {
			m.Audio = &models.Audio{FileID: "f", FileUniqueID: "u", FileName: "song.mp3"}
		}, archive.KindAudio},
		{"animation", func(m *models.Message) {
			m.Animation = &models.Animation{FileID: "f", FileUniqueID: "u"}
		}, archive.KindAnimation},
		{"sticker", func(m *models.Message) {
			m.Sticker = &models.Sticker{FileID: "f", FileUniqueID: "u"}
		}, archive.KindSticker},
	}

	for _, tc := range tests {
		msg := baseMessage()
		tc.set(msg)
		ref := attachmentFromMessage(msg)
		if ref == nil || ref.Kind != tc.kind {
			t.Errorf("%s: ref = %+v, want kind %q", tc.name, ref, tc.kind)
		}
	}
}
