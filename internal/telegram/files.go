package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
)

// ResolveFileURL resolves a Telegram file reference to its download URL
// and the API-reported size, implementing downloader.FileResolver. The
// size from GetFile lets the downloader reject oversize payloads before
// fetching a single byte.
func (t *Bot) ResolveFileURL(ctx context.Context, fileID string) (string, int64, error) {
	fileObj, err := t.bot.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return "", 0, fmt.Errorf("failed to get file info from Telegram: %w", err)
	}
	if fileObj.FilePath == "" {
		return "", 0, fmt.Errorf("empty file path returned from Telegram for file ID %s", fileID)
	}

	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", t.token, fileObj.FilePath)
	return url, int64(fileObj.FileSize), nil
}
