// Package media implements the content-addressed attachment store.
// Files are keyed by the sha256 of their bytes, so storing the same
// content twice is a no-op regardless of the suggested filename.
package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// Stored describes a durably written attachment.
type Stored struct {
	Path        string
	Fingerprint string
	Size        int64
	Mime        string
}

// Store writes attachment bytes under a deterministic content-addressed path.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore creates the attachment store rooted at dir, creating it if needed.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory %s: %w", dir, err)
	}
	return &Store{
		root:   dir,
		logger: logger.With("component", "media_store"),
	}, nil
}

// Put persists data and returns its stored location. The final path is a
// pure function of (kind, content), so the extension comes from the
// detected mime type rather than the caller's suggested name; identical
// bytes under different names land on the same file. New content is
// written to a temp file in the target directory and renamed into place,
// so a reader never observes a partial file at the final path.
func (s *Store) Put(ctx context.Context, data []byte, suggestedName, kind string) (Stored, error) {
	if len(data) == 0 {
		return Stored{}, fmt.Errorf("refusing to store empty attachment data")
	}
	if kind == "" {
		kind = "document"
	}

	sum := sha256.Sum256(data)
	fingerprint := hex.EncodeToString(sum[:])
	mtype := mimetype.Detect(data)

	dir := filepath.Join(s.root, kind, fingerprint[:2])
	finalPath := filepath.Join(dir, fingerprint+mtype.Extension())

	if info, err := os.Stat(finalPath); err == nil {
		s.logger.DebugContext(ctx, "Attachment already stored",
			"fingerprint", fingerprint, "path", finalPath)
		return Stored{
			Path:        finalPath,
			Fingerprint: fingerprint,
			Size:        info.Size(),
			Mime:        mtype.String(),
		}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Stored{}, fmt.Errorf("failed to create attachment directory %s: %w", dir, err)
	}

	if err := s.writeAtomic(dir, finalPath, data); err != nil {
		return Stored{}, err
	}

	s.logger.InfoContext(ctx, "Attachment stored",
		"fingerprint", fingerprint,
		"kind", kind,
		"size", len(data),
		"suggested_name", suggestedName,
		"path", finalPath)

	return Stored{
		Path:        finalPath,
		Fingerprint: fingerprint,
		Size:        int64(len(data)),
		Mime:        mtype.String(),
	}, nil
}

// writeAtomic writes data to a temp file in dir and renames it to finalPath.
// The temp file lives in the same directory as the target so the rename
// never crosses a filesystem boundary. Concurrent writers of the same
// content race harmlessly: both renames install identical bytes.
func (s *Store) writeAtomic(dir, finalPath string, data []byte) (err error) {
	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !os.IsNotExist(removeErr) {
				s.logger.Warn("Failed to remove temp file after error",
					"path", tmpPath, "error", removeErr)
			}
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write attachment data: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync attachment data: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err = os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("failed to rename attachment into place: %w", err)
	}
	return nil
}
