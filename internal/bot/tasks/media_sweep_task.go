package tasks

import (
	"context"
	"fmt"
	"os"
	"time"
)

// newMediaSweepTask creates the scheduled task that audits attachment
// records against the filesystem. A committed row should always point at
// an existing file (rows are only committed after the rename succeeds);
// any divergence found here means outside interference and is logged,
// never repaired automatically.
func newMediaSweepTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "media_sweep")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting media sweep task")
		startTime := time.Now()

		attachments, err := deps.Store.ListAttachments(ctx)
		if err != nil {
			return fmt.Errorf("media sweep failed to list attachments: %w", err)
		}

		missing := 0
		for _, attachment := range attachments {
			if ctx.Err() != nil {
				return fmt.Errorf("media sweep cancelled: %w", ctx.Err())
			}
			if _, err := os.Stat(attachment.FilePath); err != nil {
				missing++
				log.WarnContext(ctx, "Attachment file missing on disk",
					"fingerprint", attachment.Fingerprint,
					"path", attachment.FilePath,
					"error", err)
			}
		}

		log.InfoContext(ctx, "Media sweep task completed",
			"checked", len(attachments),
			"missing", missing,
			"duration", time.Since(startTime))
		return nil
	}
}
