// Package downloader resolves attachment references to bytes through the
// chat transport, with bounded retries, backoff, and a byte-size ceiling.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/BogdanYatsenko/telegram-backup-bot/internal/resilience"
)

var (
	// ErrTooLarge indicates the payload exceeds the configured size ceiling.
	ErrTooLarge = errors.New("attachment exceeds size ceiling")
	// ErrPermanent indicates a non-retryable transport failure
	// (expired reference, permission denied, malformed response).
	ErrPermanent = errors.New("permanent transport failure")
)

// FileResolver resolves an opaque attachment reference to a fetchable URL
// and the transport-reported size (0 when unknown).
type FileResolver interface {
	ResolveFileURL(ctx context.Context, fileID string) (url string, size int64, err error)
}

// Config bounds download behavior.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Timeout     time.Duration
	MaxFileSize int64
}

// Downloader fetches attachment bytes. It keeps no mutable state between
// calls and is safe for concurrent use by the worker pool.
type Downloader struct {
	resolver FileResolver
	client   *http.Client
	breaker  *resilience.CircuitBreaker
	cfg      Config
	logger   *slog.Logger
}

// New creates a Downloader over the given resolver.
func New(resolver FileResolver, cfg Config, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 50 * 1024 * 1024
	}

	return &Downloader{
		resolver: resolver,
		client:   &http.Client{},
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name: "attachment_download",
		}),
		cfg:    cfg,
		logger: logger.With("component", "downloader"),
	}
}

// Fetch resolves fileID and downloads its bytes. Transient failures
// (timeouts, rate limits, 5xx, connection resets) are retried with
// exponential backoff up to the configured attempt count; permanent
// failures and oversize payloads surface immediately.
func (d *Downloader) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	if fileID == "" {
		return nil, fmt.Errorf("%w: empty file reference", ErrPermanent)
	}

	var data []byte
	op := func(ctx context.Context) error {
		return d.breaker.Execute(ctx, func(ctx context.Context) error {
			b, err := d.fetchOnce(ctx, fileID)
			if err != nil {
				return err
			}
			data = b
			return nil
		})
	}

	retryCfg := resilience.RetryConfig{
		MaxAttempts:     d.cfg.MaxAttempts,
		InitialInterval: d.cfg.BaseDelay,
		MaxInterval:     d.cfg.MaxDelay,
		Multiplier:      2.0,
		RandomFactor:    0.1,
	}
	if err := resilience.WithRetry(ctx, op, retryCfg); err != nil {
		return nil, err
	}
	return data, nil
}

func (d *Downloader) fetchOnce(ctx context.Context, fileID string) (data []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	url, size, err := d.resolver.ResolveFileURL(ctx, fileID)
	if err != nil {
		// Resolution failures are usually rate limits or network blips;
		// context errors are handled by the retry loop itself.
		return nil, fmt.Errorf("failed to resolve file reference: %w", err)
	}

	// The transport reports the size up front, so an oversize payload is
	// rejected before a single byte is buffered.
	if size > 0 && size > d.cfg.MaxFileSize {
		return nil, resilience.Permanent(
			fmt.Errorf("%w: %d bytes, ceiling %d", ErrTooLarge, size, d.cfg.MaxFileSize))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("%w: building request: %v", ErrPermanent, err))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
		// proceed
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("transient status %d from %s", resp.StatusCode, url)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, resilience.Permanent(
			fmt.Errorf("%w: status %d: %s", ErrPermanent, resp.StatusCode, string(body)))
	}

	// Read one byte past the ceiling to distinguish at-limit from over-limit.
	data, err = io.ReadAll(io.LimitReader(resp.Body, d.cfg.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}
	if int64(len(data)) > d.cfg.MaxFileSize {
		return nil, resilience.Permanent(
			fmt.Errorf("%w: payload over %d bytes", ErrTooLarge, d.cfg.MaxFileSize))
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("received empty file data from %s", url)
	}

	d.logger.DebugContext(ctx, "Attachment downloaded", "file_id", fileID, "size", len(data))
	return data, nil
}
