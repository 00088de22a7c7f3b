package downloader_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BogdanYatsenko/telegram-backup-bot/internal/downloader"
	"github.com/BogdanYatsenko/telegram-backup-bot/internal/resilience"
)

type staticResolver struct {
	url  string
	size int64
	err  error
}

func (r *staticResolver) ResolveFileURL(context.Context, string) (string, int64, error) {
	return r.url, r.size, r.err
}

func fastConfig(maxAttempts int, maxSize int64) downloader.Config {
	return downloader.Config{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Timeout:     5 * time.Second,
		MaxFileSize: maxSize,
	}
}

func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("payload-bytes"))
	}))
	defer ts.Close()

	d := downloader.New(&staticResolver{url: ts.URL}, fastConfig(3, 1024), nil)

	data, err := d.Fetch(context.Background(), "file-1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != "payload-bytes" {
		t.Errorf("Fetch() = %q, want payload-bytes", data)
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("eventually"))
	}))
	defer ts.Close()

	d := downloader.New(&staticResolver{url: ts.URL}, fastConfig(3, 1024), nil)

	data, err := d.Fetch(context.Background(), "file-2")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != "eventually" {
		t.Errorf("Fetch() = %q, want eventually", data)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server hit %d times, want 3", got)
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	d := downloader.New(&staticResolver{url: ts.URL}, fastConfig(3, 1024), nil)

	if _, err := d.Fetch(context.Background(), "file-3"); !errors.Is(err, resilience.ErrExhaustedRetries) {
		t.Fatalf("Fetch() error = %v, want ErrExhaustedRetries", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server hit %d times, want 3", got)
	}
}

func TestFetchPermanentFailureNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	d := downloader.New(&staticResolver{url: ts.URL}, fastConfig(5, 1024), nil)

	if _, err := d.Fetch(context.Background(), "file-4"); !errors.Is(err, downloader.ErrPermanent) {
		t.Fatalf("Fetch() error = %v, want ErrPermanent", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server hit %d times, want 1 (no retry on 404)", got)
	}
}

func TestFetchSizeCeilingFromResolver(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer ts.Close()

	// Transport reports the size up front; the GET must never happen.
	d := downloader.New(&staticResolver{url: ts.URL, size: 2048}, fastConfig(3, 1024), nil)

	if _, err := d.Fetch(context.Background(), "file-5"); !errors.Is(err, downloader.ErrTooLarge) {
		t.Fatalf("Fetch() error = %v, want ErrTooLarge", err)
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("server hit %d times, want 0", got)
	}
}

func TestFetchSizeCeilingFromBody(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer ts.Close()

	d := downloader.New(&staticResolver{url: ts.URL}, fastConfig(3, 1024), nil)

	if _, err := d.Fetch(context.Background(), "file-6"); !errors.Is(err, downloader.ErrTooLarge) {
		t.Fatalf("Fetch() error = %v, want ErrTooLarge", err)
	}
}

func TestFetchZeroConfigGetsDefaults(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("payload-bytes"))
	}))
	defer ts.Close()

	// A zero MaxFileSize must not reject every payload as oversize.
	d := downloader.New(&staticResolver{url: ts.URL}, downloader.Config{}, nil)

	data, err := d.Fetch(context.Background(), "file-7")
	if err != nil {
		t.Fatalf("Fetch() with zero config error = %v", err)
	}
	if string(data) != "payload-bytes" {
		t.Errorf("Fetch() = %q, want payload-bytes", data)
	}
}

func TestFetchEmptyReference(t *testing.T) {
	t.Parallel()

	d := downloader.New(&staticResolver{}, fastConfig(3, 1024), nil)

	if _, err := d.Fetch(context.Background(), ""); !errors.Is(err, downloader.ErrPermanent) {
		t.Fatalf("Fetch() error = %v, want ErrPermanent", err)
	}
}
