package archive_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BogdanYatsenko/telegram-backup-bot/internal/archive"
)

// recordingHandler counts handled events and signals on each one.
type recordingHandler struct {
	mu      sync.Mutex
	handled map[int64]int
	done    chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		handled: make(map[int64]int),
		done:    make(chan struct{}, 128),
	}
}

func (h *recordingHandler) Handle(_ context.Context, ev archive.Event) archive.Outcome {
	h.mu.Lock()
	h.handled[ev.MessageID]++
	h.mu.Unlock()
	h.done <- struct{}{}
	return archive.Stored()
}

func (h *recordingHandler) total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.handled {
		n += c
	}
	return n
}

func TestPoolProcessesAllSubmittedEvents(t *testing.T) {
	t.Parallel()

	handler := newRecordingHandler()
	pool := archive.NewPool(handler, 4, 16, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- pool.Run(ctx) }()

	const events = 20
	for i := 1; i <= events; i++ {
		if err := pool.Submit(ctx, archive.Event{ChatID: 1, MessageID: int64(i)}); err != nil {
			t.Fatalf("Submit(%d) error = %v", i, err)
		}
	}

	for i := 0; i < events; i++ {
		select {
		case <-handler.done:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for event %d of %d", i+1, events)
		}
	}

	cancel()
	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}

	if got := handler.total(); got != events {
		t.Errorf("handled %d events, want %d", got, events)
	}
}

func TestPoolSubmitFailsAfterCancellation(t *testing.T) {
	t.Parallel()

	pool := archive.NewPool(newRecordingHandler(), 1, 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Fill the queue first so Submit cannot take the buffered slot.
	_ = pool.Submit(context.Background(), archive.Event{ChatID: 1, MessageID: 1})

	if err := pool.Submit(ctx, archive.Event{ChatID: 1, MessageID: 2}); err == nil {
		t.Fatal("Submit() after cancellation expected error")
	}
}
