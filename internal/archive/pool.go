package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Handler processes one event. Implemented by Coordinator.
type Handler interface {
	Handle(ctx context.Context, ev Event) Outcome
}

// Pool runs a bounded set of workers pulling events from an internal
// queue. The transport submits events; workers run the full handle
// pipeline concurrently to hide download latency. Ordering across
// distinct (chat, message) pairs is not preserved; the repository's
// uniqueness constraint is the only cross-worker coupling.
type Pool struct {
	handler Handler
	queue   chan Event
	workers int
	logger  *slog.Logger
}

// NewPool creates a pool with the given worker count and queue capacity.
func NewPool(handler Handler, workers, queueSize int, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Pool{
		handler: handler,
		queue:   make(chan Event, queueSize),
		workers: workers,
		logger:  logger.With("component", "pool"),
	}
}

// Submit enqueues an event for processing. It blocks when the queue is
// full (backpressure on the transport) and fails once ctx is done.
func (p *Pool) Submit(ctx context.Context, ev Event) error {
	select {
	case p.queue <- ev:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pool not accepting events: %w", ctx.Err())
	}
}

// Run blocks processing events until ctx is cancelled. Shutdown stops
// intake first; an event already being handled runs to completion so no
// attachment write is abandoned mid-rename.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info("Starting ingestion workers", "workers", p.workers)

	g := new(errgroup.Group)
	for i := 0; i < p.workers; i++ {
		worker := i
		g.Go(func() error {
			log := p.logger.With("worker", worker)
			for {
				select {
				case <-ctx.Done():
					log.Debug("Worker stopping")
					return nil
				case ev := <-p.queue:
					// In-flight work finishes even during shutdown; only
					// intake is cancelled.
					outcome := p.handler.Handle(context.WithoutCancel(ctx), ev)
					p.logOutcome(log, ev, outcome)
				}
			}
		})
	}

	err := g.Wait()
	p.logger.Info("Ingestion workers stopped")
	return err
}

func (p *Pool) logOutcome(log *slog.Logger, ev Event, outcome Outcome) {
	attrs := []any{
		"chat_id", ev.ChatID,
		"message_id", ev.MessageID,
		"outcome", outcome.Status.String(),
	}
	if outcome.Reason != "" {
		attrs = append(attrs, "reason", outcome.Reason)
	}

	// Failed events are logged and acknowledged rather than redelivered;
	// metadata is already committed degraded, and a poison event must not
	// wedge the stream.
	if outcome.Status == StatusFailed {
		log.Warn("Event handled with failure", attrs...)
		return
	}
	log.Debug("Event handled", attrs...)
}
