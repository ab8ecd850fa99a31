package audit

import (
	"context"
	"errors"
	"log/slog"
)

// ErrQueueFull is returned when the in-process buffer cannot take another
// event.
var ErrQueueFull = errors.New("audit queue full")

// Queue is a Store that buffers events for a Worker, so publishing never
// waits on the downstream sink.
type Queue struct {
	ch chan Event
}

func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan Event, size)}
}

// Append enqueues without blocking.
func (q *Queue) Append(_ context.Context, event Event) error {
	select {
	case q.ch <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Inbox exposes the receive side for a Worker.
func (q *Queue) Inbox() <-chan Event {
	return q.ch
}

// Worker consumes audit events from a channel and persists them. Sink
// failures are logged and the event is dropped; the worker keeps running.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run drains the inbox until ctx is cancelled, then flushes whatever is
// still buffered.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case event := <-w.inbox:
			w.deliver(ctx, event)
		}
	}
}

func (w *Worker) drain() {
	ctx := context.Background()
	for {
		select {
		case event := <-w.inbox:
			w.deliver(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) deliver(ctx context.Context, event Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to deliver audit event",
			"action", event.Action,
			"user_id", event.UserID,
			"error", err,
		)
	}
}
