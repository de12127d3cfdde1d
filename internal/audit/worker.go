package audit

import (
	"context"
	"log/slog"
)

// Worker drains the outbox channel into an external sink. Delivery failures
// are logged and skipped; the store already holds the authoritative copy.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Publish(ctx, event); err != nil {
				if w.logger != nil {
					w.logger.WarnContext(ctx, "audit sink delivery failed",
						"run_id", event.RunID,
						"action", event.Action,
						"error", err,
					)
				}
			}
		}
	}
}
