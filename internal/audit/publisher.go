package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher captures structured audit events. Persistence is synchronous and
// fail-closed; forwarding to the outbox channel is best-effort so a slow
// sink never blocks the analysis path.
type Publisher struct {
	store  Store
	outbox chan<- Event
	logger *slog.Logger
	now    func() time.Time
}

type PublisherOption func(p *Publisher)

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithOutbox attaches a channel drained by a Worker into an external sink.
func WithOutbox(outbox chan<- Event) PublisherOption {
	return func(p *Publisher) {
		p.outbox = outbox
	}
}

// WithPublisherClock overrides the event timestamp source.
func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit persists the event and enqueues it for external delivery. A full
// outbox drops the event from the external feed only; the store copy is the
// record of truth.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}

	if p.outbox != nil {
		select {
		case p.outbox <- event:
		default:
			if p.logger != nil {
				p.logger.WarnContext(ctx, "audit outbox full, event not forwarded",
					"run_id", event.RunID,
					"action", event.Action,
				)
			}
		}
	}
	return nil
}

func (p *Publisher) List(ctx context.Context, runID string) ([]Event, error) {
	return p.store.ListByRun(ctx, runID)
}
