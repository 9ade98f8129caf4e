// Package outbox delivers domain events from the transactional outbox to a
// Notifier. Events are written to the outbox table in the same transaction
// as the state change that produced them; this dispatcher moves them out
// asynchronously, so a slow or failing consumer never blocks or rolls back
// a lifecycle transition.
package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/vmakarov/flowtrack-backend/internal/domain"
)

// Notifier consumes dispatched events. Implementations deliver to whatever
// the deployment wants: chat webhooks, email, a message broker.
type Notifier interface {
	Notify(ctx context.Context, event domain.Event) error
}

type eventRepo interface {
	ListPending(ctx context.Context, limit int) ([]domain.Event, error)
	MarkDispatched(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Dispatcher polls the outbox on a ticker and hands pending events to the
// notifier. An event is marked dispatched only after the notifier accepts
// it; failed events stay pending and retry on the next tick (at-least-once
// delivery).
type Dispatcher struct {
	events   eventRepo
	notifier Notifier
	tx       txManager
	clock    clockwork.Clock
	log      *slog.Logger

	pollInterval time.Duration
	batchSize    int
}

// NewDispatcher creates a new outbox dispatcher.
func NewDispatcher(
	log *slog.Logger,
	events eventRepo,
	notifier Notifier,
	tx txManager,
	clock clockwork.Clock,
	pollInterval time.Duration,
	batchSize int,
) *Dispatcher {
	return &Dispatcher{
		events:       events,
		notifier:     notifier,
		tx:           tx,
		clock:        clock,
		log:          log.With("service", "outbox"),
		pollInterval: pollInterval,
		batchSize:    batchSize,
	}
}

// Run polls until the context is cancelled. Poll errors are logged and do
// not stop the loop.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.InfoContext(ctx, "outbox dispatcher started",
		slog.Duration("poll_interval", d.pollInterval),
		slog.Int("batch_size", d.batchSize),
	)

	ticker := d.clock.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.InfoContext(ctx, "outbox dispatcher stopped")
			return
		case <-ticker.Chan():
			if _, err := d.DispatchPending(ctx); err != nil {
				d.log.ErrorContext(ctx, "outbox poll failed", slog.Any("error", err))
			}
		}
	}
}

// DispatchPending delivers one batch of pending events and returns how many
// were accepted by the notifier. A single failing event is logged and left
// pending; the rest of the batch still goes out.
//
// The whole batch runs inside one transaction: ListPending locks its rows
// with SKIP LOCKED, so concurrent dispatchers claim disjoint batches and
// the locks hold until the marks commit.
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	var delivered int

	err := d.tx.RunInTx(ctx, func(txCtx context.Context) error {
		pending, err := d.events.ListPending(txCtx, d.batchSize)
		if err != nil {
			return fmt.Errorf("list pending events: %w", err)
		}
		if len(pending) == 0 {
			return nil
		}

		accepted := make([]uuid.UUID, 0, len(pending))
		for _, event := range pending {
			if err := d.notifier.Notify(txCtx, event); err != nil {
				d.log.WarnContext(txCtx, "event delivery failed, will retry",
					slog.String("event_id", event.ID.String()),
					slog.String("event_type", event.Type.String()),
					slog.Any("error", err),
				)
				continue
			}
			accepted = append(accepted, event.ID)
		}

		if len(accepted) == 0 {
			return nil
		}
		if err := d.events.MarkDispatched(txCtx, accepted, d.clock.Now().UTC()); err != nil {
			return fmt.Errorf("mark dispatched: %w", err)
		}

		d.log.DebugContext(txCtx, "events dispatched",
			slog.Int("count", len(accepted)),
			slog.Int("pending", len(pending)-len(accepted)),
		)

		delivered = len(accepted)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return delivered, nil
}
