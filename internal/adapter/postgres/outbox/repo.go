// Package outbox implements the transactional event outbox using PostgreSQL.
// Events are appended inside the same transaction as the state change that
// produced them; the dispatcher marks them dispatched after delivery.
package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/vmakarov/flowtrack-backend/internal/adapter/postgres"
	"github.com/vmakarov/flowtrack-backend/internal/domain"
)

// Repo provides event outbox persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new outbox repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const eventColumns = `id, work_item_id, actor_id, event_type, reason, created_at, dispatched_at`

const appendSQL = `
INSERT INTO events_outbox (id, work_item_id, actor_id, event_type, reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

const listPendingSQL = `
SELECT ` + eventColumns + `
FROM events_outbox
WHERE dispatched_at IS NULL
ORDER BY created_at
LIMIT $1
FOR UPDATE SKIP LOCKED`

const markDispatchedSQL = `
UPDATE events_outbox
SET dispatched_at = $2
WHERE id = ANY($1::uuid[]) AND dispatched_at IS NULL`

// Append stores an event. Call inside the transaction that performs the
// state change the event describes.
func (r *Repo) Append(ctx context.Context, event domain.Event) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	_, err := querier.Exec(ctx, appendSQL,
		event.ID, event.WorkItemID, event.ActorID, string(event.Type),
		event.Reason, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append event %s: %w", event.ID, err)
	}

	return nil
}

// ListPending returns up to limit undispatched events, oldest first, with
// their rows locked (SKIP LOCKED keeps concurrent dispatchers from fighting
// over the same batch). Call inside RunInTx.
func (r *Repo) ListPending(ctx context.Context, limit int) ([]domain.Event, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, listPendingSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			event domain.Event
			typ   string
		)
		if err := rows.Scan(&event.ID, &event.WorkItemID, &event.ActorID, &typ,
			&event.Reason, &event.CreatedAt, &event.DispatchedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.Type = domain.EventType(typ)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// MarkDispatched stamps the given events as delivered.
func (r *Repo) MarkDispatched(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := querier.Exec(ctx, markDispatchedSQL, ids, at); err != nil {
		return fmt.Errorf("mark events dispatched: %w", err)
	}

	return nil
}
