// Package worksession implements the append-only WorkSession ledger using
// PostgreSQL. Sessions are created open and closed exactly once; closed rows
// are never mutated. A partial unique index guarantees at most one open
// session per work item.
package worksession

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/vmakarov/flowtrack-backend/internal/adapter/postgres"
	"github.com/vmakarov/flowtrack-backend/internal/domain"
)

// Repo provides work session persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new work session repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// ---------------------------------------------------------------------------
// SQL constants
// ---------------------------------------------------------------------------

const sessionColumns = `id, work_item_id, user_id, action, started_at, paused_at, finished_at, duration_seconds, created_at`

const openSQL = `
INSERT INTO work_sessions (id, work_item_id, user_id, action, started_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + sessionColumns

const getOpenSQL = `
SELECT ` + sessionColumns + `
FROM work_sessions
WHERE work_item_id = $1 AND paused_at IS NULL AND finished_at IS NULL`

const closeByPauseSQL = `
UPDATE work_sessions
SET paused_at = $2, duration_seconds = $3
WHERE id = $1 AND paused_at IS NULL AND finished_at IS NULL`

const closeByFinishSQL = `
UPDATE work_sessions
SET finished_at = $2, duration_seconds = $3
WHERE id = $1 AND paused_at IS NULL AND finished_at IS NULL`

const listByItemSQL = `
SELECT ` + sessionColumns + `
FROM work_sessions
WHERE work_item_id = $1
ORDER BY started_at`

const sumDurationsSQL = `
SELECT coalesce(sum(duration_seconds), 0)
FROM work_sessions
WHERE work_item_id = $1 AND duration_seconds IS NOT NULL`

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// Open appends a new open session. A second open session for the same item
// violates the ledger's unique index and maps to domain.ErrAlreadyExists.
func (r *Repo) Open(ctx context.Context, itemID, userID uuid.UUID, action domain.SessionAction, startedAt time.Time) (*domain.WorkSession, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	id := uuid.New()
	session, err := scanSession(querier.QueryRow(ctx, openSQL,
		id, itemID, userID, string(action), startedAt, startedAt,
	))
	if err != nil {
		return nil, mapError(err, "work session", id)
	}

	return session, nil
}

// GetOpen returns the item's open session, or domain.ErrNotFound.
func (r *Repo) GetOpen(ctx context.Context, itemID uuid.UUID) (*domain.WorkSession, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	session, err := scanSession(querier.QueryRow(ctx, getOpenSQL, itemID))
	if err != nil {
		return nil, mapError(err, "work session", uuid.Nil)
	}

	return session, nil
}

// CloseByPause closes an open session with a pause timestamp.
// Returns domain.ErrNotFound if the session is missing or already closed.
func (r *Repo) CloseByPause(ctx context.Context, sessionID uuid.UUID, pausedAt time.Time, durationSeconds int64) error {
	return r.close(ctx, closeByPauseSQL, sessionID, pausedAt, durationSeconds)
}

// CloseByFinish closes an open session with a finish timestamp.
// Returns domain.ErrNotFound if the session is missing or already closed.
func (r *Repo) CloseByFinish(ctx context.Context, sessionID uuid.UUID, finishedAt time.Time, durationSeconds int64) error {
	return r.close(ctx, closeByFinishSQL, sessionID, finishedAt, durationSeconds)
}

func (r *Repo) close(ctx context.Context, query string, sessionID uuid.UUID, closedAt time.Time, durationSeconds int64) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := querier.Exec(ctx, query, sessionID, closedAt, durationSeconds)
	if err != nil {
		return mapError(err, "work session", sessionID)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("work session %s: %w", sessionID, domain.ErrNotFound)
	}

	return nil
}

// ListByItem returns the item's full session history, oldest first.
func (r *Repo) ListByItem(ctx context.Context, itemID uuid.UUID) ([]*domain.WorkSession, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, listByItemSQL, itemID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.WorkSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	if sessions == nil {
		sessions = []*domain.WorkSession{}
	}

	return sessions, nil
}

// SumDurations returns the sum of all closed session durations for an item.
// Reconciliation query; the item's total_time_seconds is the working value.
func (r *Repo) SumDurations(ctx context.Context, itemID uuid.UUID) (int64, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var sum int64
	if err := querier.QueryRow(ctx, sumDurationsSQL, itemID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum session durations: %w", err)
	}

	return sum, nil
}

// ---------------------------------------------------------------------------
// Row scanning helpers
// ---------------------------------------------------------------------------

type scannable interface {
	Scan(dest ...any) error
}

func scanSession(row scannable) (*domain.WorkSession, error) {
	var (
		session domain.WorkSession
		action  string
	)

	if err := row.Scan(
		&session.ID, &session.WorkItemID, &session.UserID, &action,
		&session.StartedAt, &session.PausedAt, &session.FinishedAt,
		&session.DurationSeconds, &session.CreatedAt,
	); err != nil {
		return nil, err
	}

	session.Action = domain.SessionAction(action)

	return &session, nil
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

// mapError converts pgx/pgconn errors into domain errors.
func mapError(err error, entity string, id uuid.UUID) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrAlreadyExists)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
		case "23514": // check_violation
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrValidation)
		}
	}

	return fmt.Errorf("%s %s: %w", entity, id, err)
}
