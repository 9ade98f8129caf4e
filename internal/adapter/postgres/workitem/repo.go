// Package workitem implements the WorkItem repository using PostgreSQL.
// Point lookups and state updates use raw SQL; the filtered listing is
// composed with squirrel.
package workitem

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/vmakarov/flowtrack-backend/internal/adapter/postgres"
	"github.com/vmakarov/flowtrack-backend/internal/domain"
)

// Repo provides work item persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new work item repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ---------------------------------------------------------------------------
// SQL constants
// ---------------------------------------------------------------------------

const itemColumns = `id, project_id, sprint_id, kind, title, assignee_id, status,
       is_working, work_started_at, auto_paused, auto_pause_reason, alert_count,
       total_time_seconds, original_time_seconds, original_work_finished_at,
       approval_status, qa_status, reviewer_id, qa_reviewer_id,
       rejection_reason, qa_rejection_reason, rework_notes,
       team_lead_final_approval, team_lead_requested_changes,
       return_count, last_returned_by, last_returned_at,
       created_at, updated_at`

const getByIDSQL = `
SELECT ` + itemColumns + `
FROM work_items
WHERE id = $1`

const getByIDForUpdateSQL = getByIDSQL + `
FOR UPDATE`

const listWorkingForUpdateSQL = `
SELECT ` + itemColumns + `
FROM work_items
WHERE assignee_id = $1 AND is_working AND id != $2
ORDER BY work_started_at
FOR UPDATE`

const countActiveSQL = `
SELECT count(*) FROM work_items
WHERE assignee_id = $1 AND status = 'IN_PROGRESS' AND id != $2`

const listStaleSQL = `
SELECT id FROM work_items
WHERE is_working AND work_started_at < $1
ORDER BY work_started_at`

const createSQL = `
INSERT INTO work_items
  (id, project_id, sprint_id, kind, title, assignee_id, status,
   approval_status, qa_status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + itemColumns

const updateSQL = `
UPDATE work_items SET
  assignee_id = $2, status = $3,
  is_working = $4, work_started_at = $5,
  auto_paused = $6, auto_pause_reason = $7, alert_count = $8,
  total_time_seconds = $9, original_time_seconds = $10, original_work_finished_at = $11,
  approval_status = $12, qa_status = $13, reviewer_id = $14, qa_reviewer_id = $15,
  rejection_reason = $16, qa_rejection_reason = $17, rework_notes = $18,
  team_lead_final_approval = $19, team_lead_requested_changes = $20,
  return_count = $21, last_returned_by = $22, last_returned_at = $23,
  updated_at = $24
WHERE id = $1`

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// GetByID returns a work item by primary key.
func (r *Repo) GetByID(ctx context.Context, itemID uuid.UUID) (*domain.WorkItem, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	item, err := scanItem(querier.QueryRow(ctx, getByIDSQL, itemID))
	if err != nil {
		return nil, mapError(err, "work item", itemID)
	}

	return item, nil
}

// GetByIDForUpdate returns a work item and locks its row for the duration of
// the surrounding transaction. Must be called inside RunInTx.
func (r *Repo) GetByIDForUpdate(ctx context.Context, itemID uuid.UUID) (*domain.WorkItem, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	item, err := scanItem(querier.QueryRow(ctx, getByIDForUpdateSQL, itemID))
	if err != nil {
		return nil, mapError(err, "work item", itemID)
	}

	return item, nil
}

// ListWorkingForUpdate returns the user's items with an open live session,
// excluding excludeID, with their rows locked. Used by the activation
// pre-pause inside the Start/Resume transaction.
func (r *Repo) ListWorkingForUpdate(ctx context.Context, userID, excludeID uuid.UUID) ([]*domain.WorkItem, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, listWorkingForUpdateSQL, userID, excludeID)
	if err != nil {
		return nil, fmt.Errorf("list working items: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, fmt.Errorf("list working items: %w", err)
	}

	return items, nil
}

// CountActive returns how many items the user has in progress, excluding
// excludeID. Consistent with the mutation transaction when called inside
// RunInTx after the relevant rows are locked.
func (r *Repo) CountActive(ctx context.Context, userID, excludeID uuid.UUID) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var count int
	if err := querier.QueryRow(ctx, countActiveSQL, userID, excludeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active items: %w", err)
	}

	return count, nil
}

// ListStaleIDs returns ids of items whose live session started before the
// cutoff. IDs only: the sweep re-reads each item under its own row lock.
func (r *Repo) ListStaleIDs(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, listStaleSQL, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale items: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale item id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale items: %w", err)
	}

	return ids, nil
}

// List returns work items matching the filter, newest first.
func (r *Repo) List(ctx context.Context, filter domain.WorkItemFilter) ([]*domain.WorkItem, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	builder := psql.Select(itemColumns).
		From("work_items").
		OrderBy("created_at DESC")

	if filter.ProjectID != nil {
		builder = builder.Where(sq.Eq{"project_id": *filter.ProjectID})
	}
	if filter.SprintID != nil {
		builder = builder.Where(sq.Eq{"sprint_id": *filter.SprintID})
	}
	if filter.AssigneeID != nil {
		builder = builder.Where(sq.Eq{"assignee_id": *filter.AssigneeID})
	}
	if filter.Status != nil {
		builder = builder.Where(sq.Eq{"status": string(*filter.Status)})
	}
	if filter.Kind != nil {
		builder = builder.Where(sq.Eq{"kind": string(*filter.Kind)})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}

	return items, nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts a new work item and returns the persisted row.
func (r *Repo) Create(ctx context.Context, item *domain.WorkItem) (*domain.WorkItem, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	created, err := scanItem(querier.QueryRow(ctx, createSQL,
		item.ID, item.ProjectID, item.SprintID, string(item.Kind), item.Title,
		item.AssigneeID, string(item.Status), string(item.ApprovalStatus),
		string(item.QAStatus), item.CreatedAt, item.UpdatedAt,
	))
	if err != nil {
		return nil, mapError(err, "work item", item.ID)
	}

	return created, nil
}

// Update persists all mutable lifecycle fields of a work item.
// Returns domain.ErrNotFound if the row does not exist.
func (r *Repo) Update(ctx context.Context, item *domain.WorkItem) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var returnedBy *string
	if item.LastReturnedBy != nil {
		s := string(*item.LastReturnedBy)
		returnedBy = &s
	}

	tag, err := querier.Exec(ctx, updateSQL,
		item.ID, item.AssigneeID, string(item.Status),
		item.IsWorking, item.WorkStartedAt,
		item.AutoPaused, item.AutoPauseReason, item.AlertCount,
		item.TotalTimeSeconds, item.OriginalTimeSeconds, item.OriginalWorkFinishedAt,
		string(item.ApprovalStatus), string(item.QAStatus), item.ReviewerID, item.QAReviewerID,
		item.RejectionReason, item.QARejectionReason, item.ReworkNotes,
		item.TeamLeadFinalApproval, item.TeamLeadRequestedChanges,
		item.ReturnCount, returnedBy, item.LastReturnedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "work item", item.ID)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("work item %s: %w", item.ID, domain.ErrNotFound)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Row scanning helpers
// ---------------------------------------------------------------------------

type scannable interface {
	Scan(dest ...any) error
}

// scanItem scans a single work item row.
func scanItem(row scannable) (*domain.WorkItem, error) {
	var (
		item       domain.WorkItem
		kind       string
		status     string
		approval   string
		qaStatus   string
		returnedBy *string
	)

	if err := row.Scan(
		&item.ID, &item.ProjectID, &item.SprintID, &kind, &item.Title,
		&item.AssigneeID, &status,
		&item.IsWorking, &item.WorkStartedAt,
		&item.AutoPaused, &item.AutoPauseReason, &item.AlertCount,
		&item.TotalTimeSeconds, &item.OriginalTimeSeconds, &item.OriginalWorkFinishedAt,
		&approval, &qaStatus, &item.ReviewerID, &item.QAReviewerID,
		&item.RejectionReason, &item.QARejectionReason, &item.ReworkNotes,
		&item.TeamLeadFinalApproval, &item.TeamLeadRequestedChanges,
		&item.ReturnCount, &returnedBy, &item.LastReturnedAt,
		&item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, err
	}

	item.Kind = domain.WorkItemKind(kind)
	item.Status = domain.WorkItemStatus(status)
	item.ApprovalStatus = domain.ApprovalStatus(approval)
	item.QAStatus = domain.QAStatus(qaStatus)
	if returnedBy != nil {
		rb := domain.ReturnedBy(*returnedBy)
		item.LastReturnedBy = &rb
	}

	return &item, nil
}

// scanItems scans multiple rows into a slice.
func scanItems(rows pgx.Rows) ([]*domain.WorkItem, error) {
	var items []*domain.WorkItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if items == nil {
		items = []*domain.WorkItem{}
	}

	return items, nil
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
