package workitem_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vmakarov/flowtrack-backend/internal/adapter/postgres/testhelper"
	"github.com/vmakarov/flowtrack-backend/internal/adapter/postgres/workitem"
	"github.com/vmakarov/flowtrack-backend/internal/domain"
)

// newRepo sets up a test DB and returns a ready Repo + pool.
func newRepo(t *testing.T) (*workitem.Repo, *pgxpool.Pool) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return workitem.New(pool), pool
}

// ---------------------------------------------------------------------------
// Create + GetByID
// ---------------------------------------------------------------------------

func TestRepo_Create_AndGetByID(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	projectID := testhelper.SeedProject(t, pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	item := &domain.WorkItem{
		ID:             uuid.New(),
		ProjectID:      projectID,
		Kind:           domain.WorkItemKindBug,
		Title:          "Crash on empty payload",
		AssigneeID:     &user.ID,
		Status:         domain.StatusToDo,
		ApprovalStatus: domain.ApprovalStatusNone,
		QAStatus:       domain.QAStatusNone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := repo.Create(ctx, item)
	if err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}
	if created.ID != item.ID {
		t.Errorf("ID mismatch: got %s, want %s", created.ID, item.ID)
	}
	if created.Kind != domain.WorkItemKindBug {
		t.Errorf("Kind mismatch: got %s, want %s", created.Kind, domain.WorkItemKindBug)
	}
	if created.Status != domain.StatusToDo {
		t.Errorf("Status mismatch: got %s, want %s", created.Status, domain.StatusToDo)
	}
	if created.IsWorking {
		t.Error("new item must not be working")
	}
	if created.TotalTimeSeconds != 0 {
		t.Errorf("TotalTimeSeconds mismatch: got %d, want 0", created.TotalTimeSeconds)
	}

	got, err := repo.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: unexpected error: %v", err)
	}
	if got.Title != item.Title {
		t.Errorf("Title mismatch: got %q, want %q", got.Title, item.Title)
	}
	if got.AssigneeID == nil || *got.AssigneeID != user.ID {
		t.Errorf("AssigneeID mismatch: got %v, want %s", got.AssigneeID, user.ID)
	}
}

func TestRepo_GetByID_NotFound(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assertIsDomainError(t, err, domain.ErrNotFound)
}

func TestRepo_Create_UnknownProject(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	item := &domain.WorkItem{
		ID:             uuid.New(),
		ProjectID:      uuid.New(),
		Kind:           domain.WorkItemKindTask,
		Title:          "Orphan item",
		Status:         domain.StatusToDo,
		ApprovalStatus: domain.ApprovalStatusNone,
		QAStatus:       domain.QAStatusNone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := repo.Create(context.Background(), item)
	assertIsDomainError(t, err, domain.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestRepo_Update_LifecycleFields(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	projectID := testhelper.SeedProject(t, pool)
	item := testhelper.SeedWorkItem(t, pool, projectID, user.ID)

	now := time.Now().UTC().Truncate(time.Microsecond)
	reason := "no activity for more than 30m0s"
	snapshot := int64(3600)

	item.Status = domain.StatusInProgress
	item.IsWorking = true
	item.WorkStartedAt = &now
	item.AutoPaused = true
	item.AutoPauseReason = &reason
	item.AlertCount = 2
	item.TotalTimeSeconds = 5400
	item.OriginalTimeSeconds = &snapshot
	item.OriginalWorkFinishedAt = &now
	item.ApprovalStatus = domain.ApprovalStatusRejected
	item.ReturnCount = 1
	returnedBy := domain.ReturnedByTeamLead
	item.LastReturnedBy = &returnedBy
	item.LastReturnedAt = &now
	item.UpdatedAt = now

	if err := repo.Update(ctx, &item); err != nil {
		t.Fatalf("Update: unexpected error: %v", err)
	}

	got, err := repo.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID after update: unexpected error: %v", err)
	}
	if !got.IsWorking {
		t.Error("IsWorking not persisted")
	}
	if got.WorkStartedAt == nil || !got.WorkStartedAt.Equal(now) {
		t.Errorf("WorkStartedAt mismatch: got %v, want %v", got.WorkStartedAt, now)
	}
	if !got.AutoPaused || got.AutoPauseReason == nil || *got.AutoPauseReason != reason {
		t.Errorf("auto-pause markers not persisted: %v / %v", got.AutoPaused, got.AutoPauseReason)
	}
	if got.AlertCount != 2 {
		t.Errorf("AlertCount mismatch: got %d, want 2", got.AlertCount)
	}
	if got.TotalTimeSeconds != 5400 {
		t.Errorf("TotalTimeSeconds mismatch: got %d, want 5400", got.TotalTimeSeconds)
	}
	if got.OriginalTimeSeconds == nil || *got.OriginalTimeSeconds != snapshot {
		t.Errorf("OriginalTimeSeconds mismatch: got %v, want %d", got.OriginalTimeSeconds, snapshot)
	}
	if got.ReturnCount != 1 {
		t.Errorf("ReturnCount mismatch: got %d, want 1", got.ReturnCount)
	}
	if got.LastReturnedBy == nil || *got.LastReturnedBy != domain.ReturnedByTeamLead {
		t.Errorf("LastReturnedBy mismatch: got %v, want %s", got.LastReturnedBy, domain.ReturnedByTeamLead)
	}
}

func TestRepo_Update_NotFound(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	item := &domain.WorkItem{
		ID:             uuid.New(),
		Kind:           domain.WorkItemKindTask,
		Status:         domain.StatusToDo,
		ApprovalStatus: domain.ApprovalStatusNone,
		QAStatus:       domain.QAStatusNone,
		UpdatedAt:      now,
	}

	err := repo.Update(context.Background(), item)
	assertIsDomainError(t, err, domain.ErrNotFound)
}

// ---------------------------------------------------------------------------
// CountActive
// ---------------------------------------------------------------------------

func TestRepo_CountActive_ExcludesGivenItem(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	projectID := testhelper.SeedProject(t, pool)

	first := seedInProgress(t, ctx, repo, pool, projectID, user.ID, false)
	_ = seedInProgress(t, ctx, repo, pool, projectID, user.ID, false)
	_ = testhelper.SeedWorkItem(t, pool, projectID, user.ID) // TO_DO, not counted

	count, err := repo.CountActive(ctx, user.ID, uuid.Nil)
	if err != nil {
		t.Fatalf("CountActive: unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("CountActive = %d, want 2", count)
	}

	count, err = repo.CountActive(ctx, user.ID, first.ID)
	if err != nil {
		t.Fatalf("CountActive with exclusion: unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("CountActive excluding %s = %d, want 1", first.ID, count)
	}
}

// ---------------------------------------------------------------------------
// ListWorkingForUpdate + ListStaleIDs
// ---------------------------------------------------------------------------

func TestRepo_ListWorkingForUpdate(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	projectID := testhelper.SeedProject(t, pool)

	working := seedInProgress(t, ctx, repo, pool, projectID, user.ID, true)
	excluded := seedInProgress(t, ctx, repo, pool, projectID, user.ID, true)
	_ = seedInProgress(t, ctx, repo, pool, projectID, user.ID, false) // paused

	items, err := repo.ListWorkingForUpdate(ctx, user.ID, excluded.ID)
	if err != nil {
		t.Fatalf("ListWorkingForUpdate: unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("ListWorkingForUpdate returned %d items, want 1", len(items))
	}
	if items[0].ID != working.ID {
		t.Errorf("ListWorkingForUpdate ID mismatch: got %s, want %s", items[0].ID, working.ID)
	}
}

func TestRepo_ListStaleIDs(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	projectID := testhelper.SeedProject(t, pool)

	stale := seedInProgress(t, ctx, repo, pool, projectID, user.ID, true)
	fresh := seedInProgress(t, ctx, repo, pool, projectID, user.ID, true)

	past := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Microsecond)
	stale.WorkStartedAt = &past
	stale.UpdatedAt = past
	if err := repo.Update(ctx, &stale); err != nil {
		t.Fatalf("Update stale item: unexpected error: %v", err)
	}

	cutoff := time.Now().UTC().Add(-time.Hour)
	ids, err := repo.ListStaleIDs(ctx, cutoff)
	if err != nil {
		t.Fatalf("ListStaleIDs: unexpected error: %v", err)
	}

	if !containsID(ids, stale.ID) {
		t.Errorf("ListStaleIDs missing stale item %s", stale.ID)
	}
	if containsID(ids, fresh.ID) {
		t.Errorf("ListStaleIDs must not include fresh item %s", fresh.ID)
	}
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestRepo_List_Filters(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	other := testhelper.SeedUser(t, pool)
	projectID := testhelper.SeedProject(t, pool)

	mine := testhelper.SeedWorkItem(t, pool, projectID, user.ID)
	_ = testhelper.SeedWorkItem(t, pool, projectID, other.ID)

	items, err := repo.List(ctx, domain.WorkItemFilter{
		ProjectID:  &projectID,
		AssigneeID: &user.ID,
	})
	if err != nil {
		t.Fatalf("List: unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("List returned %d items, want 1", len(items))
	}
	if items[0].ID != mine.ID {
		t.Errorf("List ID mismatch: got %s, want %s", items[0].ID, mine.ID)
	}

	status := domain.StatusDone
	items, err = repo.List(ctx, domain.WorkItemFilter{
		ProjectID: &projectID,
		Status:    &status,
	})
	if err != nil {
		t.Fatalf("List by status: unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("List by DONE returned %d items, want 0", len(items))
	}
}

func TestRepo_List_LimitOffset(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	projectID := testhelper.SeedProject(t, pool)
	for range 3 {
		testhelper.SeedWorkItem(t, pool, projectID, user.ID)
	}

	items, err := repo.List(ctx, domain.WorkItemFilter{ProjectID: &projectID, Limit: 2})
	if err != nil {
		t.Fatalf("List with limit: unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("List with limit returned %d items, want 2", len(items))
	}

	items, err = repo.List(ctx, domain.WorkItemFilter{ProjectID: &projectID, Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List with offset: unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("List with offset returned %d items, want 1", len(items))
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// seedInProgress creates an item and moves it to IN_PROGRESS, optionally with
// an open live session marker.
func seedInProgress(t *testing.T, ctx context.Context, repo *workitem.Repo, pool *pgxpool.Pool, projectID, userID uuid.UUID, working bool) domain.WorkItem {
	t.Helper()

	item := testhelper.SeedWorkItem(t, pool, projectID, userID)
	now := time.Now().UTC().Truncate(time.Microsecond)

	item.Status = domain.StatusInProgress
	item.IsWorking = working
	if working {
		item.WorkStartedAt = &now
	}
	item.UpdatedAt = now

	if err := repo.Update(ctx, &item); err != nil {
		t.Fatalf("seedInProgress update: %v", err)
	}

	return item
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func assertIsDomainError(t *testing.T, err error, target error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error wrapping %v, got nil", target)
	}
	if !errors.Is(err, target) {
		t.Fatalf("expected error wrapping %v, got: %v", target, err)
	}
}
