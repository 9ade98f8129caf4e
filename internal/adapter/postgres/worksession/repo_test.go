package worksession_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vmakarov/flowtrack-backend/internal/adapter/postgres/testhelper"
	"github.com/vmakarov/flowtrack-backend/internal/adapter/postgres/worksession"
	"github.com/vmakarov/flowtrack-backend/internal/domain"
)

// newRepo sets up a test DB and returns a ready Repo + pool.
func newRepo(t *testing.T) (*worksession.Repo, *pgxpool.Pool) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return worksession.New(pool), pool
}

// seedItem creates a user, project and work item, returning item and user ids.
func seedItem(t *testing.T, pool *pgxpool.Pool) (uuid.UUID, uuid.UUID) {
	t.Helper()
	user := testhelper.SeedUser(t, pool)
	projectID := testhelper.SeedProject(t, pool)
	item := testhelper.SeedWorkItem(t, pool, projectID, user.ID)
	return item.ID, user.ID
}

// ---------------------------------------------------------------------------
// Open + GetOpen
// ---------------------------------------------------------------------------

func TestRepo_Open_AndGetOpen(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	itemID, userID := seedItem(t, pool)
	startedAt := time.Now().UTC().Truncate(time.Microsecond)

	session, err := repo.Open(ctx, itemID, userID, domain.SessionActionStart, startedAt)
	if err != nil {
		t.Fatalf("Open: unexpected error: %v", err)
	}
	if session.Action != domain.SessionActionStart {
		t.Errorf("Action mismatch: got %s, want %s", session.Action, domain.SessionActionStart)
	}
	if !session.StartedAt.Equal(startedAt) {
		t.Errorf("StartedAt mismatch: got %v, want %v", session.StartedAt, startedAt)
	}
	if !session.Open() {
		t.Error("freshly opened session must be open")
	}

	got, err := repo.GetOpen(ctx, itemID)
	if err != nil {
		t.Fatalf("GetOpen: unexpected error: %v", err)
	}
	if got.ID != session.ID {
		t.Errorf("GetOpen ID mismatch: got %s, want %s", got.ID, session.ID)
	}
}

func TestRepo_Open_SecondOpenSessionRejected(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	itemID, userID := seedItem(t, pool)
	startedAt := time.Now().UTC().Truncate(time.Microsecond)

	if _, err := repo.Open(ctx, itemID, userID, domain.SessionActionStart, startedAt); err != nil {
		t.Fatalf("Open[1]: unexpected error: %v", err)
	}

	_, err := repo.Open(ctx, itemID, userID, domain.SessionActionResume, startedAt.Add(time.Second))
	assertIsDomainError(t, err, domain.ErrAlreadyExists)
}

func TestRepo_GetOpen_NoneOpen(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)

	itemID, _ := seedItem(t, pool)

	_, err := repo.GetOpen(context.Background(), itemID)
	assertIsDomainError(t, err, domain.ErrNotFound)
}

// ---------------------------------------------------------------------------
// CloseByPause + CloseByFinish
// ---------------------------------------------------------------------------

func TestRepo_CloseByPause(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	itemID, userID := seedItem(t, pool)
	startedAt := time.Now().UTC().Truncate(time.Microsecond)

	session, err := repo.Open(ctx, itemID, userID, domain.SessionActionStart, startedAt)
	if err != nil {
		t.Fatalf("Open: unexpected error: %v", err)
	}

	pausedAt := startedAt.Add(90 * time.Second)
	if err := repo.CloseByPause(ctx, session.ID, pausedAt, 90); err != nil {
		t.Fatalf("CloseByPause: unexpected error: %v", err)
	}

	// Closed session is gone from the open slot.
	_, err = repo.GetOpen(ctx, itemID)
	assertIsDomainError(t, err, domain.ErrNotFound)

	// Closing twice is a no-op on an already closed row.
	err = repo.CloseByPause(ctx, session.ID, pausedAt.Add(time.Second), 91)
	assertIsDomainError(t, err, domain.ErrNotFound)

	sessions, err := repo.ListByItem(ctx, itemID)
	if err != nil {
		t.Fatalf("ListByItem: unexpected error: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("ListByItem returned %d sessions, want 1", len(sessions))
	}
	closed := sessions[0]
	if closed.PausedAt == nil || !closed.PausedAt.Equal(pausedAt) {
		t.Errorf("PausedAt mismatch: got %v, want %v", closed.PausedAt, pausedAt)
	}
	if closed.FinishedAt != nil {
		t.Error("pause-closed session must not carry a finish timestamp")
	}
	if closed.DurationSeconds == nil || *closed.DurationSeconds != 90 {
		t.Errorf("DurationSeconds mismatch: got %v, want 90", closed.DurationSeconds)
	}
}

func TestRepo_CloseByFinish(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	itemID, userID := seedItem(t, pool)
	startedAt := time.Now().UTC().Truncate(time.Microsecond)

	session, err := repo.Open(ctx, itemID, userID, domain.SessionActionResume, startedAt)
	if err != nil {
		t.Fatalf("Open: unexpected error: %v", err)
	}

	finishedAt := startedAt.Add(30 * time.Minute)
	if err := repo.CloseByFinish(ctx, session.ID, finishedAt, 1800); err != nil {
		t.Fatalf("CloseByFinish: unexpected error: %v", err)
	}

	sessions, err := repo.ListByItem(ctx, itemID)
	if err != nil {
		t.Fatalf("ListByItem: unexpected error: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("ListByItem returned %d sessions, want 1", len(sessions))
	}
	closed := sessions[0]
	if closed.FinishedAt == nil || !closed.FinishedAt.Equal(finishedAt) {
		t.Errorf("FinishedAt mismatch: got %v, want %v", closed.FinishedAt, finishedAt)
	}
	if closed.PausedAt != nil {
		t.Error("finish-closed session must not carry a pause timestamp")
	}
}

func TestRepo_Close_UnknownSession(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)

	err := repo.CloseByFinish(context.Background(), uuid.New(), time.Now().UTC(), 10)
	assertIsDomainError(t, err, domain.ErrNotFound)
}

// ---------------------------------------------------------------------------
// ListByItem + SumDurations
// ---------------------------------------------------------------------------

func TestRepo_ListByItem_OrderedByStart(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	itemID, userID := seedItem(t, pool)
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)

	first, err := repo.Open(ctx, itemID, userID, domain.SessionActionStart, base)
	if err != nil {
		t.Fatalf("Open[1]: unexpected error: %v", err)
	}
	if err := repo.CloseByPause(ctx, first.ID, base.Add(10*time.Minute), 600); err != nil {
		t.Fatalf("CloseByPause[1]: unexpected error: %v", err)
	}

	second, err := repo.Open(ctx, itemID, userID, domain.SessionActionResume, base.Add(20*time.Minute))
	if err != nil {
		t.Fatalf("Open[2]: unexpected error: %v", err)
	}
	if err := repo.CloseByFinish(ctx, second.ID, base.Add(25*time.Minute), 300); err != nil {
		t.Fatalf("CloseByFinish[2]: unexpected error: %v", err)
	}

	sessions, err := repo.ListByItem(ctx, itemID)
	if err != nil {
		t.Fatalf("ListByItem: unexpected error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("ListByItem returned %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != first.ID || sessions[1].ID != second.ID {
		t.Errorf("ListByItem order mismatch: got [%s, %s], want [%s, %s]",
			sessions[0].ID, sessions[1].ID, first.ID, second.ID)
	}

	sum, err := repo.SumDurations(ctx, itemID)
	if err != nil {
		t.Fatalf("SumDurations: unexpected error: %v", err)
	}
	if sum != 900 {
		t.Errorf("SumDurations = %d, want 900", sum)
	}
}

func TestRepo_ListByItem_Empty(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)

	itemID, _ := seedItem(t, pool)

	sessions, err := repo.ListByItem(context.Background(), itemID)
	if err != nil {
		t.Fatalf("ListByItem: unexpected error: %v", err)
	}
	if sessions == nil {
		t.Fatal("ListByItem must return an empty slice, not nil")
	}
	if len(sessions) != 0 {
		t.Errorf("ListByItem returned %d sessions, want 0", len(sessions))
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func assertIsDomainError(t *testing.T, err error, target error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error wrapping %v, got nil", target)
	}
	if !errors.Is(err, target) {
		t.Fatalf("expected error wrapping %v, got: %v", target, err)
	}
}
