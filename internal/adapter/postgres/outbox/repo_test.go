package outbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vmakarov/flowtrack-backend/internal/adapter/postgres/outbox"
	"github.com/vmakarov/flowtrack-backend/internal/adapter/postgres/testhelper"
	"github.com/vmakarov/flowtrack-backend/internal/domain"
)

// newRepo sets up a test DB and returns a ready Repo + pool.
func newRepo(t *testing.T) (*outbox.Repo, *pgxpool.Pool) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return outbox.New(pool), pool
}

// seedEvent appends an event for a fresh work item and returns it.
func seedEvent(t *testing.T, repo *outbox.Repo, pool *pgxpool.Pool, typ domain.EventType, createdAt time.Time) domain.Event {
	t.Helper()

	user := testhelper.SeedUser(t, pool)
	projectID := testhelper.SeedProject(t, pool)
	item := testhelper.SeedWorkItem(t, pool, projectID, user.ID)

	event := domain.NewEvent(item.ID, user.ID, typ, nil, createdAt)
	if err := repo.Append(context.Background(), event); err != nil {
		t.Fatalf("Append: unexpected error: %v", err)
	}

	return event
}

// ---------------------------------------------------------------------------
// Append + ListPending
// ---------------------------------------------------------------------------

func TestRepo_Append_AndListPending(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	older := seedEvent(t, repo, pool, domain.EventFinishedByDeveloper, now.Add(-time.Minute))
	newer := seedEvent(t, repo, pool, domain.EventReadyForQA, now)

	events, err := repo.ListPending(ctx, 100)
	if err != nil {
		t.Fatalf("ListPending: unexpected error: %v", err)
	}

	olderIdx, newerIdx := -1, -1
	for i, event := range events {
		switch event.ID {
		case older.ID:
			olderIdx = i
		case newer.ID:
			newerIdx = i
		}
	}
	if olderIdx == -1 || newerIdx == -1 {
		t.Fatalf("ListPending missing seeded events: older=%d newer=%d", olderIdx, newerIdx)
	}
	if olderIdx > newerIdx {
		t.Errorf("ListPending order mismatch: older event at %d after newer at %d", olderIdx, newerIdx)
	}

	if events[olderIdx].Type != domain.EventFinishedByDeveloper {
		t.Errorf("Type mismatch: got %s, want %s", events[olderIdx].Type, domain.EventFinishedByDeveloper)
	}
	if events[olderIdx].DispatchedAt != nil {
		t.Error("pending event must not carry a dispatch timestamp")
	}
}

func TestRepo_Append_WithReason(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	projectID := testhelper.SeedProject(t, pool)
	item := testhelper.SeedWorkItem(t, pool, projectID, user.ID)

	reason := "edge cases not covered"
	now := time.Now().UTC().Truncate(time.Microsecond)
	event := domain.NewEvent(item.ID, user.ID, domain.EventRejectedByQA, &reason, now)

	if err := repo.Append(ctx, event); err != nil {
		t.Fatalf("Append: unexpected error: %v", err)
	}

	events, err := repo.ListPending(ctx, 1000)
	if err != nil {
		t.Fatalf("ListPending: unexpected error: %v", err)
	}

	for _, got := range events {
		if got.ID != event.ID {
			continue
		}
		if got.Reason == nil || *got.Reason != reason {
			t.Errorf("Reason mismatch: got %v, want %q", got.Reason, reason)
		}
		return
	}
	t.Fatalf("ListPending missing event %s", event.ID)
}

// ---------------------------------------------------------------------------
// MarkDispatched
// ---------------------------------------------------------------------------

func TestRepo_MarkDispatched(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	delivered := seedEvent(t, repo, pool, domain.EventFinalApproved, now)
	pending := seedEvent(t, repo, pool, domain.EventChangesRequested, now)

	if err := repo.MarkDispatched(ctx, []uuid.UUID{delivered.ID}, now.Add(time.Second)); err != nil {
		t.Fatalf("MarkDispatched: unexpected error: %v", err)
	}

	events, err := repo.ListPending(ctx, 1000)
	if err != nil {
		t.Fatalf("ListPending: unexpected error: %v", err)
	}

	for _, event := range events {
		if event.ID == delivered.ID {
			t.Error("dispatched event still listed as pending")
		}
	}

	found := false
	for _, event := range events {
		if event.ID == pending.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("undispatched event %s missing from pending list", pending.ID)
	}
}

func TestRepo_MarkDispatched_EmptyIDs(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)

	if err := repo.MarkDispatched(context.Background(), nil, time.Now().UTC()); err != nil {
		t.Fatalf("MarkDispatched(nil): unexpected error: %v", err)
	}
}
