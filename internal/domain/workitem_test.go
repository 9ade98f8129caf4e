package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func ptr[T any](v T) *T { return &v }

func TestWorkItem_AssignedTo(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	item := &WorkItem{AssigneeID: ptr(userID)}
	if !item.AssignedTo(userID) {
		t.Fatal("AssignedTo = false for the assignee")
	}
	if item.AssignedTo(uuid.New()) {
		t.Fatal("AssignedTo = true for another user")
	}

	unassigned := &WorkItem{}
	if unassigned.AssignedTo(userID) {
		t.Fatal("AssignedTo = true for unassigned item")
	}
}

func TestWorkItem_Active(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		status WorkItemStatus
		want   bool
	}{
		{StatusToDo, false},
		{StatusInProgress, true},
		{StatusReadyForTest, false},
		{StatusInReview, false},
		{StatusDone, false},
	} {
		item := &WorkItem{Status: tc.status}
		if got := item.Active(); got != tc.want {
			t.Errorf("Active() with status %s: got %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestWorkItem_ReworkSeconds(t *testing.T) {
	t.Parallel()

	noSnapshot := &WorkItem{TotalTimeSeconds: 7200}
	if got := noSnapshot.ReworkSeconds(); got != 0 {
		t.Fatalf("ReworkSeconds without snapshot: got %d, want 0", got)
	}

	item := &WorkItem{
		TotalTimeSeconds:    10800,
		OriginalTimeSeconds: ptr(int64(7200)),
	}
	if got := item.ReworkSeconds(); got != 3600 {
		t.Fatalf("ReworkSeconds: got %d, want 3600", got)
	}
}

func TestWorkItem_ReworkSeconds_NeverNegative(t *testing.T) {
	t.Parallel()

	// Snapshot larger than total (ordering anomaly) clamps to zero.
	item := &WorkItem{
		TotalTimeSeconds:    100,
		OriginalTimeSeconds: ptr(int64(500)),
	}
	if got := item.ReworkSeconds(); got != 0 {
		t.Fatalf("ReworkSeconds: got %d, want 0", got)
	}
}

func TestWorkItem_CurrentWorkSeconds(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	started := now.Add(-30 * time.Minute)

	working := &WorkItem{
		TotalTimeSeconds: 3600,
		IsWorking:        true,
		WorkStartedAt:    &started,
	}
	if got := working.CurrentWorkSeconds(now); got != 3600+1800 {
		t.Fatalf("CurrentWorkSeconds while working: got %d, want 5400", got)
	}

	paused := &WorkItem{TotalTimeSeconds: 3600}
	if got := paused.CurrentWorkSeconds(now); got != 3600 {
		t.Fatalf("CurrentWorkSeconds while paused: got %d, want 3600", got)
	}
}

func TestClampSeconds(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if got := ClampSeconds(base, base.Add(time.Hour)); got != 3600 {
		t.Fatalf("ClampSeconds: got %d, want 3600", got)
	}

	// End before start: clock skew is treated as zero duration, not negative.
	if got := ClampSeconds(base, base.Add(-time.Minute)); got != 0 {
		t.Fatalf("ClampSeconds with end before start: got %d, want 0", got)
	}
}

func TestWorkSession_Open(t *testing.T) {
	t.Parallel()

	now := time.Now()

	open := &WorkSession{StartedAt: now}
	if !open.Open() {
		t.Fatal("Open = false for session without paused_at/finished_at")
	}

	paused := &WorkSession{StartedAt: now, PausedAt: &now}
	if paused.Open() {
		t.Fatal("Open = true for paused session")
	}

	finished := &WorkSession{StartedAt: now, FinishedAt: &now}
	if finished.Open() {
		t.Fatal("Open = true for finished session")
	}
}

func TestWorkSession_Elapsed(t *testing.T) {
	t.Parallel()

	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	open := &WorkSession{StartedAt: started}
	if got := open.Elapsed(started.Add(90 * time.Second)); got != 90 {
		t.Fatalf("Elapsed open session: got %d, want 90", got)
	}

	closed := &WorkSession{StartedAt: started, DurationSeconds: ptr(int64(42))}
	if got := closed.Elapsed(started.Add(time.Hour)); got != 42 {
		t.Fatalf("Elapsed closed session: got %d, want 42", got)
	}
}
