package domain

import (
	"time"

	"github.com/google/uuid"
)

// WorkItem is a task or bug tracked by the lifecycle engine.
// Assignee, reviewer and QA reviewer are weak references (id only);
// the item exclusively owns its WorkSession history.
type WorkItem struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	SprintID  *uuid.UUID
	Kind      WorkItemKind
	Title     string

	AssigneeID *uuid.UUID
	Status     WorkItemStatus

	// Live working state.
	IsWorking       bool
	WorkStartedAt   *time.Time
	AutoPaused      bool
	AutoPauseReason *string
	AlertCount      int

	// Time accounting. TotalTimeSeconds only ever grows by the duration of a
	// closed session. OriginalTimeSeconds is snapshotted on the first
	// rejection of a work cycle and never overwritten.
	TotalTimeSeconds       int64
	OriginalTimeSeconds    *int64
	OriginalWorkFinishedAt *time.Time

	// Approval pipeline state.
	ApprovalStatus           ApprovalStatus
	QAStatus                 QAStatus
	ReviewerID               *uuid.UUID
	QAReviewerID             *uuid.UUID
	RejectionReason          *string
	QARejectionReason        *string
	ReworkNotes              *string
	TeamLeadFinalApproval    bool
	TeamLeadRequestedChanges bool

	// Rework tracking.
	ReturnCount    int
	LastReturnedBy *ReturnedBy
	LastReturnedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AssignedTo reports whether the item is assigned to the given user.
func (w *WorkItem) AssignedTo(userID uuid.UUID) bool {
	return w.AssigneeID != nil && *w.AssigneeID == userID
}

// Active reports whether the item counts against its assignee's concurrency
// cap. An item is active from the first Start until it is finished or sent
// through review, whether or not a session is currently open.
func (w *WorkItem) Active() bool {
	return w.Status == StatusInProgress
}

// Paused reports whether the item is mid-work with no open session.
func (w *WorkItem) Paused() bool {
	return w.Status == StatusInProgress && !w.IsWorking
}

// ReworkSeconds derives the time spent re-doing the item after its first
// rejection. Never negative: clock or ordering anomalies clamp to zero.
func (w *WorkItem) ReworkSeconds() int64 {
	if w.OriginalTimeSeconds == nil {
		return 0
	}
	rework := w.TotalTimeSeconds - *w.OriginalTimeSeconds
	if rework < 0 {
		return 0
	}
	return rework
}

// CurrentWorkSeconds returns accumulated time plus the live session span
// when the item is being worked on right now.
func (w *WorkItem) CurrentWorkSeconds(now time.Time) int64 {
	total := w.TotalTimeSeconds
	if w.IsWorking && w.WorkStartedAt != nil {
		total += ClampSeconds(w.WorkStartedAt.UTC(), now.UTC())
	}
	return total
}

// ClampSeconds returns the whole seconds from start to end, floored at zero.
// An end before start is a clock anomaly, not an error.
func ClampSeconds(start, end time.Time) int64 {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// WorkItemFilter narrows ListWorkItems results. Zero values mean "no filter".
type WorkItemFilter struct {
	ProjectID  *uuid.UUID
	SprintID   *uuid.UUID
	AssigneeID *uuid.UUID
	Status     *WorkItemStatus
	Kind       *WorkItemKind
	Limit      int
	Offset     int
}
