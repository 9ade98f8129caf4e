package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a domain event produced by the lifecycle engine.
type EventType string

const (
	EventFinishedByDeveloper          EventType = "FINISHED_BY_DEVELOPER"
	EventReadyForQA                   EventType = "READY_FOR_QA"
	EventApprovedByQA                 EventType = "APPROVED_BY_QA"
	EventRejectedByQA                 EventType = "REJECTED_BY_QA"
	EventFinalApproved                EventType = "FINAL_APPROVED"
	EventChangesRequested             EventType = "CHANGES_REQUESTED"
	EventApprovedWithChangesRequested EventType = "APPROVED_WITH_CHANGES_REQUESTED"
)

func (t EventType) String() string { return string(t) }

func (t EventType) IsValid() bool {
	switch t {
	case EventFinishedByDeveloper, EventReadyForQA, EventApprovedByQA,
		EventRejectedByQA, EventFinalApproved, EventChangesRequested,
		EventApprovedWithChangesRequested:
		return true
	}
	return false
}

// Event is a domain event appended to the outbox in the same transaction as
// the state change that caused it. A separate dispatcher delivers events to
// the Notifier; delivery failures never roll back the state transition.
type Event struct {
	ID         uuid.UUID
	WorkItemID uuid.UUID
	ActorID    uuid.UUID
	Type       EventType

	// Reason carries the rejection reason or change-request notes, when the
	// event type has one.
	Reason *string

	CreatedAt    time.Time
	DispatchedAt *time.Time
}

// NewEvent builds an undispatched event.
func NewEvent(itemID, actorID uuid.UUID, typ EventType, reason *string, now time.Time) Event {
	return Event{
		ID:         uuid.New(),
		WorkItemID: itemID,
		ActorID:    actorID,
		Type:       typ,
		Reason:     reason,
		CreatedAt:  now,
	}
}
