// Package tracking implements the work-item lifecycle engine: the
// start/pause/resume/finish state machine, the per-user concurrency guard,
// and the inactivity auto-pause sweep. Every state mutation runs as a single
// transaction with the affected rows locked.
package tracking

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/vmakarov/flowtrack-backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type workItemRepo interface {
	GetByID(ctx context.Context, itemID uuid.UUID) (*domain.WorkItem, error)
	GetByIDForUpdate(ctx context.Context, itemID uuid.UUID) (*domain.WorkItem, error)
	ListWorkingForUpdate(ctx context.Context, userID, excludeID uuid.UUID) ([]*domain.WorkItem, error)
	CountActive(ctx context.Context, userID, excludeID uuid.UUID) (int, error)
	ListStaleIDs(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
	List(ctx context.Context, filter domain.WorkItemFilter) ([]*domain.WorkItem, error)
	Create(ctx context.Context, item *domain.WorkItem) (*domain.WorkItem, error)
	Update(ctx context.Context, item *domain.WorkItem) error
}

type sessionLedger interface {
	Open(ctx context.Context, itemID, userID uuid.UUID, action domain.SessionAction, startedAt time.Time) (*domain.WorkSession, error)
	GetOpen(ctx context.Context, itemID uuid.UUID) (*domain.WorkSession, error)
	CloseByPause(ctx context.Context, sessionID uuid.UUID, pausedAt time.Time, durationSeconds int64) error
	CloseByFinish(ctx context.Context, sessionID uuid.UUID, finishedAt time.Time, durationSeconds int64) error
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]*domain.WorkSession, error)
}

type capabilityChecker interface {
	HasUnlimitedCapability(ctx context.Context, userID uuid.UUID) (bool, error)
}

type eventOutbox interface {
	Append(ctx context.Context, event domain.Event) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service implements the work-item lifecycle business logic.
type Service struct {
	items        workItemRepo
	sessions     sessionLedger
	capabilities capabilityChecker
	events       eventOutbox
	tx           txManager
	clock        clockwork.Clock
	log          *slog.Logger
	policy       domain.TrackingPolicy
}

// NewService creates a new tracking service.
func NewService(
	log *slog.Logger,
	items workItemRepo,
	sessions sessionLedger,
	capabilities capabilityChecker,
	events eventOutbox,
	tx txManager,
	clock clockwork.Clock,
	policy domain.TrackingPolicy,
) *Service {
	return &Service{
		items:        items,
		sessions:     sessions,
		capabilities: capabilities,
		events:       events,
		tx:           tx,
		clock:        clock,
		log:          log.With("service", "tracking"),
		policy:       policy,
	}
}
