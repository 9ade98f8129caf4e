// Package approval implements the post-finish review pipeline: team-lead
// review, QA review and the team-lead final pass, with the rework loop that
// sends rejected items back to the developer.
package approval

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/vmakarov/flowtrack-backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type workItemRepo interface {
	GetByIDForUpdate(ctx context.Context, itemID uuid.UUID) (*domain.WorkItem, error)
	Update(ctx context.Context, item *domain.WorkItem) error
}

type authorityChecker interface {
	HasReviewAuthority(ctx context.Context, userID, projectID uuid.UUID) (bool, error)
	HasQAAuthority(ctx context.Context, userID, projectID uuid.UUID) (bool, error)
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

// Decision is a reviewer's verdict on an item.
type Decision string

const (
	DecisionApprove        Decision = "APPROVE"
	DecisionReject         Decision = "REJECT"
	DecisionRequestChanges Decision = "REQUEST_CHANGES"
)

func (d Decision) String() string { return string(d) }

// Service implements the approval pipeline business logic.
type Service struct {
	items       workItemRepo
	authorities authorityChecker
	events      eventOutbox
	tx          txManager
	clock       clockwork.Clock
	log         *slog.Logger
}

// NewService creates a new approval service.
func NewService(
	log *slog.Logger,
	items workItemRepo,
	authorities authorityChecker,
	events eventOutbox,
	tx txManager,
	clock clockwork.Clock,
) *Service {
	return &Service{
		items:       items,
		authorities: authorities,
		events:      events,
		tx:          tx,
		clock:       clock,
		log:         log.With("service", "approval"),
	}
}
