package tracking

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/vmakarov/flowtrack-backend/internal/domain"
	"github.com/vmakarov/flowtrack-backend/pkg/ctxutil"
)

const maxTitleLength = 500

// ---------------------------------------------------------------------------
// CreateWorkItemInput
// ---------------------------------------------------------------------------

// CreateWorkItemInput holds the parameters for creating a work item.
type CreateWorkItemInput struct {
	ProjectID  uuid.UUID
	SprintID   *uuid.UUID
	Kind       domain.WorkItemKind
	Title      string
	AssigneeID *uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i CreateWorkItemInput) Validate() error {
	var errs []domain.FieldError

	if i.ProjectID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "project_id", Message: "required"})
	}
	if !i.Kind.IsValid() {
		errs = append(errs, domain.FieldError{Field: "kind", Message: "must be TASK or BUG"})
	}
	if strings.TrimSpace(i.Title) == "" {
		errs = append(errs, domain.FieldError{Field: "title", Message: "required"})
	}
	if len(i.Title) > maxTitleLength {
		errs = append(errs, domain.FieldError{Field: "title", Message: "too long (max 500)"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Item CRUD Operations
// ---------------------------------------------------------------------------

// CreateWorkItem creates an idle item with empty lifecycle state.
func (s *Service) CreateWorkItem(ctx context.Context, input CreateWorkItemInput) (*domain.WorkItem, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	item := &domain.WorkItem{
		ID:             uuid.New(),
		ProjectID:      input.ProjectID,
		SprintID:       input.SprintID,
		Kind:           input.Kind,
		Title:          strings.TrimSpace(input.Title),
		AssigneeID:     input.AssigneeID,
		Status:         domain.StatusToDo,
		ApprovalStatus: domain.ApprovalStatusNone,
		QAStatus:       domain.QAStatusNone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := s.items.Create(ctx, item)
	if err != nil {
		return nil, err
	}

	s.log.DebugContext(ctx, "work item created",
		slog.String("user_id", userID.String()),
		slog.String("item_id", created.ID.String()),
		slog.String("kind", created.Kind.String()),
	)

	return created, nil
}

// GetWorkItem returns a single item by id.
func (s *Service) GetWorkItem(ctx context.Context, itemID uuid.UUID) (*domain.WorkItem, error) {
	return s.items.GetByID(ctx, itemID)
}

// ListWorkItems returns items matching the filter, newest first.
func (s *Service) ListWorkItems(ctx context.Context, filter domain.WorkItemFilter) ([]*domain.WorkItem, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, domain.NewValidationError("status", "unknown status")
	}
	if filter.Kind != nil && !filter.Kind.IsValid() {
		return nil, domain.NewValidationError("kind", "unknown kind")
	}

	return s.items.List(ctx, filter)
}
