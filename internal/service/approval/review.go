package approval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vmakarov/flowtrack-backend/internal/domain"
	"github.com/vmakarov/flowtrack-backend/pkg/ctxutil"
)

// ---------------------------------------------------------------------------
// Review Operations
// ---------------------------------------------------------------------------

// TeamLeadReview is the first review stage, entered when the developer
// finishes the item. Approval forwards the item to QA; rejection sends it
// back to development.
func (s *Service) TeamLeadReview(ctx context.Context, itemID uuid.UUID, decision Decision, reason *string) (*domain.WorkItem, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, domain.NewValidationError("decision", "must be APPROVE or REJECT")
	}

	var item *domain.WorkItem

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		item, err = s.items.GetByIDForUpdate(txCtx, itemID)
		if err != nil {
			return err
		}

		if err := s.requireReviewAuthority(txCtx, userID, item.ProjectID); err != nil {
			return err
		}
		if item.ApprovalStatus != domain.ApprovalStatusPending {
			return domain.ErrNotPending
		}

		now := s.clock.Now().UTC()
		item.ReviewerID = &userID

		var event domain.Event
		switch decision {
		case DecisionApprove:
			item.ApprovalStatus = domain.ApprovalStatusApproved
			item.QAStatus = domain.QAStatusReadyForTest
			item.Status = domain.StatusReadyForTest
			item.RejectionReason = nil
			event = domain.NewEvent(item.ID, userID, domain.EventReadyForQA, nil, now)
		case DecisionReject:
			item.ApprovalStatus = domain.ApprovalStatusRejected
			item.RejectionReason = reason
			triggerRework(item, domain.ReturnedByTeamLead, now)
			event = domain.NewEvent(item.ID, userID, domain.EventChangesRequested, reason, now)
		}
		item.UpdatedAt = now

		if err := s.items.Update(txCtx, item); err != nil {
			return err
		}
		return s.events.Append(txCtx, event)
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "team lead review recorded",
		slog.String("reviewer_id", userID.String()),
		slog.String("item_id", itemID.String()),
		slog.String("decision", decision.String()),
	)

	return item, nil
}

// QAReview is the testing verdict. Approval hands the item to the team lead
// for the final pass; rejection sends it back to development.
func (s *Service) QAReview(ctx context.Context, itemID uuid.UUID, decision Decision, reason *string) (*domain.WorkItem, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, domain.NewValidationError("decision", "must be APPROVE or REJECT")
	}

	var item *domain.WorkItem

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		item, err = s.items.GetByIDForUpdate(txCtx, itemID)
		if err != nil {
			return err
		}

		authorized, err := s.authorities.HasQAAuthority(txCtx, userID, item.ProjectID)
		if err != nil {
			return fmt.Errorf("check qa authority: %w", err)
		}
		if !authorized {
			return domain.ErrNotAuthorized
		}
		if !item.QAStatus.Reviewable() {
			return domain.ErrNotPending
		}

		now := s.clock.Now().UTC()
		item.QAReviewerID = &userID

		var event domain.Event
		switch decision {
		case DecisionApprove:
			item.QAStatus = domain.QAStatusApproved
			item.Status = domain.StatusInReview
			item.QARejectionReason = nil
			event = domain.NewEvent(item.ID, userID, domain.EventApprovedByQA, nil, now)
		case DecisionReject:
			item.QAStatus = domain.QAStatusRejected
			item.QARejectionReason = reason
			triggerRework(item, domain.ReturnedByQA, now)
			event = domain.NewEvent(item.ID, userID, domain.EventRejectedByQA, reason, now)
		}
		item.UpdatedAt = now

		if err := s.items.Update(txCtx, item); err != nil {
			return err
		}
		return s.events.Append(txCtx, event)
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "qa review recorded",
		slog.String("reviewer_id", userID.String()),
		slog.String("item_id", itemID.String()),
		slog.String("decision", decision.String()),
	)

	return item, nil
}

// TeamLeadFinalReview is the last pipeline stage, entered after QA approves.
// Final approval closes the item for good; requesting changes reopens it even
// though QA signed off.
func (s *Service) TeamLeadFinalReview(ctx context.Context, itemID uuid.UUID, decision Decision, notes *string) (*domain.WorkItem, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if decision != DecisionApprove && decision != DecisionRequestChanges {
		return nil, domain.NewValidationError("decision", "must be APPROVE or REQUEST_CHANGES")
	}

	var item *domain.WorkItem

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		item, err = s.items.GetByIDForUpdate(txCtx, itemID)
		if err != nil {
			return err
		}

		if err := s.requireReviewAuthority(txCtx, userID, item.ProjectID); err != nil {
			return err
		}
		// QAStatus alone is not enough: a request-changes verdict reopens the
		// item while leaving the previous cycle's QA approval in place, and
		// that stale approval must not admit a second final review.
		if item.Status != domain.StatusInReview || item.QAStatus != domain.QAStatusApproved || item.TeamLeadFinalApproval {
			return domain.ErrNotPending
		}

		now := s.clock.Now().UTC()

		var event domain.Event
		switch decision {
		case DecisionApprove:
			item.TeamLeadFinalApproval = true
			item.Status = domain.StatusDone
			event = domain.NewEvent(item.ID, userID, domain.EventFinalApproved, nil, now)
		case DecisionRequestChanges:
			item.TeamLeadRequestedChanges = true
			item.ReworkNotes = notes
			triggerRework(item, domain.ReturnedByTeamLead, now)
			// QA already signed off on this cycle, so the developer-facing
			// event carries that context.
			event = domain.NewEvent(item.ID, userID, domain.EventApprovedWithChangesRequested, notes, now)
		}
		item.UpdatedAt = now

		if err := s.items.Update(txCtx, item); err != nil {
			return err
		}
		return s.events.Append(txCtx, event)
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "team lead final review recorded",
		slog.String("reviewer_id", userID.String()),
		slog.String("item_id", itemID.String()),
		slog.String("decision", decision.String()),
	)

	return item, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Service) requireReviewAuthority(ctx context.Context, userID, projectID uuid.UUID) error {
	authorized, err := s.authorities.HasReviewAuthority(ctx, userID, projectID)
	if err != nil {
		return fmt.Errorf("check review authority: %w", err)
	}
	if !authorized {
		return domain.ErrNotAuthorized
	}
	return nil
}

// triggerRework reopens a reviewed item for development. The first rejection
// of a work cycle snapshots the original time; the snapshot is never
// overwritten, later rejections only bump the return counters.
func triggerRework(item *domain.WorkItem, by domain.ReturnedBy, now time.Time) {
	if item.OriginalTimeSeconds == nil {
		total := item.TotalTimeSeconds
		item.OriginalTimeSeconds = &total
		item.OriginalWorkFinishedAt = &now
	}

	item.Status = domain.StatusInProgress
	item.IsWorking = false
	item.WorkStartedAt = nil
	item.ReturnCount++
	returnedBy := by
	item.LastReturnedBy = &returnedBy
	returnedAt := now
	item.LastReturnedAt = &returnedAt
}
