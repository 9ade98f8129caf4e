package tracking

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
// Lifecycle Operations
// ---------------------------------------------------------------------------

// StartWork opens a work session on an idle item for the calling user.
// The concurrency guard and the pre-pause of the user's other live items
// happen in the same transaction as the state change.
func (s *Service) StartWork(ctx context.Context, itemID uuid.UUID) (*domain.WorkItem, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	var item *domain.WorkItem

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		item, err = s.items.GetByIDForUpdate(txCtx, itemID)
		if err != nil {
			return err
		}

		if !item.AssignedTo(userID) {
			return domain.ErrNotAssigned
		}
		if item.IsWorking {
			return domain.ErrAlreadyWorking
		}
		switch item.Status {
		case domain.StatusDone, domain.StatusReadyForTest, domain.StatusInReview:
			return domain.ErrAlreadyFinished
		}

		return s.activate(txCtx, item, userID, domain.SessionActionStart)
	})
	if err != nil {
		return nil, err
	}

	s.log.DebugContext(ctx, "work started",
		slog.String("user_id", userID.String()),
		slog.String("item_id", itemID.String()),
	)

	return item, nil
}

// PauseWork closes the open session and folds its duration into the item's
// total time.
func (s *Service) PauseWork(ctx context.Context, itemID uuid.UUID) (*domain.WorkItem, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	var item *domain.WorkItem

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		item, err = s.items.GetByIDForUpdate(txCtx, itemID)
		if err != nil {
			return err
		}

		if !item.AssignedTo(userID) {
			return domain.ErrNotAssigned
		}
		if !item.IsWorking {
			return domain.ErrNotWorking
		}

		now := s.clock.Now().UTC()
		if err := s.closeOpenSession(txCtx, item, now, false); err != nil {
			return err
		}

		return s.items.Update(txCtx, item)
	})
	if err != nil {
		return nil, err
	}

	s.log.DebugContext(ctx, "work paused",
		slog.String("user_id", userID.String()),
		slog.String("item_id", itemID.String()),
	)

	return item, nil
}

// ResumeWork opens a fresh session on a paused item. Accumulated time is
// never recomputed; the new session adds to it on the next close.
func (s *Service) ResumeWork(ctx context.Context, itemID uuid.UUID) (*domain.WorkItem, error) {
	return s.resume(ctx, itemID, domain.SessionActionResume)
}

// ResumeAutoPaused is ResumeWork for an item the inactivity sweep paused:
// it additionally clears the auto-pause marker and resets the alert counter.
func (s *Service) ResumeAutoPaused(ctx context.Context, itemID uuid.UUID) (*domain.WorkItem, error) {
	return s.resume(ctx, itemID, domain.SessionActionResumeAutoPaused)
}

func (s *Service) resume(ctx context.Context, itemID uuid.UUID, action domain.SessionAction) (*domain.WorkItem, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	var item *domain.WorkItem

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		item, err = s.items.GetByIDForUpdate(txCtx, itemID)
		if err != nil {
			return err
		}

		if !item.AssignedTo(userID) {
			return domain.ErrNotAssigned
		}
		if item.IsWorking {
			return domain.ErrAlreadyWorking
		}
		if !item.Paused() {
			return domain.ErrNotPaused
		}

		return s.activate(txCtx, item, userID, action)
	})
	if err != nil {
		return nil, err
	}

	s.log.DebugContext(ctx, "work resumed",
		slog.String("user_id", userID.String()),
		slog.String("item_id", itemID.String()),
		slog.String("action", action.String()),
	)

	return item, nil
}

// FinishWork closes the item's work cycle and hands it to the approval
// pipeline. A still-open session is closed first, folding its duration in.
func (s *Service) FinishWork(ctx context.Context, itemID uuid.UUID) (*domain.WorkItem, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	var item *domain.WorkItem

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		item, err = s.items.GetByIDForUpdate(txCtx, itemID)
		if err != nil {
			return err
		}

		if !item.AssignedTo(userID) {
			return domain.ErrNotAssigned
		}
		if item.Status == domain.StatusDone {
			return domain.ErrAlreadyFinished
		}

		now := s.clock.Now().UTC()

		if item.IsWorking {
			if err := s.closeOpenSession(txCtx, item, now, true); err != nil {
				return err
			}
		} else if !item.Paused() {
			return domain.ErrNotWorking
		}

		item.Status = domain.StatusDone
		item.ApprovalStatus = domain.ApprovalStatusPending
		item.AutoPaused = false
		item.AutoPauseReason = nil
		// Resubmitting opens a fresh review cycle; the previous cycle's
		// request-changes verdict no longer applies.
		item.TeamLeadRequestedChanges = false
		item.ReworkNotes = nil
		item.UpdatedAt = now

		if err := s.items.Update(txCtx, item); err != nil {
			return err
		}

		return s.events.Append(txCtx, domain.NewEvent(item.ID, userID, domain.EventFinishedByDeveloper, nil, now))
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "work finished",
		slog.String("user_id", userID.String()),
		slog.String("item_id", itemID.String()),
		slog.Int64("total_time_seconds", item.TotalTimeSeconds),
	)

	return item, nil
}

// ---------------------------------------------------------------------------
// Shared transaction helpers
// ---------------------------------------------------------------------------

// activate runs inside the caller's transaction with the item row locked.
// It enforces the concurrency cap, pauses the user's other live items, opens
// a new session and moves the item to the working state.
func (s *Service) activate(ctx context.Context, item *domain.WorkItem, userID uuid.UUID, action domain.SessionAction) error {
	if err := s.checkCanActivate(ctx, userID, item.ID); err != nil {
		return err
	}

	now := s.clock.Now().UTC()

	// One live item per user: anything else mid-session is paused first,
	// before the new session opens, so the one-open-session-per-item
	// invariant holds throughout.
	others, err := s.items.ListWorkingForUpdate(ctx, userID, item.ID)
	if err != nil {
		return fmt.Errorf("list working items: %w", err)
	}
	for _, other := range others {
		if err := s.closeOpenSession(ctx, other, now, false); err != nil {
			return fmt.Errorf("pre-pause item %s: %w", other.ID, err)
		}
		if err := s.items.Update(ctx, other); err != nil {
			return fmt.Errorf("pre-pause item %s: %w", other.ID, err)
		}
	}

	if _, err := s.sessions.Open(ctx, item.ID, userID, action, now); err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	item.IsWorking = true
	item.WorkStartedAt = &now
	item.Status = domain.StatusInProgress
	item.AutoPaused = false
	item.AutoPauseReason = nil
	if action == domain.SessionActionStart || action == domain.SessionActionResumeAutoPaused {
		item.AlertCount = 0
	}
	item.UpdatedAt = now

	return s.items.Update(ctx, item)
}

// closeOpenSession closes the item's open session at the given instant and
// folds the clamped duration into the item's total. The item is mutated in
// place; the caller persists it. When final is true the session closes as
// finished rather than paused.
func (s *Service) closeOpenSession(ctx context.Context, item *domain.WorkItem, now time.Time, final bool) error {
	sess, err := s.sessions.GetOpen(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("get open session: %w", err)
	}

	if now.Before(sess.StartedAt) {
		s.log.WarnContext(ctx, "session ends before it started, recording zero duration",
			slog.String("item_id", item.ID.String()),
			slog.String("session_id", sess.ID.String()),
			slog.Time("started_at", sess.StartedAt),
			slog.Time("closed_at", now),
		)
	}
	duration := domain.ClampSeconds(sess.StartedAt.UTC(), now)

	if final {
		err = s.sessions.CloseByFinish(ctx, sess.ID, now, duration)
	} else {
		err = s.sessions.CloseByPause(ctx, sess.ID, now, duration)
	}
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}

	item.TotalTimeSeconds += duration
	item.IsWorking = false
	item.WorkStartedAt = nil
	item.UpdatedAt = now

	return nil
}
