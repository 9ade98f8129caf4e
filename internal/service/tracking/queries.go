package tracking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vmakarov/flowtrack-backend/internal/domain"
)

// GetCurrentWorkTime returns the item's accumulated seconds including the
// live session, when one is open.
func (s *Service) GetCurrentWorkTime(ctx context.Context, itemID uuid.UUID) (int64, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return 0, err
	}

	return item.CurrentWorkSeconds(s.clock.Now().UTC()), nil
}

// GetReworkTime returns the seconds spent on the item after its first
// rejection. Items returned before snapshotting existed have no baseline;
// for those the configured fallback ratio of the total is reported instead
// of guessing from session rows.
func (s *Service) GetReworkTime(ctx context.Context, itemID uuid.UUID) (int64, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return 0, err
	}

	if item.OriginalTimeSeconds != nil {
		return item.ReworkSeconds(), nil
	}
	if item.ReturnCount > 0 {
		return int64(float64(item.TotalTimeSeconds) * s.policy.ReworkFallbackRatio), nil
	}

	return 0, nil
}

// ListSessions returns the item's full session ledger, oldest first.
func (s *Service) ListSessions(ctx context.Context, itemID uuid.UUID) ([]*domain.WorkSession, error) {
	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return nil, err
	}

	sessions, err := s.sessions.ListByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return sessions, nil
}
