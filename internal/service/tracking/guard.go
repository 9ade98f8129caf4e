package tracking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vmakarov/flowtrack-backend/internal/domain"
)

// checkCanActivate enforces the per-user cap on simultaneously in-progress
// items. Must run inside the activation transaction, after the relevant item
// rows are locked, so the check and the mutation are one critical section.
// The target item is excluded from the count: resuming an item the user is
// already mid-work on never trips the cap.
func (s *Service) checkCanActivate(ctx context.Context, userID, itemID uuid.UUID) error {
	unlimited, err := s.capabilities.HasUnlimitedCapability(ctx, userID)
	if err != nil {
		return fmt.Errorf("check unlimited capability: %w", err)
	}
	if unlimited {
		return nil
	}

	current, err := s.items.CountActive(ctx, userID, itemID)
	if err != nil {
		return fmt.Errorf("count active items: %w", err)
	}

	if current >= s.policy.MaxActiveItems {
		return &domain.ConcurrencyLimitError{Current: current, Cap: s.policy.MaxActiveItems}
	}

	return nil
}

// GetActiveCount returns how many items the user currently has in progress.
func (s *Service) GetActiveCount(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.items.CountActive(ctx, userID, uuid.Nil)
	if err != nil {
		return 0, fmt.Errorf("get active count: %w", err)
	}

	return count, nil
}
