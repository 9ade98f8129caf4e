package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vmakarov/flowtrack-backend/internal/domain"
)

// RunAutoPauseSweep pauses every item whose open session is older than the
// configured inactivity threshold. Each item is handled in its own
// transaction with a locked re-check, so concurrent sweeps and user actions
// stay consistent and a failed item never aborts the run. Returns the number
// of items paused.
func (s *Service) RunAutoPauseSweep(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().UTC().Add(-s.policy.InactivityThreshold)

	ids, err := s.items.ListStaleIDs(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale items: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	paused := 0
	for _, id := range ids {
		ok, err := s.autoPauseOne(ctx, id)
		if err != nil {
			s.log.ErrorContext(ctx, "auto-pause failed, skipping item",
				slog.String("item_id", id.String()),
				slog.Any("error", err),
			)
			continue
		}
		if ok {
			paused++
		}
	}

	s.log.InfoContext(ctx, "auto-pause sweep finished",
		slog.Int("candidates", len(ids)),
		slog.Int("paused", paused),
	)

	return paused, nil
}

// autoPauseOne pauses a single stale item. The candidate list is computed
// without locks, so the working state is re-checked under FOR UPDATE; an
// item paused or finished in the meantime is simply skipped.
func (s *Service) autoPauseOne(ctx context.Context, itemID uuid.UUID) (bool, error) {
	cutoff := s.clock.Now().UTC().Add(-s.policy.InactivityThreshold)

	var paused bool

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		item, err := s.items.GetByIDForUpdate(txCtx, itemID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}

		if !item.IsWorking || item.WorkStartedAt == nil || item.WorkStartedAt.After(cutoff) {
			return nil
		}

		now := s.clock.Now().UTC()
		if err := s.closeOpenSession(txCtx, item, now, false); err != nil {
			return err
		}

		reason := fmt.Sprintf("no activity for more than %s", s.policy.InactivityThreshold)
		item.AutoPaused = true
		item.AutoPauseReason = &reason
		item.AlertCount++

		if err := s.items.Update(txCtx, item); err != nil {
			return err
		}

		paused = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return paused, nil
}
