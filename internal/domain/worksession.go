package domain

import (
	"time"

	"github.com/google/uuid"
)

// WorkSession is one ledger entry: a contiguous start-to-pause-or-finish span
// of active work on an item. Rows are append-only; a session is closed exactly
// once (by pause or finish) and never mutated afterwards. At most one session
// per item may be open at a time.
type WorkSession struct {
	ID         uuid.UUID
	WorkItemID uuid.UUID
	UserID     uuid.UUID
	Action     SessionAction

	StartedAt  time.Time
	PausedAt   *time.Time
	FinishedAt *time.Time

	// DurationSeconds is set when the span closes, clamped at zero.
	DurationSeconds *int64

	CreatedAt time.Time
}

// Open reports whether the session span is still accumulating time.
func (s *WorkSession) Open() bool {
	return s.PausedAt == nil && s.FinishedAt == nil
}

// Elapsed returns the span length at the given instant, clamped at zero.
// For closed sessions the recorded duration is returned.
func (s *WorkSession) Elapsed(now time.Time) int64 {
	if s.DurationSeconds != nil {
		return *s.DurationSeconds
	}
	return ClampSeconds(s.StartedAt.UTC(), now.UTC())
}
