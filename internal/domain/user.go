package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is referenced by the lifecycle engine through its id only.
// UnlimitedActive lifts the per-user cap on simultaneously active items.
type User struct {
	ID              uuid.UUID
	Username        string
	Email           string
	UnlimitedActive bool
	CreatedAt       time.Time
}

// ProjectMember links a user to a project with a role. Review authority is
// derived from the role, never queried from a roles store by the core.
type ProjectMember struct {
	ProjectID uuid.UUID
	UserID    uuid.UUID
	Role      ProjectRole
	AddedAt   time.Time
}
