// Package user implements user and capability lookups using PostgreSQL.
// The lifecycle engine consumes these through narrow capability interfaces;
// it never queries the membership tables directly.
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/vmakarov/flowtrack-backend/internal/adapter/postgres"
	"github.com/vmakarov/flowtrack-backend/internal/domain"
)

// Repo provides user persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new user repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const getByIDSQL = `
SELECT id, username, email, unlimited_active, created_at
FROM users
WHERE id = $1`

const hasUnlimitedSQL = `
SELECT unlimited_active FROM users WHERE id = $1`

const memberRoleSQL = `
SELECT role FROM project_members
WHERE project_id = $1 AND user_id = $2`

// GetByID returns a user by primary key.
func (r *Repo) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var user domain.User
	err := querier.QueryRow(ctx, getByIDSQL, userID).Scan(
		&user.ID, &user.Username, &user.Email, &user.UnlimitedActive, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}

	return &user, nil
}

// HasUnlimitedCapability reports whether the user is exempt from the
// active-item cap. Unknown users are not exempt.
func (r *Repo) HasUnlimitedCapability(ctx context.Context, userID uuid.UUID) (bool, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var unlimited bool
	err := querier.QueryRow(ctx, hasUnlimitedSQL, userID).Scan(&unlimited)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("user capability %s: %w", userID, err)
	}

	return unlimited, nil
}

// HasReviewAuthority reports whether the user is a team lead on the project.
func (r *Repo) HasReviewAuthority(ctx context.Context, userID, projectID uuid.UUID) (bool, error) {
	role, err := r.memberRole(ctx, projectID, userID)
	if err != nil {
		return false, err
	}

	return role == domain.ProjectRoleTeamLead, nil
}

// HasQAAuthority reports whether the user holds the QA role on the project.
func (r *Repo) HasQAAuthority(ctx context.Context, userID, projectID uuid.UUID) (bool, error) {
	role, err := r.memberRole(ctx, projectID, userID)
	if err != nil {
		return false, err
	}

	return role == domain.ProjectRoleQA, nil
}

func (r *Repo) memberRole(ctx context.Context, projectID, userID uuid.UUID) (domain.ProjectRole, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var role string
	err := querier.QueryRow(ctx, memberRoleSQL, projectID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("project member %s/%s: %w", projectID, userID, err)
	}

	return domain.ProjectRole(role), nil
}
