package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vmakarov/flowtrack-backend/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedUser creates a user row and returns the filled domain.User.
func SeedUser(t *testing.T, pool *pgxpool.Pool) domain.User {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	user := domain.User{
		ID:        uuid.New(),
		Username:  "testuser-" + suffix,
		Email:     "testuser-" + suffix + "@example.com",
		CreatedAt: now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO users (id, username, email, unlimited_active, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, user.Email, user.UnlimitedActive, user.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedUser insert: %v", err)
	}

	return user
}

// SeedUnlimitedUser creates a user with the unlimited-active capability.
func SeedUnlimitedUser(t *testing.T, pool *pgxpool.Pool) domain.User {
	t.Helper()

	user := SeedUser(t, pool)
	_, err := pool.Exec(context.Background(),
		`UPDATE users SET unlimited_active = true WHERE id = $1`, user.ID,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedUnlimitedUser update: %v", err)
	}
	user.UnlimitedActive = true

	return user
}

// SeedProject creates a project row and returns its id.
func SeedProject(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO projects (id, name, created_at) VALUES ($1, $2, now())`,
		id, "Test Project "+uniqueSuffix(),
	)
	if err != nil {
		t.Fatalf("testhelper: SeedProject insert: %v", err)
	}

	return id
}

// SeedMember adds a user to a project with the given role.
func SeedMember(t *testing.T, pool *pgxpool.Pool, projectID, userID uuid.UUID, role domain.ProjectRole) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO project_members (project_id, user_id, role, added_at)
		 VALUES ($1, $2, $3, now())`,
		projectID, userID, string(role),
	)
	if err != nil {
		t.Fatalf("testhelper: SeedMember insert: %v", err)
	}
}

// SeedWorkItem creates a TO_DO work item assigned to the given user.
func SeedWorkItem(t *testing.T, pool *pgxpool.Pool, projectID, assigneeID uuid.UUID) domain.WorkItem {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	item := domain.WorkItem{
		ID:             uuid.New(),
		ProjectID:      projectID,
		Kind:           domain.WorkItemKindTask,
		Title:          "Test item " + uniqueSuffix(),
		AssigneeID:     &assigneeID,
		Status:         domain.StatusToDo,
		ApprovalStatus: domain.ApprovalStatusNone,
		QAStatus:       domain.QAStatusNone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO work_items
		   (id, project_id, kind, title, assignee_id, status,
		    approval_status, qa_status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		item.ID, item.ProjectID, string(item.Kind), item.Title, item.AssigneeID,
		string(item.Status), string(item.ApprovalStatus), string(item.QAStatus),
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedWorkItem insert: %v", err)
	}

	return item
}
