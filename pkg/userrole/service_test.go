package userrole

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/mentorhub/mentor-idm/pkg/iam"
	"github.com/mentorhub/mentor-idm/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		candidate string
		want      bool
	}{
		{"mentor", true},
		{"mentee", true},
		{"", false},
		{"Mentor", false},
		{"MENTEE", false},
		{" mentor", false},
		{"mentor ", false},
		{"admin", false},
		{"mentors", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.candidate), func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidRole(tt.candidate))
		})
	}
}

func seedUser(t *testing.T, repo *iam.InMemoryUserRepository, email string) iam.User {
	t.Helper()
	user, err := repo.CreateUser(context.Background(), iam.CreateUserParams{
		Email: email,
		Name:  utils.ToNullString("Test User"),
	})
	require.NoError(t, err)
	return user
}

func TestAssignRole(t *testing.T) {
	ctx := context.Background()
	repo := iam.NewInMemoryUserRepository()
	service := NewRoleService(repo)

	user := seedUser(t, repo, "alice@example.com")

	canSelect, err := service.CanSelectRole(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, canSelect, "new user should be able to select a role")

	updated, err := service.AssignRole(ctx, user.ID, RoleMentor)
	require.NoError(t, err)
	assert.Equal(t, RoleMentor, updated.CustomRole.String)
	assert.True(t, updated.CustomRole.Valid)

	canSelect, err = service.CanSelectRole(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, canSelect, "role selection is one-time")
}

func TestAssignRoleAlreadyAssigned(t *testing.T) {
	ctx := context.Background()
	repo := iam.NewInMemoryUserRepository()
	service := NewRoleService(repo)

	user := seedUser(t, repo, "alice@example.com")
	_, err := service.AssignRole(ctx, user.ID, RoleMentee)
	require.NoError(t, err)

	_, err = service.AssignRole(ctx, user.ID, RoleMentor)
	assert.ErrorIs(t, err, ErrRoleAlreadyAssigned)

	// The stored record must not have been mutated
	stored, err := service.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleMentee, stored.CustomRole.String)
}

func TestAssignRoleInvalid(t *testing.T) {
	ctx := context.Background()
	repo := iam.NewInMemoryUserRepository()
	service := NewRoleService(repo)

	user := seedUser(t, repo, "alice@example.com")

	_, err := service.AssignRole(ctx, user.ID, "admin")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestAssignRoleUserNotFound(t *testing.T) {
	ctx := context.Background()
	service := NewRoleService(iam.NewInMemoryUserRepository())

	_, err := service.AssignRole(ctx, uuid.New(), RoleMentor)
	assert.ErrorIs(t, err, iam.ErrUserNotFound)

	_, err = service.CanSelectRole(ctx, uuid.New())
	assert.ErrorIs(t, err, iam.ErrUserNotFound)
}

func TestGetRoleStats(t *testing.T) {
	ctx := context.Background()
	repo := iam.NewInMemoryUserRepository()
	service := NewRoleService(repo)

	for i := 0; i < 2; i++ {
		user := seedUser(t, repo, fmt.Sprintf("mentor%d@example.com", i))
		_, err := service.AssignRole(ctx, user.ID, RoleMentor)
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		user := seedUser(t, repo, fmt.Sprintf("mentee%d@example.com", i))
		_, err := service.AssignRole(ctx, user.ID, RoleMentee)
		require.NoError(t, err)
	}
	seedUser(t, repo, "pending@example.com")

	stats, err := service.GetRoleStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, RoleStats{
		Mentors:              2,
		Mentees:              3,
		PendingRoleSelection: 1,
		Total:                6,
	}, stats)
}

func TestGetUsersByRole(t *testing.T) {
	ctx := context.Background()
	repo := iam.NewInMemoryUserRepository()
	service := NewRoleService(repo)

	for i := 0; i < 5; i++ {
		user := seedUser(t, repo, fmt.Sprintf("mentor%d@example.com", i))
		_, err := service.AssignRole(ctx, user.ID, RoleMentor)
		require.NoError(t, err)
	}

	users, err := service.GetUsersByRole(ctx, RoleMentor, iam.FindOptions{})
	require.NoError(t, err)
	assert.Len(t, users, 5)

	page, err := service.GetUsersByRole(ctx, RoleMentor, iam.FindOptions{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	none, err := service.GetUsersByRole(ctx, RoleMentee, iam.FindOptions{})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = service.GetUsersByRole(ctx, "superuser", iam.FindOptions{})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestAssignPermissionRole(t *testing.T) {
	ctx := context.Background()
	repo := iam.NewInMemoryUserRepository()
	service := NewRoleService(repo)

	role := repo.AddRole("authenticated")
	user := seedUser(t, repo, "alice@example.com")

	assigned, err := service.AssignPermissionRole(ctx, user.ID, "authenticated")
	require.NoError(t, err)
	assert.Equal(t, role.ID, assigned.ID)

	stored, err := service.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Role)
	assert.Equal(t, "authenticated", stored.Role.Name)

	_, err = service.AssignPermissionRole(ctx, user.ID, "nonexistent")
	assert.ErrorIs(t, err, iam.ErrRoleNotFound)
}
