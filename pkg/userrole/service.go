package userrole

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mentorhub/mentor-idm/pkg/iam"
	"golang.org/x/exp/slog"
)

// The closed set of custom roles a user may select.
const (
	RoleMentor = "mentor"
	RoleMentee = "mentee"
)

var (
	ErrInvalidRole         = errors.New(`role must be either "mentor" or "mentee"`)
	ErrRoleAlreadyAssigned = errors.New("user already has a role assigned")
)

// IsValidRole reports whether candidate is exactly one of the allowed custom
// roles. Case-sensitive, no trimming.
func IsValidRole(candidate string) bool {
	return candidate == RoleMentor || candidate == RoleMentee
}

// RoleStats aggregates user counts per custom role. The three underlying
// counts are independent queries with no transactional guarantee, so totals
// may be momentarily inconsistent under concurrent writes.
type RoleStats struct {
	Mentors              int64 `json:"mentors"`
	Mentees              int64 `json:"mentees"`
	PendingRoleSelection int64 `json:"pendingRoleSelection"`
	Total                int64 `json:"total"`
}

// RoleService provides custom-role selection and permission-role assignment
// over the user entity store.
type RoleService struct {
	repo iam.UserRepository
}

// NewRoleService creates a new role service
func NewRoleService(repo iam.UserRepository) *RoleService {
	return &RoleService{
		repo: repo,
	}
}

// GetUser fetches a user with the permission role relation populated.
func (s *RoleService) GetUser(ctx context.Context, userID uuid.UUID) (iam.UserWithRole, error) {
	return s.repo.GetUserWithRole(ctx, userID)
}

// CanSelectRole reports whether the user may still select a custom role.
// Returns iam.ErrUserNotFound if the user does not exist.
func (s *RoleService) CanSelectRole(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := s.repo.GetUserWithRole(ctx, userID)
	if err != nil {
		return false, err
	}
	return !user.CustomRole.Valid, nil
}

// AssignRole persists the custom role for a user who has none yet and
// returns the updated record. The read-then-write sequence is not atomic:
// two concurrent assignments for the same user are last-write-wins.
func (s *RoleService) AssignRole(ctx context.Context, userID uuid.UUID, role string) (iam.UserWithRole, error) {
	if !IsValidRole(role) {
		return iam.UserWithRole{}, ErrInvalidRole
	}

	user, err := s.repo.GetUserWithRole(ctx, userID)
	if err != nil {
		return iam.UserWithRole{}, err
	}
	if user.CustomRole.Valid {
		return iam.UserWithRole{}, ErrRoleAlreadyAssigned
	}

	updated, err := s.repo.UpdateUserCustomRole(ctx, userID, role)
	if err != nil {
		slog.Error("Failed updating custom role", "userId", userID, "role", role, "err", err)
		return iam.UserWithRole{}, fmt.Errorf("failed to assign role: %w", err)
	}

	slog.Info("Custom role assigned", "userId", userID, "role", role)
	return updated, nil
}

// GetUsersByRole returns users with the given custom role, forwarding
// caller-supplied query options unmodified.
func (s *RoleService) GetUsersByRole(ctx context.Context, role string, opts iam.FindOptions) ([]iam.UserWithRole, error) {
	if !IsValidRole(role) {
		return nil, ErrInvalidRole
	}
	return s.repo.FindUsersByCustomRole(ctx, role, opts)
}

// GetRoleStats issues three independent count queries and sums them.
func (s *RoleService) GetRoleStats(ctx context.Context) (RoleStats, error) {
	mentors, err := s.repo.CountUsersByCustomRole(ctx, RoleMentor)
	if err != nil {
		return RoleStats{}, fmt.Errorf("failed counting mentors: %w", err)
	}
	mentees, err := s.repo.CountUsersByCustomRole(ctx, RoleMentee)
	if err != nil {
		return RoleStats{}, fmt.Errorf("failed counting mentees: %w", err)
	}
	pending, err := s.repo.CountUsersPendingRole(ctx)
	if err != nil {
		return RoleStats{}, fmt.Errorf("failed counting pending users: %w", err)
	}

	return RoleStats{
		Mentors:              mentors,
		Mentees:              mentees,
		PendingRoleSelection: pending,
		Total:                mentors + mentees + pending,
	}, nil
}

// AssignPermissionRole updates the user's framework permission role, looked
// up by name. Distinct from the mentor/mentee custom role.
func (s *RoleService) AssignPermissionRole(ctx context.Context, userID uuid.UUID, roleName string) (iam.Role, error) {
	role, err := s.repo.GetRoleByName(ctx, roleName)
	if err != nil {
		return iam.Role{}, err
	}

	if err := s.repo.UpdateUserRole(ctx, userID, role.ID); err != nil {
		slog.Error("Failed updating permission role", "userId", userID, "role", roleName, "err", err)
		return iam.Role{}, fmt.Errorf("failed to assign permission role: %w", err)
	}
	return role, nil
}
