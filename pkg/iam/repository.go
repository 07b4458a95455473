package iam

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrRoleNotFound      = errors.New("role not found")
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")
)

// FindOptions carries caller-supplied query options, forwarded unmodified to
// the store. Zero Limit means no limit.
type FindOptions struct {
	Limit  int32
	Offset int32
}

// UserRepository defines the entity-store operations over user and role
// records. All queries exclude soft-deleted users.
type UserRepository interface {
	// User operations
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	GetUserWithRole(ctx context.Context, id uuid.UUID) (UserWithRole, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	FindUsersByCustomRole(ctx context.Context, customRole string, opts FindOptions) ([]UserWithRole, error)
	CountUsersByCustomRole(ctx context.Context, customRole string) (int64, error)
	CountUsersPendingRole(ctx context.Context) (int64, error)
	UpdateUserCustomRole(ctx context.Context, id uuid.UUID, customRole string) (UserWithRole, error)
	UpdateUserRole(ctx context.Context, id uuid.UUID, roleID uuid.UUID) error
	UpdateUserPassword(ctx context.Context, id uuid.UUID, password []byte) error

	// Role operations
	GetRoleByName(ctx context.Context, name string) (Role, error)

	// Reset token operations
	CreateResetToken(ctx context.Context, arg CreateResetTokenParams) error
	GetValidResetToken(ctx context.Context, token string) (ResetToken, error)
	MarkResetTokenUsed(ctx context.Context, token string) error
}
