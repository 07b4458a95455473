package iam

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/mentorhub/mentor-idm/pkg/utils"
)

// Role is the framework permission role, distinct from the mentor/mentee
// custom role a user picks after signup.
type Role struct {
	ID   uuid.UUID
	Name string
}

// User is the identity record owned by this service. Password holds the
// bcrypt hash and must never cross the response boundary unsanitized.
type User struct {
	ID             uuid.UUID
	Email          string
	Name           sql.NullString
	Password       []byte
	CustomRole     sql.NullString
	RoleID         uuid.NullUUID
	CreatedAt      time.Time
	LastModifiedAt time.Time
	DeletedAt      *time.Time
}

// UserWithRole is a user with the permission role relation populated.
type UserWithRole struct {
	User
	Role *Role
}

// ResetToken is a single-use password reset credential.
type ResetToken struct {
	Token    string
	UserID   uuid.UUID
	ExpireAt time.Time
	UsedAt   *time.Time
}

type CreateUserParams struct {
	Email    string
	Name     sql.NullString
	Password []byte
	RoleID   uuid.NullUUID
}

type CreateResetTokenParams struct {
	Token    string
	UserID   uuid.UUID
	ExpireAt time.Time
}

// SafeRole is the API-facing shape of a permission role.
type SafeRole struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SafeUser is the sanitized API-facing shape of a user: credential and
// internal fields are stripped.
type SafeUser struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       *string   `json:"name,omitempty"`
	CustomRole *string   `json:"customRole,omitempty"`
	Role       *SafeRole `json:"role,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Sanitize strips sensitive and internal fields from a user record before it
// crosses the API boundary.
func Sanitize(u UserWithRole) SafeUser {
	safe := SafeUser{}
	copier.Copy(&safe, u.User)
	safe.ID = u.ID.String()
	safe.Name = utils.ToStringPtr(u.Name)
	safe.CustomRole = utils.ToStringPtr(u.CustomRole)
	if u.Role != nil {
		safe.Role = &SafeRole{
			ID:   u.Role.ID.String(),
			Name: u.Role.Name,
		}
	}
	return safe
}
