package iam

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryUserRepository implements UserRepository using in-memory storage
type InMemoryUserRepository struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]User
	roles       map[uuid.UUID]Role
	resetTokens map[string]ResetToken
}

// NewInMemoryUserRepository creates a new in-memory user repository
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users:       make(map[uuid.UUID]User),
		roles:       make(map[uuid.UUID]Role),
		resetTokens: make(map[string]ResetToken),
	}
}

// AddRole seeds a permission role. Intended for wiring and tests.
func (r *InMemoryUserRepository) AddRole(name string) Role {
	r.mu.Lock()
	defer r.mu.Unlock()

	role := Role{ID: uuid.New(), Name: name}
	r.roles[role.ID] = role
	return role
}

// CreateUser creates a new user
func (r *InMemoryUserRepository) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	user := User{
		ID:             uuid.New(),
		Email:          strings.ToLower(arg.Email),
		Name:           arg.Name,
		Password:       arg.Password,
		RoleID:         arg.RoleID,
		CreatedAt:      now,
		LastModifiedAt: now,
	}
	r.users[user.ID] = user
	return user, nil
}

// GetUserWithRole gets a user with the permission role relation populated
func (r *InMemoryUserRepository) GetUserWithRole(ctx context.Context, id uuid.UUID) (UserWithRole, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok || user.DeletedAt != nil {
		return UserWithRole{}, ErrUserNotFound
	}
	return r.withRole(user), nil
}

// FindUserByEmail looks up a user by email, case-insensitively
func (r *InMemoryUserRepository) FindUserByEmail(ctx context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = strings.ToLower(email)
	for _, user := range r.users {
		if user.DeletedAt == nil && user.Email == email {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

// FindUsersByCustomRole returns users whose custom role matches, ordered by
// creation time for stable pagination
func (r *InMemoryUserRepository) FindUsersByCustomRole(ctx context.Context, customRole string, opts FindOptions) ([]UserWithRole, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []UserWithRole
	for _, user := range r.users {
		if user.DeletedAt == nil && user.CustomRole.Valid && user.CustomRole.String == customRole {
			matched = append(matched, r.withRole(user))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if opts.Offset > 0 {
		if int(opts.Offset) >= len(matched) {
			return []UserWithRole{}, nil
		}
		matched = matched[opts.Offset:]
	}
	if opts.Limit > 0 && int(opts.Limit) < len(matched) {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}

// CountUsersByCustomRole counts users with the given custom role
func (r *InMemoryUserRepository) CountUsersByCustomRole(ctx context.Context, customRole string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, user := range r.users {
		if user.DeletedAt == nil && user.CustomRole.Valid && user.CustomRole.String == customRole {
			count++
		}
	}
	return count, nil
}

// CountUsersPendingRole counts users who have not chosen a custom role yet
func (r *InMemoryUserRepository) CountUsersPendingRole(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, user := range r.users {
		if user.DeletedAt == nil && !user.CustomRole.Valid {
			count++
		}
	}
	return count, nil
}

// UpdateUserCustomRole persists the custom role and returns the updated record
func (r *InMemoryUserRepository) UpdateUserCustomRole(ctx context.Context, id uuid.UUID, customRole string) (UserWithRole, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok || user.DeletedAt != nil {
		return UserWithRole{}, ErrUserNotFound
	}

	user.CustomRole.String = customRole
	user.CustomRole.Valid = true
	user.LastModifiedAt = time.Now().UTC()
	r.users[id] = user
	return r.withRole(user), nil
}

// UpdateUserRole updates the permission role relation
func (r *InMemoryUserRepository) UpdateUserRole(ctx context.Context, id uuid.UUID, roleID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok || user.DeletedAt != nil {
		return ErrUserNotFound
	}
	if _, ok := r.roles[roleID]; !ok {
		return ErrRoleNotFound
	}

	user.RoleID = uuid.NullUUID{UUID: roleID, Valid: true}
	user.LastModifiedAt = time.Now().UTC()
	r.users[id] = user
	return nil
}

// UpdateUserPassword replaces the stored password hash
func (r *InMemoryUserRepository) UpdateUserPassword(ctx context.Context, id uuid.UUID, password []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok || user.DeletedAt != nil {
		return ErrUserNotFound
	}

	user.Password = password
	user.LastModifiedAt = time.Now().UTC()
	r.users[id] = user
	return nil
}

// GetRoleByName retrieves a permission role by name
func (r *InMemoryUserRepository) GetRoleByName(ctx context.Context, name string) (Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, role := range r.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return Role{}, ErrRoleNotFound
}

// CreateResetToken stores a reset token
func (r *InMemoryUserRepository) CreateResetToken(ctx context.Context, arg CreateResetTokenParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resetTokens[arg.Token] = ResetToken{
		Token:    arg.Token,
		UserID:   arg.UserID,
		ExpireAt: arg.ExpireAt,
	}
	return nil
}

// GetValidResetToken returns the token if it is unused and unexpired
func (r *InMemoryUserRepository) GetValidResetToken(ctx context.Context, token string) (ResetToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.resetTokens[token]
	if !ok || rt.UsedAt != nil || time.Now().After(rt.ExpireAt) {
		return ResetToken{}, ErrResetTokenInvalid
	}
	return rt, nil
}

// MarkResetTokenUsed marks a reset token as consumed
func (r *InMemoryUserRepository) MarkResetTokenUsed(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.resetTokens[token]
	if !ok {
		return ErrResetTokenInvalid
	}
	now := time.Now().UTC()
	rt.UsedAt = &now
	r.resetTokens[token] = rt
	return nil
}

func (r *InMemoryUserRepository) withRole(user User) UserWithRole {
	uwr := UserWithRole{User: user}
	if user.RoleID.Valid {
		if role, ok := r.roles[user.RoleID.UUID]; ok {
			uwr.Role = &role
		}
	}
	return uwr
}
