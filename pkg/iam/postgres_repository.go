package iam

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userWithRoleColumns = `
	u.id, u.email, u.name, u.password, u.custom_role, u.role_id,
	u.created_at, u.last_modified_at, u.deleted_at,
	r.id, r.name`

// PostgresUserRepository implements UserRepository backed by a pgx pool
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgreSQL-based user repository
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{
		pool: pool,
	}
}

// CreateUser creates a new user. Emails are stored lowercase.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password, role_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, name, password, custom_role, role_id,
		          created_at, last_modified_at, deleted_at`,
		strings.ToLower(arg.Email), arg.Name, arg.Password, arg.RoleID)

	var user User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Password,
		&user.CustomRole, &user.RoleID,
		&user.CreatedAt, &user.LastModifiedAt, &user.DeletedAt)
	if err != nil {
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserWithRole gets a user with the permission role relation populated
func (r *PostgresUserRepository) GetUserWithRole(ctx context.Context, id uuid.UUID) (UserWithRole, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+userWithRoleColumns+`
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1 AND u.deleted_at IS NULL`, id)

	uwr, err := scanUserWithRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserWithRole{}, ErrUserNotFound
		}
		return UserWithRole{}, fmt.Errorf("failed to get user: %w", err)
	}
	return uwr, nil
}

// FindUserByEmail looks up a user by lowercase-normalized email
func (r *PostgresUserRepository) FindUserByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, name, password, custom_role, role_id,
		       created_at, last_modified_at, deleted_at
		FROM users
		WHERE email = $1 AND deleted_at IS NULL`, strings.ToLower(email))

	var user User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Password,
		&user.CustomRole, &user.RoleID,
		&user.CreatedAt, &user.LastModifiedAt, &user.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// FindUsersByCustomRole returns users with the given custom role, paginated
func (r *PostgresUserRepository) FindUsersByCustomRole(ctx context.Context, customRole string, opts FindOptions) ([]UserWithRole, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 2147483647
	}

	rows, err := r.pool.Query(ctx, `
		SELECT`+userWithRoleColumns+`
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		WHERE u.custom_role = $1 AND u.deleted_at IS NULL
		ORDER BY u.created_at
		LIMIT $2 OFFSET $3`, customRole, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to find users by custom role: %w", err)
	}
	defer rows.Close()

	users := []UserWithRole{}
	for rows.Next() {
		uwr, err := scanUserWithRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, uwr)
	}
	return users, rows.Err()
}

// CountUsersByCustomRole counts users with the given custom role
func (r *PostgresUserRepository) CountUsersByCustomRole(ctx context.Context, customRole string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM users
		WHERE custom_role = $1 AND deleted_at IS NULL`, customRole).Scan(&count)
	return count, err
}

// CountUsersPendingRole counts users with no custom role yet
func (r *PostgresUserRepository) CountUsersPendingRole(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM users
		WHERE custom_role IS NULL AND deleted_at IS NULL`).Scan(&count)
	return count, err
}

// UpdateUserCustomRole persists the custom role and returns the updated
// record with the role relation populated
func (r *PostgresUserRepository) UpdateUserCustomRole(ctx context.Context, id uuid.UUID, customRole string) (UserWithRole, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET custom_role = $1, last_modified_at = now()
		WHERE id = $2 AND deleted_at IS NULL`, customRole, id)
	if err != nil {
		return UserWithRole{}, fmt.Errorf("failed to update custom role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return UserWithRole{}, ErrUserNotFound
	}
	return r.GetUserWithRole(ctx, id)
}

// UpdateUserRole updates the permission role relation
func (r *PostgresUserRepository) UpdateUserRole(ctx context.Context, id uuid.UUID, roleID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET role_id = $1, last_modified_at = now()
		WHERE id = $2 AND deleted_at IS NULL`, roleID, id)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateUserPassword replaces the stored password hash
func (r *PostgresUserRepository) UpdateUserPassword(ctx context.Context, id uuid.UUID, password []byte) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET password = $1, last_modified_at = now()
		WHERE id = $2 AND deleted_at IS NULL`, password, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetRoleByName retrieves a permission role by name
func (r *PostgresUserRepository) GetRoleByName(ctx context.Context, name string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		SELECT id, name FROM roles WHERE name = $1`, name).Scan(&role.ID, &role.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrRoleNotFound
		}
		return Role{}, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// CreateResetToken stores a reset token
func (r *PostgresUserRepository) CreateResetToken(ctx context.Context, arg CreateResetTokenParams) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO password_reset_tokens (token, user_id, expire_at)
		VALUES ($1, $2, $3)`, arg.Token, arg.UserID, arg.ExpireAt)
	if err != nil {
		return fmt.Errorf("failed to save reset token: %w", err)
	}
	return nil
}

// GetValidResetToken returns the token if it is unused and unexpired
func (r *PostgresUserRepository) GetValidResetToken(ctx context.Context, token string) (ResetToken, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT token, user_id, expire_at, used_at
		FROM password_reset_tokens
		WHERE token = $1 AND used_at IS NULL AND expire_at > now()`, token)

	var rt ResetToken
	err := row.Scan(&rt.Token, &rt.UserID, &rt.ExpireAt, &rt.UsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ResetToken{}, ErrResetTokenInvalid
		}
		return ResetToken{}, fmt.Errorf("failed to look up reset token: %w", err)
	}
	return rt, nil
}

// MarkResetTokenUsed marks a reset token as consumed
func (r *PostgresUserRepository) MarkResetTokenUsed(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE password_reset_tokens SET used_at = now() WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to mark reset token used: %w", err)
	}
	return nil
}

func scanUserWithRole(row pgx.Row) (UserWithRole, error) {
	var (
		uwr      UserWithRole
		roleID   uuid.NullUUID
		roleName *string
	)
	err := row.Scan(&uwr.ID, &uwr.Email, &uwr.Name, &uwr.Password,
		&uwr.CustomRole, &uwr.RoleID,
		&uwr.CreatedAt, &uwr.LastModifiedAt, &uwr.DeletedAt,
		&roleID, &roleName)
	if err != nil {
		return UserWithRole{}, err
	}
	if roleID.Valid && roleName != nil {
		uwr.Role = &Role{ID: roleID.UUID, Name: *roleName}
	}
	return uwr, nil
}
