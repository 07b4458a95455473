package login

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mentorhub/mentor-idm/pkg/iam"
	"github.com/mentorhub/mentor-idm/pkg/notice"
	"github.com/mentorhub/mentor-idm/pkg/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testResetURL = "http://localhost:3000/auth/reset-password"

func setupLoginTest(t *testing.T) (*iam.InMemoryUserRepository, *notification.MockNotifier, *LoginService) {
	t.Helper()
	repo := iam.NewInMemoryUserRepository()
	mock := notification.NewMockNotifier()

	nm := notification.NewNotificationManager()
	nm.RegisterNotifier(notification.EmailSystem, mock)
	require.NoError(t, notice.RegisterNotices(nm))

	return repo, mock, NewLoginService(repo, nm, testResetURL)
}

func TestHashAndCheckPassword(t *testing.T) {
	hashed, err := HashPassword("pass123")
	require.NoError(t, err)
	assert.NotEqual(t, "pass123", string(hashed))

	ok, err := CheckPasswordHash("pass123", hashed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPasswordHash("wrong", hashed)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = HashPassword("abc")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestInitPasswordReset(t *testing.T) {
	ctx := context.Background()
	repo, mock, service := setupLoginTest(t)

	user, err := repo.CreateUser(ctx, iam.CreateUserParams{Email: "alice@example.com"})
	require.NoError(t, err)

	require.NoError(t, service.InitPasswordReset(ctx, "alice@example.com"))

	require.Len(t, mock.SentNotifications, 1)
	sent := mock.SentNotifications[0]
	assert.Equal(t, notice.PasswordResetNotice, sent.NoticeType)
	assert.Equal(t, user.Email, sent.Data.To)

	resetURL := sent.Data.Data["ResetURL"]
	require.True(t, strings.HasPrefix(resetURL, testResetURL+"?code="), "unexpected reset URL %q", resetURL)

	// The mailed token must be the one persisted
	token := strings.TrimPrefix(resetURL, testResetURL+"?code=")
	stored, err := repo.GetValidResetToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.UserID)
}

func TestInitPasswordResetUnknownEmail(t *testing.T) {
	ctx := context.Background()
	_, mock, service := setupLoginTest(t)

	// No error and no mail for an unknown address
	require.NoError(t, service.InitPasswordReset(ctx, "nobody@example.com"))
	assert.Empty(t, mock.SentNotifications)
}

// brokenStoreRepo simulates an unreachable entity store.
type brokenStoreRepo struct {
	*iam.InMemoryUserRepository
	err error
}

func (r *brokenStoreRepo) FindUserByEmail(ctx context.Context, email string) (iam.User, error) {
	return iam.User{}, r.err
}

func TestInitPasswordResetStoreFailure(t *testing.T) {
	ctx := context.Background()
	mock := notification.NewMockNotifier()

	nm := notification.NewNotificationManager()
	nm.RegisterNotifier(notification.EmailSystem, mock)
	require.NoError(t, notice.RegisterNotices(nm))

	storeErr := errors.New("connection refused")
	repo := &brokenStoreRepo{InMemoryUserRepository: iam.NewInMemoryUserRepository(), err: storeErr}
	service := NewLoginService(repo, nm, testResetURL)

	// A store outage is not an unknown email: it must surface to the
	// caller, not turn into a silent success.
	err := service.InitPasswordReset(ctx, "alice@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.Empty(t, mock.SentNotifications)
}

func TestInitPasswordResetMailFailure(t *testing.T) {
	ctx := context.Background()
	repo, mock, service := setupLoginTest(t)

	_, err := repo.CreateUser(ctx, iam.CreateUserParams{Email: "alice@example.com"})
	require.NoError(t, err)

	mock.Err = errors.New("smtp down")
	err = service.InitPasswordReset(ctx, "alice@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, mock.Err)
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	repo, mock, service := setupLoginTest(t)

	user, err := repo.CreateUser(ctx, iam.CreateUserParams{Email: "alice@example.com"})
	require.NoError(t, err)
	require.NoError(t, service.InitPasswordReset(ctx, "alice@example.com"))

	resetURL := mock.SentNotifications[0].Data.Data["ResetURL"]
	token := strings.TrimPrefix(resetURL, testResetURL+"?code=")

	require.NoError(t, service.ResetPassword(ctx, token, "newpass123"))

	stored, err := repo.GetUserWithRole(ctx, user.ID)
	require.NoError(t, err)
	ok, err := CheckPasswordHash("newpass123", stored.Password)
	require.NoError(t, err)
	assert.True(t, ok)

	// A consumed token cannot be replayed
	err = service.ResetPassword(ctx, token, "anotherpass")
	assert.ErrorIs(t, err, iam.ErrResetTokenInvalid)
}

func TestResetPasswordInvalidToken(t *testing.T) {
	ctx := context.Background()
	_, _, service := setupLoginTest(t)

	err := service.ResetPassword(ctx, "bogus-token", "newpass123")
	assert.ErrorIs(t, err, iam.ErrResetTokenInvalid)
}

func TestVerifyPassword(t *testing.T) {
	ctx := context.Background()
	repo, _, service := setupLoginTest(t)

	hashed, err := HashPassword("pass123")
	require.NoError(t, err)
	_, err = repo.CreateUser(ctx, iam.CreateUserParams{Email: "alice@example.com", Password: hashed})
	require.NoError(t, err)

	_, ok, err := service.VerifyPassword(ctx, "alice@example.com", "pass123")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = service.VerifyPassword(ctx, "alice@example.com", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = service.VerifyPassword(ctx, "nobody@example.com", "pass123")
	assert.ErrorIs(t, err, iam.ErrUserNotFound)
}
