package login

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mentorhub/mentor-idm/pkg/iam"
	"github.com/mentorhub/mentor-idm/pkg/notice"
	"github.com/mentorhub/mentor-idm/pkg/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandleTest(t *testing.T) (*iam.InMemoryUserRepository, *notification.MockNotifier, chi.Router) {
	t.Helper()
	repo := iam.NewInMemoryUserRepository()
	mock := notification.NewMockNotifier()

	nm := notification.NewNotificationManager()
	nm.RegisterNotifier(notification.EmailSystem, mock)
	require.NoError(t, notice.RegisterNotices(nm))

	handle := NewHandle(NewLoginService(repo, nm, testResetURL))
	r := chi.NewRouter()
	r.Route("/auth", handle.RegisterRoutes)
	return repo, mock, r
}

func TestPostForgotPassword(t *testing.T) {
	repo, mock, router := setupHandleTest(t)
	_, err := repo.CreateUser(context.Background(), iam.CreateUserParams{Email: "alice@example.com"})
	require.NoError(t, err)

	body := bytes.NewBufferString(`{"email":"alice@example.com"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/forgot-password", body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Len(t, mock.SentNotifications, 1)
}

func TestPostForgotPasswordUnknownEmail(t *testing.T) {
	// Same response for unknown emails, so the endpoint cannot be used to
	// probe which accounts exist.
	_, mock, router := setupHandleTest(t)

	body := bytes.NewBufferString(`{"email":"nobody@example.com"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/forgot-password", body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Empty(t, mock.SentNotifications)
}

func TestPostForgotPasswordMissingEmail(t *testing.T) {
	_, _, router := setupHandleTest(t)

	body := bytes.NewBufferString(`{}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/forgot-password", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
}

func TestPostForgotPasswordMailFailure(t *testing.T) {
	repo, mock, router := setupHandleTest(t)
	_, err := repo.CreateUser(context.Background(), iam.CreateUserParams{Email: "alice@example.com"})
	require.NoError(t, err)
	mock.Err = errors.New("smtp down")

	body := bytes.NewBufferString(`{"email":"alice@example.com"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/forgot-password", body))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestPostPasswordReset(t *testing.T) {
	repo, mock, router := setupHandleTest(t)
	user, err := repo.CreateUser(context.Background(), iam.CreateUserParams{Email: "alice@example.com"})
	require.NoError(t, err)

	body := bytes.NewBufferString(`{"email":"alice@example.com"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/forgot-password", body))
	require.Equal(t, http.StatusOK, rec.Code)

	resetURL := mock.SentNotifications[0].Data.Data["ResetURL"]
	token := strings.TrimPrefix(resetURL, testResetURL+"?code=")

	payload, err := json.Marshal(ResetPasswordRequest{Code: token, Password: "newpass123"})
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/reset-password", bytes.NewReader(payload)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	stored, err := repo.GetUserWithRole(context.Background(), user.ID)
	require.NoError(t, err)
	ok, err := CheckPasswordHash("newpass123", stored.Password)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPostPasswordResetInvalidToken(t *testing.T) {
	_, _, router := setupHandleTest(t)

	body := bytes.NewBufferString(`{"code":"bogus","password":"newpass123"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/reset-password", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOKEN_INVALID")
}

func TestPostPasswordResetMissingFields(t *testing.T) {
	_, _, router := setupHandleTest(t)

	for _, payload := range []string{`{}`, `{"code":"abc"}`, `{"password":"newpass123"}`} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/reset-password", bytes.NewBufferString(payload)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "payload %s", payload)
	}
}
