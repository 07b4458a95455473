package client

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/jwtauth/v5"
	"github.com/mentorhub/mentor-idm/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func authChain(ja *jwtauth.JWTAuth, final http.Handler) http.Handler {
	return Verifier(ja)(jwtauth.Authenticator(ja)(AuthUserMiddleware(final)))
}

func TestAuthUserMiddleware(t *testing.T) {
	jwtSvc := auth.NewJwtServiceOptions(testSecret)
	token, err := jwtSvc.CreateAccessToken(auth.TokenUser{
		UserID:     "b7f9b6f4-6f3a-4fd0-9d1e-2ba0d38a2fbb",
		Email:      "alice@example.com",
		CustomRole: "mentor",
	})
	require.NoError(t, err)

	var captured *AuthUser
	handler := authChain(jwtauth.New("HS256", []byte(testSecret), nil),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetAuthUser(r)
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token.Token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "b7f9b6f4-6f3a-4fd0-9d1e-2ba0d38a2fbb", captured.UserId)
	assert.Equal(t, "alice@example.com", captured.Email)
	assert.Equal(t, "mentor", captured.CustomRole)
	assert.Equal(t, captured.UserId, captured.UserUuid.String())
}

func TestAuthUserMiddlewareFromCookie(t *testing.T) {
	jwtSvc := auth.NewJwtServiceOptions(testSecret)
	token, err := jwtSvc.CreateAccessToken(auth.TokenUser{
		UserID: "b7f9b6f4-6f3a-4fd0-9d1e-2ba0d38a2fbb",
	})
	require.NoError(t, err)

	handler := authChain(jwtauth.New("HS256", []byte(testSecret), nil),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessTokenName, Value: token.Token})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthUserMiddlewareMissingToken(t *testing.T) {
	handler := authChain(jwtauth.New("HS256", []byte(testSecret), nil),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be reached")
		}))

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthWithoutUser(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
