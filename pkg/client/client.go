package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/mentorhub/mentor-idm/auth"
)

// AuthUser is the authenticated identity resolved from session-token claims.
type AuthUser struct {
	UserId     string `json:"user_id,omitempty"`
	Email      string `json:"email,omitempty"`
	CustomRole string `json:"custom_role,omitempty"`
	// UserUuid is UserId parsed, convenient for store lookups
	UserUuid uuid.UUID
}

func (u AuthUser) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user", u.UserId),
		slog.String("custom_role", u.CustomRole),
	)
}

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "mentor-idm context value " + k.name
}

var AuthUserKey = &contextKey{"AuthUser"}

// GetAuthUser returns the authenticated user from the request context, or
// nil when the request is unauthenticated.
func GetAuthUser(r *http.Request) *AuthUser {
	authUser, ok := r.Context().Value(AuthUserKey).(*AuthUser)
	if !ok {
		return nil
	}
	return authUser
}

func LoadFromMap[T any](m map[string]interface{}, c *T) error {
	data, err := json.Marshal(m)
	if err == nil {
		err = json.Unmarshal(data, c)
	}
	return err
}

// AuthUserMiddleware resolves the AuthUser from verified JWT claims and adds
// it to the request context. Must run after the jwtauth verifier.
func AuthUserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("missing or invalid JWT: %v", err), http.StatusUnauthorized)
			return
		}
		if claims == nil {
			http.Error(w, "missing JWT claims", http.StatusUnauthorized)
			return
		}

		authUser := new(AuthUser)

		if customClaimsRaw, exists := claims["custom_claims"]; exists {
			customClaims, ok := customClaimsRaw.(map[string]interface{})
			if !ok {
				http.Error(w, "invalid custom claims format", http.StatusUnauthorized)
				return
			}
			if err := LoadFromMap(customClaims, authUser); err != nil {
				slog.Error("failed to parse custom claims", "error", err)
				http.Error(w, "invalid custom claims data", http.StatusUnauthorized)
				return
			}
		}

		if authUser.UserId == "" {
			http.Error(w, "missing user ID in token", http.StatusUnauthorized)
			return
		}

		userUUID, err := uuid.Parse(authUser.UserId)
		if err != nil {
			slog.Warn("failed to parse user ID as UUID", "userId", authUser.UserId, "error", err)
			http.Error(w, "invalid user ID in token", http.StatusUnauthorized)
			return
		}
		authUser.UserUuid = userUUID

		slog.Debug("authenticated user", "userId", authUser.UserId, "customRole", authUser.CustomRole)

		ctx := context.WithValue(r.Context(), AuthUserKey, authUser)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Verifier verifies session tokens from the Authorization header or the
// access-token cookie.
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return jwtauth.Verify(ja, jwtauth.TokenFromHeader, TokenFromCookie)(next)
	}
}

func TokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(auth.AccessTokenName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
