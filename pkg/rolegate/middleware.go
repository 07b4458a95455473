package rolegate

import (
	"errors"
	"net/http"

	"github.com/mentorhub/mentor-idm/pkg/client"
	idmerrors "github.com/mentorhub/mentor-idm/pkg/errors"
	"github.com/mentorhub/mentor-idm/pkg/iam"
	"github.com/mentorhub/mentor-idm/pkg/userrole"
	"golang.org/x/exp/slog"
)

// SelectRolePath is where clients are redirected while their role is unset.
const SelectRolePath = "/select-role"

// DefaultAllowedPaths are reachable without a selected role, so a fresh user
// can pick one, inspect their profile, or log out. Matched exactly, no
// prefixes or patterns.
var DefaultAllowedPaths = []string{
	"/auth/select-role",
	"/auth/me",
	"/auth/logout",
}

// Middleware blocks authenticated users who have not selected a custom role
// yet, except on the allow-listed paths. The current role is read from the
// store rather than trusted from token claims, so a selection takes effect
// immediately and a stale token cannot bypass the gate.
func Middleware(roleService *userrole.RoleService, allowedPaths []string) func(http.Handler) http.Handler {
	if allowedPaths == nil {
		allowedPaths = DefaultAllowedPaths
	}
	allowed := make(map[string]struct{}, len(allowedPaths))
	for _, p := range allowedPaths {
		allowed[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authUser := client.GetAuthUser(r)
			if authUser == nil {
				idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeUnauthorized, "Authentication required"))
				return
			}

			if _, ok := allowed[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := roleService.GetUser(r.Context(), authUser.UserUuid)
			if err != nil {
				if errors.Is(err, iam.ErrUserNotFound) {
					idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeUserNotFound, "User not found"))
					return
				}
				slog.Error("Role gate failed loading user", "userId", authUser.UserId, "err", err)
				idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInternal, "Internal server error"))
				return
			}

			if !user.CustomRole.Valid {
				idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeRoleSelectionRequired,
					"You must select a role before accessing this resource").
					WithDetail("redirectTo", SelectRolePath))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole restricts a route subtree to users holding the expected custom
// role. Meant to run behind Middleware, which guarantees a role is set.
func RequireRole(roleService *userrole.RoleService, expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authUser := client.GetAuthUser(r)
			if authUser == nil {
				idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeUnauthorized, "Authentication required"))
				return
			}

			user, err := roleService.GetUser(r.Context(), authUser.UserUuid)
			if err != nil {
				if errors.Is(err, iam.ErrUserNotFound) {
					idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeUserNotFound, "User not found"))
					return
				}
				slog.Error("Role check failed loading user", "userId", authUser.UserId, "err", err)
				idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInternal, "Internal server error"))
				return
			}

			if user.CustomRole.String != expected {
				idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInsufficientRole,
					"You do not have the required role to access this resource").
					WithDetail("requiredRole", expected).
					WithDetail("userRole", user.CustomRole.String))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
