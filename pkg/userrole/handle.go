package userrole

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mentorhub/mentor-idm/auth"
	"github.com/mentorhub/mentor-idm/pkg/client"
	idmerrors "github.com/mentorhub/mentor-idm/pkg/errors"
	"github.com/mentorhub/mentor-idm/pkg/iam"
	"golang.org/x/exp/slog"
)

type SelectRoleRequest struct {
	Role string `json:"role"`
}

type SelectRoleResponse struct {
	Jwt     string       `json:"jwt"`
	User    iam.SafeUser `json:"user"`
	Message string       `json:"message"`
}

type ProfileResponse struct {
	User iam.SafeUser `json:"user"`
}

type AssignRoleRequest struct {
	RoleName string `json:"roleName"`
}

type AssignRoleResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type UsersResponse struct {
	Users []iam.SafeUser `json:"users"`
}

type Handle struct {
	roleService *RoleService
	jwtService  *auth.Jwt
}

func NewHandle(roleService *RoleService, jwtService *auth.Jwt) Handle {
	return Handle{
		roleService: roleService,
		jwtService:  jwtService,
	}
}

// RegisterAuthRoutes mounts the role-selection auth endpoints
func (h Handle) RegisterAuthRoutes(r chi.Router) {
	r.Post("/select-role", h.PostSelectRole)
	r.Get("/me", h.GetProfile)
	r.Post("/logout", h.PostLogout)
}

// RegisterRoleSelectionRoutes mounts the role-selection API endpoints
func (h Handle) RegisterRoleSelectionRoutes(r chi.Router) {
	r.Post("/assign-role", h.PostAssignRole)
	r.Get("/users", h.GetUsers)
	r.Get("/stats", h.GetStats)
}

// Select a custom role for the authenticated user
// (POST /auth/select-role)
func (h Handle) PostSelectRole(w http.ResponseWriter, r *http.Request) {
	authUser := client.GetAuthUser(r)
	if authUser == nil {
		idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeUnauthorized, "You must be authenticated to select a role"))
		return
	}

	data := SelectRoleRequest{}
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInvalidInput, "Unable to parse request body"))
		return
	}

	if !IsValidRole(data.Role) {
		idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInvalidRole, `Role must be either "mentor" or "mentee"`))
		return
	}

	updated, err := h.roleService.AssignRole(r.Context(), authUser.UserUuid, data.Role)
	if err != nil {
		switch {
		case errors.Is(err, iam.ErrUserNotFound):
			idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeUserNotFound, "User not found"))
		case errors.Is(err, ErrRoleAlreadyAssigned):
			idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeRoleAlreadyAssigned, "User already has a role assigned"))
		default:
			slog.Error("Error in selectRole", "userId", authUser.UserId, "err", err)
			idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInternal, "Internal server error"))
		}
		return
	}

	// Token is issued only after the persistence step has succeeded, so the
	// fresh claims always reflect the stored role.
	tokenUser := auth.TokenUser{
		UserID:     updated.ID.String(),
		Email:      updated.Email,
		CustomRole: updated.CustomRole.String,
	}
	accessToken, err := h.jwtService.CreateAccessToken(tokenUser)
	if err != nil {
		slog.Error("Failed to create access token", "userId", authUser.UserId, "err", err)
		idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInternal, "Internal server error"))
		return
	}
	refreshToken, err := h.jwtService.CreateRefreshToken(tokenUser)
	if err != nil {
		slog.Error("Failed to create refresh token", "userId", authUser.UserId, "err", err)
		idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInternal, "Internal server error"))
		return
	}

	h.jwtService.SetTokenCookie(w, auth.AccessTokenName, accessToken.Token, accessToken.Expiry)
	h.jwtService.SetTokenCookie(w, auth.RefreshTokenName, refreshToken.Token, refreshToken.Expiry)

	render.JSON(w, r, SelectRoleResponse{
		Jwt:     accessToken.Token,
		User:    iam.Sanitize(updated),
		Message: fmt.Sprintf("Role %q selected successfully", data.Role),
	})
}

// Get the authenticated user's profile
// (GET /auth/me)
func (h Handle) GetProfile(w http.ResponseWriter, r *http.Request) {
	authUser := client.GetAuthUser(r)
	if authUser == nil {
		idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeUnauthorized, "You must be authenticated to view profile"))
		return
	}

	user, err := h.roleService.GetUser(r.Context(), authUser.UserUuid)
	if err != nil {
		if errors.Is(err, iam.ErrUserNotFound) {
			idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeUserNotFound, "User not found"))
			return
		}
		slog.Error("Error in getProfile", "userId", authUser.UserId, "err", err)
		idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInternal, "Internal server error"))
		return
	}

	render.JSON(w, r, ProfileResponse{User: iam.Sanitize(user)})
}

// Log out the authenticated user by expiring the session cookies
// (POST /auth/logout)
func (h Handle) PostLogout(w http.ResponseWriter, r *http.Request) {
	authUser := client.GetAuthUser(r)
	if authUser == nil {
		idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeUnauthorized, "You must be authenticated to log out"))
		return
	}

	h.jwtService.ClearTokenCookies(w)
	render.JSON(w, r, map[string]string{"message": "Logged out successfully"})
}

// Assign a framework permission role to the authenticated user
// (POST /role-selection/assign-role)
func (h Handle) PostAssignRole(w http.ResponseWriter, r *http.Request) {
	authUser := client.GetAuthUser(r)
	if authUser == nil {
		idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeUnauthorized, "User not authenticated"))
		return
	}

	data := AssignRoleRequest{}
	if err := render.DecodeJSON(r.Body, &data); err != nil || data.RoleName == "" {
		idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInvalidInput, "Role name is required"))
		return
	}

	role, err := h.roleService.AssignPermissionRole(r.Context(), authUser.UserUuid, data.RoleName)
	if err != nil {
		switch {
		case errors.Is(err, iam.ErrRoleNotFound):
			idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeRoleNotFound, "Role not found"))
		case errors.Is(err, iam.ErrUserNotFound):
			idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeUserNotFound, "User not found"))
		default:
			slog.Error("An error occurred while assigning the role", "userId", authUser.UserId, "err", err)
			idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInternal, "An error occurred while assigning the role"))
		}
		return
	}

	render.JSON(w, r, AssignRoleResponse{
		Success: true,
		Message: fmt.Sprintf("User role successfully updated to %s.", role.Name),
	})
}

// List users filtered by custom role
// (GET /role-selection/users)
func (h Handle) GetUsers(w http.ResponseWriter, r *http.Request) {
	authUser := client.GetAuthUser(r)
	if authUser == nil {
		idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeUnauthorized, "User not authenticated"))
		return
	}

	role := r.URL.Query().Get("role")

	opts := iam.FindOptions{}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.ParseInt(limit, 10, 32)
		if err != nil {
			idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInvalidInput, "limit must be an integer"))
			return
		}
		opts.Limit = int32(n)
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		n, err := strconv.ParseInt(offset, 10, 32)
		if err != nil {
			idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInvalidInput, "offset must be an integer"))
			return
		}
		opts.Offset = int32(n)
	}

	users, err := h.roleService.GetUsersByRole(r.Context(), role, opts)
	if err != nil {
		if errors.Is(err, ErrInvalidRole) {
			idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInvalidRole, "Invalid role specified"))
			return
		}
		slog.Error("Failed getting users by role", "role", role, "err", err)
		idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInternal, "Internal server error"))
		return
	}

	response := UsersResponse{Users: make([]iam.SafeUser, 0, len(users))}
	for _, user := range users {
		response.Users = append(response.Users, iam.Sanitize(user))
	}
	render.JSON(w, r, response)
}

// Aggregate user counts per custom role
// (GET /role-selection/stats)
func (h Handle) GetStats(w http.ResponseWriter, r *http.Request) {
	authUser := client.GetAuthUser(r)
	if authUser == nil {
		idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeUnauthorized, "User not authenticated"))
		return
	}

	stats, err := h.roleService.GetRoleStats(r.Context())
	if err != nil {
		slog.Error("Failed getting role stats", "err", err)
		idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInternal, "Internal server error"))
		return
	}

	render.JSON(w, r, stats)
}
