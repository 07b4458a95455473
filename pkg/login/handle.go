package login

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	idmerrors "github.com/mentorhub/mentor-idm/pkg/errors"
	"github.com/mentorhub/mentor-idm/pkg/iam"
	"golang.org/x/exp/slog"
)

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ForgotPasswordResponse struct {
	Ok bool `json:"ok"`
}

type ResetPasswordRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

type ResetPasswordResponse struct {
	Ok bool `json:"ok"`
}

type Handle struct {
	loginService *LoginService
}

func NewHandle(loginService *LoginService) Handle {
	return Handle{
		loginService: loginService,
	}
}

// RegisterRoutes mounts the password reset endpoints. These are public:
// the caller proves identity via the mailed token, not a session.
func (h Handle) RegisterRoutes(r chi.Router) {
	r.Post("/forgot-password", h.PostForgotPassword)
	r.Post("/reset-password", h.PostPasswordReset)
}

// Initiate a password reset
// (POST /auth/forgot-password)
func (h Handle) PostForgotPassword(w http.ResponseWriter, r *http.Request) {
	data := ForgotPasswordRequest{}
	if err := render.DecodeJSON(r.Body, &data); err != nil || data.Email == "" {
		idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInvalidInput, "Email is required"))
		return
	}

	if err := h.loginService.InitPasswordReset(r.Context(), data.Email); err != nil {
		slog.Error("Failed to init password reset", "err", err)
		idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInternal, "Failed to send reset password email"))
		return
	}

	// The response does not reveal whether the email exists
	render.JSON(w, r, ForgotPasswordResponse{Ok: true})
}

// Complete a password reset using the mailed token
// (POST /auth/reset-password)
func (h Handle) PostPasswordReset(w http.ResponseWriter, r *http.Request) {
	data := ResetPasswordRequest{}
	if err := render.DecodeJSON(r.Body, &data); err != nil || data.Code == "" || data.Password == "" {
		idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInvalidInput, "Code and password are required"))
		return
	}

	err := h.loginService.ResetPassword(r.Context(), data.Code, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, iam.ErrResetTokenInvalid):
			idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeTokenInvalid, "Invalid or expired reset token"))
		case errors.Is(err, ErrPasswordTooShort):
			idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInvalidInput, "Password must be at least 6 characters"))
		default:
			slog.Error("Failed to reset password", "err", err)
			idmerrors.RenderJSON(w, idmerrors.New(idmerrors.ErrCodeInternal, "Failed to reset password"))
		}
		return
	}

	render.JSON(w, r, ResetPasswordResponse{Ok: true})
}
