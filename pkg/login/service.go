package login

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mentorhub/mentor-idm/pkg/iam"
	"github.com/mentorhub/mentor-idm/pkg/notice"
	"github.com/mentorhub/mentor-idm/pkg/notification"
	"github.com/mentorhub/mentor-idm/pkg/utils"
	"golang.org/x/exp/slog"
)

// ResetTokenExpiry is how long a password reset link stays valid.
const ResetTokenExpiry = 24 * time.Hour

// LoginService handles password reset initiation and confirmation.
type LoginService struct {
	repo                iam.UserRepository
	notificationManager *notification.NotificationManager
	resetURL            string
}

func NewLoginService(repo iam.UserRepository, notificationManager *notification.NotificationManager, resetURL string) *LoginService {
	return &LoginService{
		repo:                repo,
		notificationManager: notificationManager,
		resetURL:            resetURL,
	}
}

// InitPasswordReset issues a reset token for the account with the given
// email and mails the reset link. An unknown email is not an error: the
// request silently succeeds so callers cannot probe which accounts exist.
// A mail delivery failure is returned.
func (s *LoginService) InitPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.FindUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		// Only a missing account is hidden from the caller; a store
		// failure must not masquerade as success.
		if errors.Is(err, iam.ErrUserNotFound) {
			slog.Info("Password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to look up user by email: %w", err)
	}

	token := utils.GenerateRandomString(32)
	err = s.repo.CreateResetToken(ctx, iam.CreateResetTokenParams{
		Token:    token,
		UserID:   user.ID,
		ExpireAt: time.Now().UTC().Add(ResetTokenExpiry),
	})
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	err = s.notificationManager.Send(notice.PasswordResetNotice, notification.NotificationData{
		To: user.Email,
		Data: map[string]string{
			"ResetURL": fmt.Sprintf("%s?code=%s", s.resetURL, token),
		},
	})
	if err != nil {
		slog.Error("Failed sending password reset email", "userId", user.ID, "err", err)
		return fmt.Errorf("failed to send reset password email: %w", err)
	}

	slog.Info("Password reset initiated", "userId", user.ID)
	return nil
}

// ResetPassword sets a new password for the account the token belongs to
// and consumes the token. Returns iam.ErrResetTokenInvalid for unknown,
// expired, or already used tokens.
func (s *LoginService) ResetPassword(ctx context.Context, token, newPassword string) error {
	resetToken, err := s.repo.GetValidResetToken(ctx, token)
	if err != nil {
		return err
	}

	hashed, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateUserPassword(ctx, resetToken.UserID, hashed); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.repo.MarkResetTokenUsed(ctx, token); err != nil {
		return fmt.Errorf("failed to mark reset token used: %w", err)
	}

	slog.Info("Password reset completed", "userId", resetToken.UserID)
	return nil
}

// VerifyPassword checks a plaintext password against a user's stored hash.
func (s *LoginService) VerifyPassword(ctx context.Context, email, password string) (iam.User, bool, error) {
	user, err := s.repo.FindUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return iam.User{}, false, err
	}
	ok, err := CheckPasswordHash(password, user.Password)
	if err != nil {
		return iam.User{}, false, err
	}
	return user, ok, nil
}
