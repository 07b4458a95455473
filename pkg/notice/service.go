package notice

import (
	"embed"
	"log/slog"

	"github.com/mentorhub/mentor-idm/pkg/notification"
)

// PasswordResetNotice is sent when a user requests a password reset link.
const PasswordResetNotice notification.NoticeType = "password_reset"

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) string {
	content, err := templateFiles.ReadFile("templates/" + filename)
	if err != nil {
		slog.Error("Error reading template file!", "err", err, "filename", filename)
		return ""
	}
	return string(content)
}

// NewNotificationManager builds a manager with an SMTP email notifier and
// all notice templates registered.
func NewNotificationManager(smtpConfig notification.SMTPConfig) (*notification.NotificationManager, error) {
	notificationManager := notification.NewNotificationManager()

	emailNotifier, err := notification.NewEmailNotifier(smtpConfig)
	if err != nil {
		return nil, err
	}
	notificationManager.RegisterNotifier(notification.EmailSystem, emailNotifier)

	if err := RegisterNotices(notificationManager); err != nil {
		return nil, err
	}
	return notificationManager, nil
}

// RegisterNotices registers the notice templates on an existing manager.
// Split out so tests can pair the templates with a mock notifier.
func RegisterNotices(nm *notification.NotificationManager) error {
	err := nm.RegisterNotification(PasswordResetNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Reset your password",
		Text:    loadTemplate("email/password_reset.tmpl"),
	})
	if err != nil {
		slog.Error("failed to register password reset notification", "error", err)
		return err
	}
	return nil
}
