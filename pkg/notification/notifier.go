package notification

// NotificationSystem represents a delivery channel (e.g., email, SMS).
type NotificationSystem string

// NoticeType represents a kind of notice (e.g., "password_reset").
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"
	SMSSystem   NotificationSystem = "sms"
)

// NotificationData carries the per-send values: the recipient and the
// variables the template is rendered with.
type NotificationData struct {
	To   string            // Recipient identifier (e.g., email address, phone number)
	Data map[string]string // Template variables
}

// NoticeTemplate holds the renderable content for a notice. Subject is
// required, and at least one of Text or Html must be set.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
