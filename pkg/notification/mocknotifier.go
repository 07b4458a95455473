package notification

// SentNotification records one Send call made against a MockNotifier.
type SentNotification struct {
	NoticeType NoticeType
	Data       NotificationData
	Template   NoticeTemplate
}

type MockNotifier struct {
	SentNotifications []SentNotification
	Err               error // returned by Send when set
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	if m.Err != nil {
		return m.Err
	}
	m.SentNotifications = append(m.SentNotifications, SentNotification{
		NoticeType: noticeType,
		Data:       notification,
		Template:   template,
	})
	return nil
}
