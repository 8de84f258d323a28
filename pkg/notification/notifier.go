package notification

// NotificationSystem represents a delivery channel (e.g. email).
type NotificationSystem string

// NoticeType represents a kind of notice sent to an account holder.
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"

	// NewLocationCodeNotice carries the step-up verification code sent when a
	// login arrives from a new IP.
	NewLocationCodeNotice NoticeType = "new_location_code"
	// PasswordResetCodeNotice carries a password reset code.
	PasswordResetCodeNotice NoticeType = "password_reset_code"
)

// NotificationData is the payload handed to a notifier.
type NotificationData struct {
	To   string            // Recipient identifier (e.g. email address)
	Data map[string]string // Template data (e.g. "Code", "ExpiresIn")
}

// NoticeTemplate holds the rendered-from templates for one notice.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// Notifier sends a notice over one delivery channel.
type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
