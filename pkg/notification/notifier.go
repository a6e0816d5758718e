package notification

// NotificationSystem represents a delivery channel (e.g. email, webhook).
type NotificationSystem string

const (
	EmailSystem   NotificationSystem = "email"
	WebhookSystem NotificationSystem = "webhook"
)

// NotificationData carries one outbound notification.
type NotificationData struct {
	To      string            // Recipient identifier (email address, webhook URL override, channel)
	Subject string            // Optional: subject for notifications like email
	Body    string            // The content or message to send
	Data    map[string]string // Additional structured fields included alongside the body
}

// Notifier delivers notifications over one channel.
type Notifier interface {
	Send(notification NotificationData) error
}
