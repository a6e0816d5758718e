package anomaly

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisafe/authsec/pkg/notification"
	"github.com/polisafe/authsec/pkg/secevent"
)

func alertEvent() secevent.SecurityEvent {
	return secevent.SecurityEvent{
		EventType:   secevent.EventSuspiciousLoginAttempts,
		Severity:    secevent.SeverityHigh,
		Description: "5 failed login attempts from 203.0.113.7 within 15m0s",
		IPAddress:   "203.0.113.7",
		Timestamp:   time.Now().UTC(),
	}
}

func TestNotifierDispatcherFansOut(t *testing.T) {
	manager := notification.NewNotificationManager()
	webhook := &notification.MockNotifier{}
	email := &notification.MockNotifier{}
	manager.RegisterNotifier(notification.WebhookSystem, webhook)
	manager.RegisterNotifier(notification.EmailSystem, email)

	dispatcher := NewNotifierDispatcher(manager, "sec@example.com")
	require.NoError(t, dispatcher.Dispatch(context.Background(), alertEvent()))

	require.Len(t, webhook.SentNotifications, 1)
	require.Len(t, email.SentNotifications, 1)
	assert.Equal(t, "sec@example.com", email.SentNotifications[0].To)
	assert.Equal(t, "[HIGH] SUSPICIOUS_LOGIN_ATTEMPTS", webhook.SentNotifications[0].Subject)
	assert.Contains(t, webhook.SentNotifications[0].Body, "203.0.113.7")
	assert.Equal(t, "203.0.113.7", webhook.SentNotifications[0].Data["ip_address"])
}

func TestNotifierDispatcherSkipsEmailWithoutRecipient(t *testing.T) {
	manager := notification.NewNotificationManager()
	email := &notification.MockNotifier{}
	manager.RegisterNotifier(notification.EmailSystem, email)

	dispatcher := NewNotifierDispatcher(manager, "")
	require.NoError(t, dispatcher.Dispatch(context.Background(), alertEvent()))

	assert.Empty(t, email.SentNotifications)
}

func TestNotifierDispatcherReturnsFirstError(t *testing.T) {
	manager := notification.NewNotificationManager()
	manager.RegisterNotifier(notification.WebhookSystem, &notification.MockNotifier{Err: assert.AnError})
	email := &notification.MockNotifier{}
	manager.RegisterNotifier(notification.EmailSystem, email)

	dispatcher := NewNotifierDispatcher(manager, "sec@example.com")
	err := dispatcher.Dispatch(context.Background(), alertEvent())

	assert.ErrorIs(t, err, assert.AnError)
	// A failing channel does not stop the others.
	assert.Len(t, email.SentNotifications, 1)
}
