package notification

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRoutesToRegisteredNotifier(t *testing.T) {
	manager := NewNotificationManager()
	email := &MockNotifier{}
	webhook := &MockNotifier{}
	manager.RegisterNotifier(EmailSystem, email)
	manager.RegisterNotifier(WebhookSystem, webhook)

	err := manager.Send(EmailSystem, NotificationData{To: "sec@example.com", Subject: "alert", Body: "details"})
	require.NoError(t, err)

	require.Len(t, email.SentNotifications, 1)
	assert.Equal(t, "sec@example.com", email.SentNotifications[0].To)
	assert.Empty(t, webhook.SentNotifications)
}

func TestManagerUnknownSystem(t *testing.T) {
	manager := NewNotificationManager()

	err := manager.Send(WebhookSystem, NotificationData{Body: "x"})
	assert.ErrorContains(t, err, "no notifier registered")
}

func TestManagerSystems(t *testing.T) {
	manager := NewNotificationManager()
	assert.Empty(t, manager.Systems())

	manager.RegisterNotifier(WebhookSystem, &MockNotifier{})
	manager.RegisterNotifier(EmailSystem, &MockNotifier{})
	assert.ElementsMatch(t, []NotificationSystem{EmailSystem, WebhookSystem}, manager.Systems())
}

func TestManagerPropagatesNotifierError(t *testing.T) {
	manager := NewNotificationManager()
	manager.RegisterNotifier(WebhookSystem, &MockNotifier{Err: assert.AnError})

	err := manager.Send(WebhookSystem, NotificationData{Body: "x"})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL)
	err := notifier.Send(NotificationData{
		Subject: "[HIGH] SUSPICIOUS_LOGIN_ATTEMPTS",
		Body:    "5 failed login attempts",
		Data:    map[string]string{"ip_address": "203.0.113.7"},
	})
	require.NoError(t, err)

	assert.Equal(t, "[HIGH] SUSPICIOUS_LOGIN_ATTEMPTS", received["subject"])
	assert.Equal(t, "5 failed login attempts", received["text"])
}

func TestWebhookNotifierRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL)
	err := notifier.Send(NotificationData{Body: "x"})
	assert.Error(t, err)
}
