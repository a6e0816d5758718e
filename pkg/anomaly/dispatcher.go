package anomaly

import (
	"context"
	"fmt"
	"strings"

	"github.com/polisafe/authsec/pkg/notification"
	"github.com/polisafe/authsec/pkg/secevent"
)

// Dispatcher forwards a security event to an external channel. Implementors
// are invoked only for HIGH and CRITICAL severities.
type Dispatcher interface {
	Dispatch(ctx context.Context, event secevent.SecurityEvent) error
}

// NotifierDispatcher sends a structured alert summary through every channel
// registered on a NotificationManager.
type NotifierDispatcher struct {
	manager *notification.NotificationManager
	// emailTo receives email alerts; unused channels skip delivery.
	emailTo string
}

// NewNotifierDispatcher creates a dispatcher over the given manager.
func NewNotifierDispatcher(manager *notification.NotificationManager, emailTo string) *NotifierDispatcher {
	return &NotifierDispatcher{manager: manager, emailTo: emailTo}
}

// Dispatch fans the alert out to all registered channels. Every channel is
// attempted even when an earlier one fails; the first failure is returned so
// the caller can log it.
func (d *NotifierDispatcher) Dispatch(ctx context.Context, event secevent.SecurityEvent) error {
	data := notification.NotificationData{
		Subject: fmt.Sprintf("[%s] %s", event.Severity, event.EventType),
		Body:    formatAlertBody(event),
		Data: map[string]string{
			"event_type": event.EventType,
			"severity":   string(event.Severity),
			"ip_address": event.IPAddress,
			"timestamp":  event.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		},
	}

	var firstErr error
	for _, system := range d.manager.Systems() {
		send := data
		if system == notification.EmailSystem {
			if d.emailTo == "" {
				continue
			}
			send.To = d.emailTo
		}
		if err := d.manager.Send(system, send); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("dispatch via %s failed: %w", system, err)
		}
	}
	return firstErr
}

func formatAlertBody(event secevent.SecurityEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", event.EventType, event.Severity)
	fmt.Fprintf(&b, "%s\n", event.Description)
	fmt.Fprintf(&b, "ip=%s route=%s time=%s", event.IPAddress, event.Route, event.Timestamp.UTC().Format("2006-01-02 15:04:05"))
	if event.PrincipalIDValid {
		fmt.Fprintf(&b, " principal=%s", event.PrincipalID)
	}
	return b.String()
}
