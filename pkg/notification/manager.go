package notification

import (
	"fmt"
)

// NotificationManager routes notifications to registered channel notifiers.
type NotificationManager struct {
	notifiers map[NotificationSystem]Notifier
}

// NewNotificationManager creates and returns a new NotificationManager.
func NewNotificationManager() *NotificationManager {
	return &NotificationManager{
		notifiers: make(map[NotificationSystem]Notifier),
	}
}

// RegisterNotifier registers a notifier for a specific system.
func (nm *NotificationManager) RegisterNotifier(system NotificationSystem, notifier Notifier) {
	nm.notifiers[system] = notifier
}

// Systems returns the systems with a registered notifier.
func (nm *NotificationManager) Systems() []NotificationSystem {
	systems := make([]NotificationSystem, 0, len(nm.notifiers))
	for system := range nm.notifiers {
		systems = append(systems, system)
	}
	return systems
}

// Send sends a notification using the specified system.
func (nm *NotificationManager) Send(system NotificationSystem, notification NotificationData) error {
	notifier, exists := nm.notifiers[system]
	if !exists {
		return fmt.Errorf("no notifier registered for system: %s", system)
	}
	return notifier.Send(notification)
}
