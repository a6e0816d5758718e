// Package notification delivers outbound messages over pluggable channels.
//
// A NotificationManager routes NotificationData to registered Notifier
// implementations: EmailNotifier (SMTP via go-mail), WebhookNotifier (JSON
// POST), and MockNotifier for tests. The alert dispatcher in pkg/anomaly is
// the main consumer.
package notification
