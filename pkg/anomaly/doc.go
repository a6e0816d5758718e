// Package anomaly watches authentication traffic and raises security alerts.
//
// A Detector runs synchronously after each authentication-event append (it
// is registered as a hook on the event service) and applies two independent
// rules:
//
//   - brute force: five or more LOGIN_FAILURE events from one IP within the
//     trailing fifteen minutes emits SUSPICIOUS_LOGIN_ATTEMPTS at HIGH
//   - location change: a LOGIN_SUCCESS from a different IP than the
//     principal's previous successful login emits UNUSUAL_LOGIN_LOCATION at
//     MEDIUM
//
// "Location" is an IP-string-equality heuristic behind the LocationResolver
// interface, not geolocation. HIGH and CRITICAL events are forwarded to a
// Dispatcher (webhook/email via pkg/notification); delivery is at-least-once
// and dispatch failures never reach the authentication path.
package anomaly
