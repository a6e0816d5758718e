package anomaly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/polisafe/authsec/pkg/secevent"
)

const (
	// DefaultFailureThreshold is the number of failures from one IP inside
	// the window that flags a brute-force pattern.
	DefaultFailureThreshold = 5

	// DefaultFailureWindow is the trailing window scanned for failures.
	DefaultFailureWindow = 15 * time.Minute
)

// Recorder is the slice of the event service the detector writes through.
type Recorder interface {
	RecordSecurityEvent(ctx context.Context, event secevent.SecurityEvent)
}

// Detector scans recent authentication events after each append and emits
// SecurityEvents for brute-force and location-change patterns. The two rules
// are independent and may both fire for one event; nothing is deduplicated,
// so repeated threshold crossings re-emit. Concurrent scans for the same IP
// may each cross the threshold and each dispatch an alert: at-least-once
// alerting is the accepted mode.
type Detector struct {
	repo       secevent.EventRepository
	recorder   Recorder
	dispatcher Dispatcher
	locations  LocationResolver
	threshold  int64
	window     time.Duration
}

// Option configures a Detector.
type Option func(*Detector)

// WithDispatcher sets the alert dispatcher for HIGH/CRITICAL events.
func WithDispatcher(dispatcher Dispatcher) Option {
	return func(d *Detector) {
		d.dispatcher = dispatcher
	}
}

// WithLocationResolver replaces the IP-equality location heuristic.
func WithLocationResolver(resolver LocationResolver) Option {
	return func(d *Detector) {
		d.locations = resolver
	}
}

// WithFailureThreshold sets the brute-force failure threshold.
func WithFailureThreshold(threshold int64) Option {
	return func(d *Detector) {
		d.threshold = threshold
	}
}

// WithFailureWindow sets the trailing brute-force scan window.
func WithFailureWindow(window time.Duration) Option {
	return func(d *Detector) {
		d.window = window
	}
}

// NewDetector creates a Detector reading recent events from repo and writing
// flagged patterns through recorder.
func NewDetector(repo secevent.EventRepository, recorder Recorder, opts ...Option) *Detector {
	d := &Detector{
		repo:      repo,
		recorder:  recorder,
		locations: IPEqualityResolver{},
		threshold: DefaultFailureThreshold,
		window:    DefaultFailureWindow,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnAuthenticationEvent runs both detection rules for one freshly appended
// event. Registered as an AuthEventHook on the event service.
func (d *Detector) OnAuthenticationEvent(ctx context.Context, event secevent.AuthenticationEvent) {
	switch event.EventType {
	case secevent.AuthEventLoginFailure:
		d.checkBruteForce(ctx, event)
	case secevent.AuthEventLoginSuccess:
		d.checkLocationChange(ctx, event)
	}
}

// checkBruteForce counts failures from the event's IP in the trailing window
// (the event itself included, since it has already been appended).
func (d *Detector) checkBruteForce(ctx context.Context, event secevent.AuthenticationEvent) {
	if event.IPAddress == "" {
		return
	}

	since := event.Timestamp.Add(-d.window)
	count, err := d.repo.CountFailuresByIP(ctx, event.IPAddress, since)
	if err != nil {
		slog.Error("Brute-force scan failed", "ipAddress", event.IPAddress, "error", err)
		return
	}
	if count < d.threshold {
		return
	}

	securityEvent := secevent.SecurityEvent{
		EventType:   secevent.EventSuspiciousLoginAttempts,
		Severity:    secevent.SeverityHigh,
		Description: fmt.Sprintf("%d failed login attempts from %s within %s", count, event.IPAddress, d.window),
		IPAddress:   event.IPAddress,
		UserAgent:   event.UserAgent,
		Timestamp:   event.Timestamp,
		Metadata: map[string]any{
			"failure_count":  count,
			"window_minutes": strconv.Itoa(int(d.window / time.Minute)),
		},
	}
	d.emit(ctx, securityEvent)
}

// checkLocationChange compares the event's IP with the principal's most
// recent prior successful login.
func (d *Detector) checkLocationChange(ctx context.Context, event secevent.AuthenticationEvent) {
	if !event.PrincipalIDValid || event.IPAddress == "" {
		return
	}

	previous, err := d.repo.LastLoginSuccess(ctx, event.PrincipalID, event.Timestamp)
	if err != nil {
		if !errors.Is(err, secevent.ErrEventNotFound) {
			slog.Error("Location-change scan failed", "principalID", event.PrincipalID, "error", err)
		}
		return
	}
	if previous.IPAddress == "" || d.locations.SameLocation(previous.IPAddress, event.IPAddress) {
		return
	}

	securityEvent := secevent.SecurityEvent{
		EventType:        secevent.EventUnusualLoginLocation,
		Severity:         secevent.SeverityMedium,
		Description:      fmt.Sprintf("login from %s, previous successful login was from %s", event.IPAddress, previous.IPAddress),
		IPAddress:        event.IPAddress,
		UserAgent:        event.UserAgent,
		PrincipalID:      event.PrincipalID,
		PrincipalIDValid: true,
		Timestamp:        event.Timestamp,
		Metadata: map[string]any{
			"previous_ip":        previous.IPAddress,
			"previous_timestamp": previous.Timestamp.UTC().Format(time.RFC3339),
		},
	}
	d.emit(ctx, securityEvent)
}

// emit records the event and, for HIGH and CRITICAL severities, forwards it
// to the dispatcher. Dispatch failures get one log line and are swallowed:
// alerting must not break the authentication path.
func (d *Detector) emit(ctx context.Context, event secevent.SecurityEvent) {
	d.recorder.RecordSecurityEvent(ctx, event)

	if d.dispatcher == nil || !event.Severity.AtLeast(secevent.SeverityHigh) {
		return
	}
	if err := d.dispatcher.Dispatch(ctx, event); err != nil {
		slog.Error("Failed to dispatch security alert", "eventType", event.EventType, "severity", event.Severity, "error", err)
	}
}
