package secevent

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuthEventHook is invoked synchronously after each authentication event is
// appended. The anomaly detector registers itself here; keeping the hook as
// a function type avoids an import cycle between the log and the detector.
type AuthEventHook func(ctx context.Context, event AuthenticationEvent)

// EventService owns the append-only event log: authentication events,
// security events, and administrative audit entries.
type EventService struct {
	repo  EventRepository
	sink  Sink
	hooks []AuthEventHook
}

// NewEventService creates an EventService writing through the given sink and
// reading from the given repository. Normally the sink is a FallbackSink
// over the same repository plus a ConsoleSink.
func NewEventService(repo EventRepository, sink Sink) *EventService {
	return &EventService{repo: repo, sink: sink}
}

// AddAuthEventHook registers a hook run after every authentication event
// append. Hooks must tolerate concurrent invocation for different events.
func (s *EventService) AddAuthEventHook(hook AuthEventHook) {
	s.hooks = append(s.hooks, hook)
}

// RecordAuthenticationEvent appends a raw login-flow observation and then
// runs the registered hooks. Fire-and-forget for the caller: a persistence
// failure has already degraded to the fallback sink by the time it would
// surface, so the login path never blocks on the audit store.
func (s *EventService) RecordAuthenticationEvent(ctx context.Context, event AuthenticationEvent) {
	event = s.stampAuth(event)
	_ = s.sink.AppendAuthEvent(ctx, event)
	for _, hook := range s.hooks {
		hook(ctx, event)
	}
}

// RecordSecurityEvent appends a security event. Called by the anomaly
// detector and exposed for manual administrative reporting.
func (s *EventService) RecordSecurityEvent(ctx context.Context, event SecurityEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = s.sink.AppendSecurityEvent(ctx, event)
}

// RecordAuditEntry appends an administrative audit entry.
func (s *EventService) RecordAuditEntry(ctx context.Context, entry AuditLogEntry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_ = s.sink.AppendAuditEntry(ctx, entry)
}

// ListSecurityEvents returns security events newest-first, with the filtered
// total for paging.
func (s *EventService) ListSecurityEvents(ctx context.Context, filter SecurityEventFilter, page PageParams) ([]SecurityEvent, int64, error) {
	return s.repo.ListSecurityEvents(ctx, filter, page)
}

// ListAuthenticationEvents returns authentication events newest-first, with
// the filtered total for paging.
func (s *EventService) ListAuthenticationEvents(ctx context.Context, filter AuthEventFilter, page PageParams) ([]AuthenticationEvent, int64, error) {
	return s.repo.ListAuthEvents(ctx, filter, page)
}

func (s *EventService) stampAuth(event AuthenticationEvent) AuthenticationEvent {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.EventType == "" {
		if event.Success {
			event.EventType = AuthEventLoginSuccess
		} else {
			event.EventType = AuthEventLoginFailure
		}
	}
	return event
}
