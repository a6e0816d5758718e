package secevent

import (
	"context"
	"log/slog"
	"time"
)

// Sink is the append side of the event log. RecordAuthenticationEvent and
// RecordSecurityEvent write through a Sink so the degrade-not-drop policy
// lives in one place instead of try/catch sprinkled through business logic.
type Sink interface {
	AppendSecurityEvent(ctx context.Context, event SecurityEvent) error
	AppendAuthEvent(ctx context.Context, event AuthenticationEvent) error
	AppendAuditEntry(ctx context.Context, entry AuditLogEntry) error
}

// DefaultSinkTimeout bounds event-log I/O so an audit-store outage degrades
// to the fallback sink instead of blocking the authentication critical path.
const DefaultSinkTimeout = 500 * time.Millisecond

// RepositorySink appends events to an EventRepository with a short I/O
// timeout.
type RepositorySink struct {
	repo    EventRepository
	timeout time.Duration
}

// NewRepositorySink creates a sink over the given repository. A timeout of
// zero means DefaultSinkTimeout.
func NewRepositorySink(repo EventRepository, timeout time.Duration) *RepositorySink {
	if timeout <= 0 {
		timeout = DefaultSinkTimeout
	}
	return &RepositorySink{repo: repo, timeout: timeout}
}

func (s *RepositorySink) AppendSecurityEvent(ctx context.Context, event SecurityEvent) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.repo.InsertSecurityEvent(ctx, event)
}

func (s *RepositorySink) AppendAuthEvent(ctx context.Context, event AuthenticationEvent) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.repo.InsertAuthEvent(ctx, event)
}

func (s *RepositorySink) AppendAuditEntry(ctx context.Context, entry AuditLogEntry) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.repo.InsertAuditEntry(ctx, entry)
}

// ConsoleSink emits events as structured slog records. It never fails, which
// makes it the terminal fallback.
type ConsoleSink struct {
	logger *slog.Logger
}

// NewConsoleSink creates a console sink. A nil logger means slog.Default().
func NewConsoleSink(logger *slog.Logger) *ConsoleSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsoleSink{logger: logger}
}

func (s *ConsoleSink) AppendSecurityEvent(ctx context.Context, event SecurityEvent) error {
	s.logger.WarnContext(ctx, "SECURITY_EVENT",
		"eventType", event.EventType,
		"severity", event.Severity,
		"description", event.Description,
		"ipAddress", event.IPAddress,
		"principalID", principalForLog(event.PrincipalIDValid, event.PrincipalID.String()),
		"route", event.Route,
		"timestamp", event.Timestamp,
		"metadata", event.Metadata)
	return nil
}

func (s *ConsoleSink) AppendAuthEvent(ctx context.Context, event AuthenticationEvent) error {
	s.logger.InfoContext(ctx, "AUTH_EVENT",
		"eventType", event.EventType,
		"principalID", principalForLog(event.PrincipalIDValid, event.PrincipalID.String()),
		"email", event.Email,
		"ipAddress", event.IPAddress,
		"success", event.Success,
		"timestamp", event.Timestamp,
		"failureReason", event.FailureReason)
	return nil
}

func (s *ConsoleSink) AppendAuditEntry(ctx context.Context, entry AuditLogEntry) error {
	s.logger.InfoContext(ctx, "AUDIT_ENTRY",
		"action", entry.Action,
		"entityType", entry.EntityType,
		"entityID", entry.EntityID,
		"status", entry.Status,
		"errorMessage", entry.ErrorMessage,
		"timestamp", entry.Timestamp)
	return nil
}

func principalForLog(valid bool, id string) string {
	if !valid {
		return ""
	}
	return id
}

// FallbackSink writes to the primary sink and falls back to the secondary on
// failure, so no event is silently dropped even when the backing store is
// unavailable.
type FallbackSink struct {
	primary  Sink
	fallback Sink
}

// NewFallbackSink composes a primary sink with a fallback.
func NewFallbackSink(primary, fallback Sink) *FallbackSink {
	return &FallbackSink{primary: primary, fallback: fallback}
}

func (s *FallbackSink) AppendSecurityEvent(ctx context.Context, event SecurityEvent) error {
	err := s.primary.AppendSecurityEvent(ctx, event)
	if err != nil {
		slog.Warn("Security event persistence failed, using fallback sink", "error", err)
		return s.fallback.AppendSecurityEvent(ctx, event)
	}
	return nil
}

func (s *FallbackSink) AppendAuthEvent(ctx context.Context, event AuthenticationEvent) error {
	err := s.primary.AppendAuthEvent(ctx, event)
	if err != nil {
		slog.Warn("Authentication event persistence failed, using fallback sink", "error", err)
		return s.fallback.AppendAuthEvent(ctx, event)
	}
	return nil
}

func (s *FallbackSink) AppendAuditEntry(ctx context.Context, entry AuditLogEntry) error {
	err := s.primary.AppendAuditEntry(ctx, entry)
	if err != nil {
		slog.Warn("Audit entry persistence failed, using fallback sink", "error", err)
		return s.fallback.AppendAuditEntry(ctx, entry)
	}
	return nil
}
