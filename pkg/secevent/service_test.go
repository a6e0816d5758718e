package secevent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() (*EventService, *InMemoryEventRepository) {
	repo := NewInMemoryEventRepository()
	return NewEventService(repo, NewRepositorySink(repo, 0)), repo
}

func TestRecordAuthenticationEventStampsAndStores(t *testing.T) {
	ctx := context.Background()
	service, repo := newTestService()
	principalID := uuid.New()

	service.RecordAuthenticationEvent(ctx, AuthenticationEvent{
		PrincipalID:      principalID,
		PrincipalIDValid: true,
		Email:            "u1@example.com",
		IPAddress:        "1.2.3.4",
		Success:          true,
	})

	events, total, err := repo.ListAuthEvents(ctx, AuthEventFilter{}, PageParams{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)

	event := events[0]
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.False(t, event.Timestamp.IsZero())
	// Success implies LOGIN_SUCCESS when the caller omits the type.
	assert.Equal(t, AuthEventLoginSuccess, event.EventType)
}

func TestRecordAuthenticationEventRunsHooks(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	var seen []AuthenticationEvent
	service.AddAuthEventHook(func(ctx context.Context, event AuthenticationEvent) {
		seen = append(seen, event)
	})

	service.RecordAuthenticationEvent(ctx, AuthenticationEvent{IPAddress: "1.2.3.4", Success: false})

	require.Len(t, seen, 1)
	assert.Equal(t, AuthEventLoginFailure, seen[0].EventType)
	assert.NotEqual(t, uuid.Nil, seen[0].ID, "hooks see the stamped event")
}

type failingSink struct{}

func (failingSink) AppendSecurityEvent(ctx context.Context, event SecurityEvent) error {
	return errors.New("store unavailable")
}

func (failingSink) AppendAuthEvent(ctx context.Context, event AuthenticationEvent) error {
	return errors.New("store unavailable")
}

func (failingSink) AppendAuditEntry(ctx context.Context, entry AuditLogEntry) error {
	return errors.New("store unavailable")
}

func TestFallbackSinkDegradesOnPrimaryFailure(t *testing.T) {
	ctx := context.Background()
	fallbackRepo := NewInMemoryEventRepository()
	sink := NewFallbackSink(failingSink{}, NewRepositorySink(fallbackRepo, 0))

	err := sink.AppendAuthEvent(ctx, AuthenticationEvent{
		ID:        uuid.New(),
		EventType: AuthEventLoginFailure,
		IPAddress: "1.2.3.4",
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err, "a working fallback hides the primary failure")

	_, total, err := fallbackRepo.ListAuthEvents(ctx, AuthEventFilter{}, PageParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestConsoleSinkNeverFails(t *testing.T) {
	ctx := context.Background()
	sink := NewConsoleSink(nil)

	assert.NoError(t, sink.AppendSecurityEvent(ctx, SecurityEvent{EventType: EventSuspiciousLoginAttempts, Severity: SeverityHigh}))
	assert.NoError(t, sink.AppendAuthEvent(ctx, AuthenticationEvent{EventType: AuthEventLogout}))
	assert.NoError(t, sink.AppendAuditEntry(ctx, AuditLogEntry{Action: "record.update"}))
}

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityHigh))
	assert.True(t, SeverityHigh.AtLeast(SeverityHigh))
	assert.False(t, SeverityMedium.AtLeast(SeverityHigh))
	assert.False(t, SeverityLow.AtLeast(SeverityMedium))
	assert.Equal(t, -1, Severity("BOGUS").Rank())
}

func TestListSecurityEventsFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	base := time.Now().UTC()
	severities := []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i, severity := range severities {
		service.RecordSecurityEvent(ctx, SecurityEvent{
			EventType:   EventSuspiciousLoginAttempts,
			Severity:    severity,
			IPAddress:   "1.2.3.4",
			Timestamp:   base.Add(time.Duration(i) * time.Second),
			Description: string(severity),
		})
	}

	// Minimum-severity filter.
	events, total, err := service.ListSecurityEvents(ctx, SecurityEventFilter{MinSeverity: SeverityHigh}, PageParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, event := range events {
		assert.True(t, event.Severity.AtLeast(SeverityHigh))
	}

	// Newest-first ordering and paging.
	events, total, err = service.ListSecurityEvents(ctx, SecurityEventFilter{}, PageParams{Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, events, 2)
	assert.Equal(t, SeverityCritical, events[0].Severity)
	assert.Equal(t, SeverityHigh, events[1].Severity)

	events, _, err = service.ListSecurityEvents(ctx, SecurityEventFilter{}, PageParams{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, SeverityMedium, events[0].Severity)
}

func TestListAuthenticationEventsTimeRange(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryEventRepository()
	service := NewEventService(repo, NewRepositorySink(repo, 0))

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.InsertAuthEvent(ctx, AuthenticationEvent{
			ID:        uuid.New(),
			EventType: AuthEventLoginFailure,
			IPAddress: "1.2.3.4",
			Timestamp: base.Add(time.Duration(i) * 10 * time.Minute),
		}))
	}

	events, total, err := service.ListAuthenticationEvents(ctx, AuthEventFilter{
		From: base.Add(5 * time.Minute),
		To:   base.Add(15 * time.Minute),
	}, PageParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, events, 1)
}

func TestCountFailuresByIP(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryEventRepository()

	now := time.Now().UTC()
	insert := func(eventType, ip string, at time.Time) {
		require.NoError(t, repo.InsertAuthEvent(ctx, AuthenticationEvent{
			ID:        uuid.New(),
			EventType: eventType,
			IPAddress: ip,
			Timestamp: at,
		}))
	}

	insert(AuthEventLoginFailure, "1.2.3.4", now.Add(-20*time.Minute)) // outside window
	insert(AuthEventLoginFailure, "1.2.3.4", now.Add(-10*time.Minute))
	insert(AuthEventLoginFailure, "1.2.3.4", now.Add(-1*time.Minute))
	insert(AuthEventLoginFailure, "5.6.7.8", now.Add(-1*time.Minute)) // other IP
	insert(AuthEventLoginSuccess, "1.2.3.4", now.Add(-1*time.Minute)) // not a failure

	count, err := repo.CountFailuresByIP(ctx, "1.2.3.4", now.Add(-15*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestLastLoginSuccess(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryEventRepository()
	principalID := uuid.New()

	now := time.Now().UTC()
	older := AuthenticationEvent{
		ID: uuid.New(), EventType: AuthEventLoginSuccess,
		PrincipalID: principalID, PrincipalIDValid: true,
		IPAddress: "1.1.1.1", Timestamp: now.Add(-2 * time.Hour),
	}
	newer := AuthenticationEvent{
		ID: uuid.New(), EventType: AuthEventLoginSuccess,
		PrincipalID: principalID, PrincipalIDValid: true,
		IPAddress: "2.2.2.2", Timestamp: now.Add(-1 * time.Hour),
	}
	require.NoError(t, repo.InsertAuthEvent(ctx, older))
	require.NoError(t, repo.InsertAuthEvent(ctx, newer))

	previous, err := repo.LastLoginSuccess(ctx, principalID, now)
	require.NoError(t, err)
	assert.Equal(t, "2.2.2.2", previous.IPAddress)

	// The bound is strict: an event at exactly the bound is excluded.
	previous, err = repo.LastLoginSuccess(ctx, principalID, newer.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, "1.1.1.1", previous.IPAddress)

	_, err = repo.LastLoginSuccess(ctx, uuid.New(), now)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestRecordAuditEntry(t *testing.T) {
	ctx := context.Background()
	service, repo := newTestService()

	service.RecordAuditEntry(ctx, AuditLogEntry{
		Action:     "twofa.disable",
		EntityType: "principal",
		EntityID:   uuid.NewString(),
		Status:     "ok",
	})

	repo.mu.RLock()
	defer repo.mu.RUnlock()
	require.Len(t, repo.auditEntries, 1)
	assert.NotEqual(t, uuid.Nil, repo.auditEntries[0].ID)
	assert.False(t, repo.auditEntries[0].Timestamp.IsZero())
}
