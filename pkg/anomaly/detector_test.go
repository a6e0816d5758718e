package anomaly

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisafe/authsec/pkg/secevent"
)

type captureDispatcher struct {
	dispatched []secevent.SecurityEvent
	err        error
}

func (d *captureDispatcher) Dispatch(ctx context.Context, event secevent.SecurityEvent) error {
	d.dispatched = append(d.dispatched, event)
	return d.err
}

// harness wires a detector to an in-memory event log the way main does,
// with the detector registered as an auth-event hook.
type harness struct {
	repo       *secevent.InMemoryEventRepository
	service    *secevent.EventService
	dispatcher *captureDispatcher
	detector   *Detector
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	repo := secevent.NewInMemoryEventRepository()
	service := secevent.NewEventService(repo, secevent.NewRepositorySink(repo, 0))
	dispatcher := &captureDispatcher{}

	opts = append([]Option{WithDispatcher(dispatcher)}, opts...)
	detector := NewDetector(repo, service, opts...)
	service.AddAuthEventHook(detector.OnAuthenticationEvent)

	return &harness{repo: repo, service: service, dispatcher: dispatcher, detector: detector}
}

func (h *harness) securityEvents(t *testing.T) []secevent.SecurityEvent {
	t.Helper()
	events, _, err := h.repo.ListSecurityEvents(context.Background(), secevent.SecurityEventFilter{}, secevent.PageParams{Limit: 100})
	require.NoError(t, err)
	return events
}

func recordFailure(h *harness, ip string, at time.Time) {
	h.service.RecordAuthenticationEvent(context.Background(), secevent.AuthenticationEvent{
		EventType: secevent.AuthEventLoginFailure,
		IPAddress: ip,
		Timestamp: at,
	})
}

func recordSuccess(h *harness, principalID uuid.UUID, ip string, at time.Time) {
	h.service.RecordAuthenticationEvent(context.Background(), secevent.AuthenticationEvent{
		EventType:        secevent.AuthEventLoginSuccess,
		PrincipalID:      principalID,
		PrincipalIDValid: true,
		IPAddress:        ip,
		Success:          true,
		Timestamp:        at,
	})
}

func TestBruteForceFiresAtThreshold(t *testing.T) {
	h := newHarness(t)
	base := time.Now().UTC()

	for i := 0; i < DefaultFailureThreshold; i++ {
		recordFailure(h, "203.0.113.7", base.Add(time.Duration(i)*time.Second))
	}

	events := h.securityEvents(t)
	require.Len(t, events, 1, "only the threshold crossing emits")

	event := events[0]
	assert.Equal(t, secevent.EventSuspiciousLoginAttempts, event.EventType)
	assert.Equal(t, secevent.SeverityHigh, event.Severity)
	assert.Equal(t, "203.0.113.7", event.IPAddress)
	assert.EqualValues(t, 5, event.Metadata["failure_count"])
	assert.Equal(t, "15", event.Metadata["window_minutes"])

	require.Len(t, h.dispatcher.dispatched, 1, "HIGH events go to the dispatcher")
	assert.Equal(t, secevent.EventSuspiciousLoginAttempts, h.dispatcher.dispatched[0].EventType)
}

func TestBruteForceBelowThresholdStaysQuiet(t *testing.T) {
	h := newHarness(t)
	base := time.Now().UTC()

	for i := 0; i < DefaultFailureThreshold-1; i++ {
		recordFailure(h, "203.0.113.7", base.Add(time.Duration(i)*time.Second))
	}

	assert.Empty(t, h.securityEvents(t))
	assert.Empty(t, h.dispatcher.dispatched)
}

func TestBruteForceWindowExcludesOldFailures(t *testing.T) {
	h := newHarness(t)
	base := time.Now().UTC()

	// Four stale failures well outside the window, then four recent ones.
	for i := 0; i < 4; i++ {
		recordFailure(h, "203.0.113.7", base.Add(-time.Hour))
	}
	for i := 0; i < 4; i++ {
		recordFailure(h, "203.0.113.7", base.Add(time.Duration(i)*time.Second))
	}

	assert.Empty(t, h.securityEvents(t), "stale failures do not count toward the threshold")
}

func TestBruteForceCountsPerIP(t *testing.T) {
	h := newHarness(t)
	base := time.Now().UTC()

	for i := 0; i < 3; i++ {
		recordFailure(h, "203.0.113.7", base)
		recordFailure(h, "198.51.100.9", base)
	}

	assert.Empty(t, h.securityEvents(t), "failures from distinct IPs are not pooled")
}

func TestBruteForceReEmitsAfterThreshold(t *testing.T) {
	h := newHarness(t)
	base := time.Now().UTC()

	for i := 0; i < DefaultFailureThreshold+2; i++ {
		recordFailure(h, "203.0.113.7", base.Add(time.Duration(i)*time.Second))
	}

	// No dedup: the fifth, sixth and seventh failures each cross the bar.
	assert.Len(t, h.securityEvents(t), 3)
	assert.Len(t, h.dispatcher.dispatched, 3)
}

func TestLocationChangeFiresOnNewIP(t *testing.T) {
	h := newHarness(t)
	principalID := uuid.New()
	base := time.Now().UTC()

	recordSuccess(h, principalID, "203.0.113.7", base.Add(-time.Hour))
	recordSuccess(h, principalID, "198.51.100.9", base)

	events := h.securityEvents(t)
	require.Len(t, events, 1)

	event := events[0]
	assert.Equal(t, secevent.EventUnusualLoginLocation, event.EventType)
	assert.Equal(t, secevent.SeverityMedium, event.Severity)
	assert.True(t, event.PrincipalIDValid)
	assert.Equal(t, principalID, event.PrincipalID)
	assert.Equal(t, "203.0.113.7", event.Metadata["previous_ip"])

	// MEDIUM is recorded for review but never alerted.
	assert.Empty(t, h.dispatcher.dispatched)
}

func TestLocationChangeSameIPStaysQuiet(t *testing.T) {
	h := newHarness(t)
	principalID := uuid.New()
	base := time.Now().UTC()

	recordSuccess(h, principalID, "203.0.113.7", base.Add(-time.Hour))
	recordSuccess(h, principalID, "203.0.113.7", base)

	assert.Empty(t, h.securityEvents(t))
}

func TestLocationChangeFirstLoginStaysQuiet(t *testing.T) {
	h := newHarness(t)

	recordSuccess(h, uuid.New(), "203.0.113.7", time.Now().UTC())

	assert.Empty(t, h.securityEvents(t))
}

func TestLocationChangeIgnoresOtherPrincipals(t *testing.T) {
	h := newHarness(t)
	base := time.Now().UTC()

	recordSuccess(h, uuid.New(), "203.0.113.7", base.Add(-time.Hour))
	recordSuccess(h, uuid.New(), "198.51.100.9", base)

	assert.Empty(t, h.securityEvents(t))
}

type fixedResolver struct {
	same bool
}

func (r fixedResolver) SameLocation(previousIP, currentIP string) bool {
	return r.same
}

func TestLocationResolverOverride(t *testing.T) {
	h := newHarness(t, WithLocationResolver(fixedResolver{same: true}))
	principalID := uuid.New()
	base := time.Now().UTC()

	recordSuccess(h, principalID, "203.0.113.7", base.Add(-time.Hour))
	recordSuccess(h, principalID, "198.51.100.9", base)

	assert.Empty(t, h.securityEvents(t), "resolver that treats all IPs as one location suppresses the rule")
}

func TestCustomThresholdAndWindow(t *testing.T) {
	h := newHarness(t, WithFailureThreshold(2), WithFailureWindow(time.Minute))
	base := time.Now().UTC()

	recordFailure(h, "203.0.113.7", base.Add(-2*time.Minute))
	recordFailure(h, "203.0.113.7", base)
	assert.Empty(t, h.securityEvents(t), "the old failure fell out of the shortened window")

	recordFailure(h, "203.0.113.7", base.Add(time.Second))
	assert.Len(t, h.securityEvents(t), 1)
}

func TestDispatchFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	h.dispatcher.err = assert.AnError
	base := time.Now().UTC()

	for i := 0; i < DefaultFailureThreshold; i++ {
		recordFailure(h, "203.0.113.7", base.Add(time.Duration(i)*time.Second))
	}

	// The event is still on record even though alert delivery failed.
	assert.Len(t, h.securityEvents(t), 1)
	assert.Len(t, h.dispatcher.dispatched, 1)
}

func TestEventsWithoutIPAreSkipped(t *testing.T) {
	h := newHarness(t)

	h.service.RecordAuthenticationEvent(context.Background(), secevent.AuthenticationEvent{
		EventType: secevent.AuthEventLoginFailure,
		Timestamp: time.Now().UTC(),
	})

	assert.Empty(t, h.securityEvents(t))
}
