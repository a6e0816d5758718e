package secevent

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryEventRepository implements EventRepository using in-memory storage.
// Used for tests and single-process deployments.
type InMemoryEventRepository struct {
	mu             sync.RWMutex
	securityEvents []SecurityEvent
	authEvents     []AuthenticationEvent
	auditEntries   []AuditLogEntry
}

// NewInMemoryEventRepository creates a new in-memory event repository.
func NewInMemoryEventRepository() *InMemoryEventRepository {
	return &InMemoryEventRepository{}
}

// InsertSecurityEvent appends a security event.
func (r *InMemoryEventRepository) InsertSecurityEvent(ctx context.Context, event SecurityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.securityEvents = append(r.securityEvents, event)
	return nil
}

// InsertAuthEvent appends an authentication event.
func (r *InMemoryEventRepository) InsertAuthEvent(ctx context.Context, event AuthenticationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authEvents = append(r.authEvents, event)
	return nil
}

// InsertAuditEntry appends an administrative audit entry.
func (r *InMemoryEventRepository) InsertAuditEntry(ctx context.Context, entry AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auditEntries = append(r.auditEntries, entry)
	return nil
}

// ListSecurityEvents lists security events newest-first with filters and
// pagination.
func (r *InMemoryEventRepository) ListSecurityEvents(ctx context.Context, filter SecurityEventFilter, page PageParams) ([]SecurityEvent, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []SecurityEvent
	for _, event := range r.securityEvents {
		if filter.EventType != "" && event.EventType != filter.EventType {
			continue
		}
		if filter.MinSeverity != "" && !event.Severity.AtLeast(filter.MinSeverity) {
			continue
		}
		if filter.PrincipalIDValid && (!event.PrincipalIDValid || event.PrincipalID != filter.PrincipalID) {
			continue
		}
		if !filter.From.IsZero() && event.Timestamp.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && event.Timestamp.After(filter.To) {
			continue
		}
		matches = append(matches, event)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Timestamp.After(matches[j].Timestamp)
	})

	total := int64(len(matches))
	matches = paginate(matches, page)
	return matches, total, nil
}

// ListAuthEvents lists authentication events newest-first with filters and
// pagination.
func (r *InMemoryEventRepository) ListAuthEvents(ctx context.Context, filter AuthEventFilter, page PageParams) ([]AuthenticationEvent, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []AuthenticationEvent
	for _, event := range r.authEvents {
		if filter.EventType != "" && event.EventType != filter.EventType {
			continue
		}
		if filter.PrincipalIDValid && (!event.PrincipalIDValid || event.PrincipalID != filter.PrincipalID) {
			continue
		}
		if filter.IPAddress != "" && event.IPAddress != filter.IPAddress {
			continue
		}
		if !filter.From.IsZero() && event.Timestamp.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && event.Timestamp.After(filter.To) {
			continue
		}
		matches = append(matches, event)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Timestamp.After(matches[j].Timestamp)
	})

	total := int64(len(matches))
	matches = paginate(matches, page)
	return matches, total, nil
}

// CountFailuresByIP counts LOGIN_FAILURE events from an IP since a time.
func (r *InMemoryEventRepository) CountFailuresByIP(ctx context.Context, ipAddress string, since time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, event := range r.authEvents {
		if event.EventType == AuthEventLoginFailure &&
			event.IPAddress == ipAddress &&
			!event.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

// LastLoginSuccess returns the most recent successful login for a principal
// strictly before the given time.
func (r *InMemoryEventRepository) LastLoginSuccess(ctx context.Context, principalID uuid.UUID, before time.Time) (AuthenticationEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest AuthenticationEvent
	found := false
	for _, event := range r.authEvents {
		if event.EventType != AuthEventLoginSuccess ||
			!event.PrincipalIDValid || event.PrincipalID != principalID ||
			!event.Timestamp.Before(before) {
			continue
		}
		if !found || event.Timestamp.After(latest.Timestamp) {
			latest = event
			found = true
		}
	}

	if !found {
		return AuthenticationEvent{}, ErrEventNotFound
	}
	return latest, nil
}

func paginate[T any](items []T, page PageParams) []T {
	start := int(page.Offset)
	if start >= len(items) {
		return []T{}
	}

	end := start + int(normalizeLimit(page.Limit))
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
