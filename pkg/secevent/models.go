package secevent

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrEventNotFound is returned by repositories when no event matches.
var ErrEventNotFound = errors.New("event not found")

// Severity classifies security events. Severities are ordered; use Rank or
// AtLeast to compare.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var severityRanks = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Rank returns the position of the severity in the LOW..CRITICAL order.
// Unknown severities rank below LOW.
func (s Severity) Rank() int {
	rank, ok := severityRanks[s]
	if !ok {
		return -1
	}
	return rank
}

// AtLeast reports whether s is at or above the given severity.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// Security event types emitted by the anomaly detector.
const (
	EventSuspiciousLoginAttempts = "SUSPICIOUS_LOGIN_ATTEMPTS"
	EventUnusualLoginLocation    = "UNUSUAL_LOGIN_LOCATION"
)

// Authentication event types recorded by the login flow.
const (
	AuthEventLoginSuccess   = "LOGIN_SUCCESS"
	AuthEventLoginFailure   = "LOGIN_FAILURE"
	AuthEventLogout         = "LOGOUT"
	AuthEventSessionExpired = "SESSION_EXPIRED"
)

// SecurityEvent is a flagged anomalous pattern derived from authentication
// traffic, or a manually reported incident. Immutable once written.
type SecurityEvent struct {
	ID               uuid.UUID      `json:"id"`
	EventType        string         `json:"event_type"`
	Severity         Severity       `json:"severity"`
	Description      string         `json:"description"`
	IPAddress        string         `json:"ip_address"`
	UserAgent        string         `json:"user_agent"`
	PrincipalID      uuid.UUID      `json:"principal_id,omitempty"`
	PrincipalIDValid bool           `json:"-"`
	Route            string         `json:"route"`
	Timestamp        time.Time      `json:"timestamp"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// AuthenticationEvent is one raw login-flow observation. Immutable,
// append-only; the anomaly detector's sole input besides its own prior
// output.
type AuthenticationEvent struct {
	ID               uuid.UUID `json:"id"`
	EventType        string    `json:"event_type"`
	PrincipalID      uuid.UUID `json:"principal_id,omitempty"`
	PrincipalIDValid bool      `json:"-"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	IPAddress        string    `json:"ip_address"`
	UserAgent        string    `json:"user_agent"`
	Success          bool      `json:"success"`
	Timestamp        time.Time `json:"timestamp"`
	FailureReason    string    `json:"failure_reason,omitempty"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
}

// AuditLogEntry is a generic administrative action record used for
// non-security traceability.
type AuditLogEntry struct {
	ID           uuid.UUID      `json:"id"`
	Action       string         `json:"action"`
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	OldValues    map[string]any `json:"old_values,omitempty"`
	NewValues    map[string]any `json:"new_values,omitempty"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}
