package secevent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SecurityEventFilter narrows security-event listings. Zero-valued fields
// are ignored.
type SecurityEventFilter struct {
	EventType        string
	MinSeverity      Severity
	PrincipalID      uuid.UUID
	PrincipalIDValid bool
	From             time.Time
	To               time.Time
}

// AuthEventFilter narrows authentication-event listings. Zero-valued fields
// are ignored.
type AuthEventFilter struct {
	EventType        string
	PrincipalID      uuid.UUID
	PrincipalIDValid bool
	IPAddress        string
	From             time.Time
	To               time.Time
}

// PageParams represents pagination parameters for event listings.
type PageParams struct {
	Limit  int32
	Offset int32
}

// EventRepository defines storage for the append-only event log. Existing
// events are never mutated; listings are ordered newest-first.
type EventRepository interface {
	InsertSecurityEvent(ctx context.Context, event SecurityEvent) error
	InsertAuthEvent(ctx context.Context, event AuthenticationEvent) error
	InsertAuditEntry(ctx context.Context, entry AuditLogEntry) error
	ListSecurityEvents(ctx context.Context, filter SecurityEventFilter, page PageParams) ([]SecurityEvent, int64, error)
	ListAuthEvents(ctx context.Context, filter AuthEventFilter, page PageParams) ([]AuthenticationEvent, int64, error)
	// CountFailuresByIP counts LOGIN_FAILURE events from an IP since the
	// given time. Detector read path.
	CountFailuresByIP(ctx context.Context, ipAddress string, since time.Time) (int64, error)
	// LastLoginSuccess returns the most recent LOGIN_SUCCESS for a principal
	// strictly before the given time, or ErrEventNotFound.
	LastLoginSuccess(ctx context.Context, principalID uuid.UUID, before time.Time) (AuthenticationEvent, error)
}

// PostgresEventRepository implements EventRepository using PostgreSQL.
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgreSQL-based event repository.
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

// InsertSecurityEvent appends a security event.
func (r *PostgresEventRepository) InsertSecurityEvent(ctx context.Context, event SecurityEvent) error {
	var principalID pgtype.UUID
	if event.PrincipalIDValid {
		principalID = pgtype.UUID{Bytes: event.PrincipalID, Valid: true}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO security_events (id, event_type, severity, description, ip_address, user_agent, principal_id, route, occurred_at, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.ID, event.EventType, string(event.Severity), event.Description,
		event.IPAddress, event.UserAgent, principalID, event.Route,
		event.Timestamp, event.Metadata)
	return err
}

// InsertAuthEvent appends an authentication event.
func (r *PostgresEventRepository) InsertAuthEvent(ctx context.Context, event AuthenticationEvent) error {
	var principalID pgtype.UUID
	if event.PrincipalIDValid {
		principalID = pgtype.UUID{Bytes: event.PrincipalID, Valid: true}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO authentication_events (id, event_type, principal_id, email, role, ip_address, user_agent, success, occurred_at, failure_reason, two_factor_enabled)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		event.ID, event.EventType, principalID, event.Email, event.Role,
		event.IPAddress, event.UserAgent, event.Success, event.Timestamp,
		event.FailureReason, event.TwoFactorEnabled)
	return err
}

// InsertAuditEntry appends an administrative audit entry.
func (r *PostgresEventRepository) InsertAuditEntry(ctx context.Context, entry AuditLogEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_log_entries (id, action, entity_type, entity_id, old_values, new_values, status, error_message, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.Action, entry.EntityType, entry.EntityID,
		entry.OldValues, entry.NewValues, entry.Status, entry.ErrorMessage,
		entry.Timestamp)
	return err
}

// ListSecurityEvents lists security events newest-first with filters and
// pagination, returning the filtered total for paging UIs.
func (r *PostgresEventRepository) ListSecurityEvents(ctx context.Context, filter SecurityEventFilter, page PageParams) ([]SecurityEvent, int64, error) {
	where := " WHERE 1=1"
	args := []any{}

	if filter.EventType != "" {
		args = append(args, filter.EventType)
		where += fmt.Sprintf(" AND event_type = $%d", len(args))
	}
	if filter.MinSeverity != "" {
		severities := []string{}
		for sev, rank := range severityRanks {
			if rank >= filter.MinSeverity.Rank() {
				severities = append(severities, string(sev))
			}
		}
		args = append(args, severities)
		where += fmt.Sprintf(" AND severity = ANY($%d)", len(args))
	}
	if filter.PrincipalIDValid {
		args = append(args, filter.PrincipalID)
		where += fmt.Sprintf(" AND principal_id = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where += fmt.Sprintf(" AND occurred_at <= $%d", len(args))
	}

	var total int64
	err := r.pool.QueryRow(ctx, "SELECT count(*) FROM security_events"+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	args = append(args, normalizeLimit(page.Limit), page.Offset)
	query := `SELECT id, event_type, severity, description, ip_address, user_agent, principal_id, route, occurred_at, metadata
		 FROM security_events` + where +
		fmt.Sprintf(" ORDER BY occurred_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []SecurityEvent
	for rows.Next() {
		var event SecurityEvent
		var severity string
		var principalID pgtype.UUID
		err := rows.Scan(&event.ID, &event.EventType, &severity, &event.Description,
			&event.IPAddress, &event.UserAgent, &principalID, &event.Route,
			&event.Timestamp, &event.Metadata)
		if err != nil {
			return nil, 0, err
		}
		event.Severity = Severity(severity)
		if principalID.Valid {
			event.PrincipalID = principalID.Bytes
			event.PrincipalIDValid = true
		}
		events = append(events, event)
	}
	return events, total, rows.Err()
}

// ListAuthEvents lists authentication events newest-first with filters and
// pagination.
func (r *PostgresEventRepository) ListAuthEvents(ctx context.Context, filter AuthEventFilter, page PageParams) ([]AuthenticationEvent, int64, error) {
	where := " WHERE 1=1"
	args := []any{}

	if filter.EventType != "" {
		args = append(args, filter.EventType)
		where += fmt.Sprintf(" AND event_type = $%d", len(args))
	}
	if filter.PrincipalIDValid {
		args = append(args, filter.PrincipalID)
		where += fmt.Sprintf(" AND principal_id = $%d", len(args))
	}
	if filter.IPAddress != "" {
		args = append(args, filter.IPAddress)
		where += fmt.Sprintf(" AND ip_address = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where += fmt.Sprintf(" AND occurred_at <= $%d", len(args))
	}

	var total int64
	err := r.pool.QueryRow(ctx, "SELECT count(*) FROM authentication_events"+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	args = append(args, normalizeLimit(page.Limit), page.Offset)
	query := `SELECT id, event_type, principal_id, email, role, ip_address, user_agent, success, occurred_at, failure_reason, two_factor_enabled
		 FROM authentication_events` + where +
		fmt.Sprintf(" ORDER BY occurred_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []AuthenticationEvent
	for rows.Next() {
		event, err := scanAuthEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, event)
	}
	return events, total, rows.Err()
}

// CountFailuresByIP counts LOGIN_FAILURE events from an IP since a time.
func (r *PostgresEventRepository) CountFailuresByIP(ctx context.Context, ipAddress string, since time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM authentication_events
		 WHERE event_type = $1 AND ip_address = $2 AND occurred_at >= $3`,
		AuthEventLoginFailure, ipAddress, since).Scan(&count)
	return count, err
}

// LastLoginSuccess returns the most recent successful login for a principal
// strictly before the given time.
func (r *PostgresEventRepository) LastLoginSuccess(ctx context.Context, principalID uuid.UUID, before time.Time) (AuthenticationEvent, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, event_type, principal_id, email, role, ip_address, user_agent, success, occurred_at, failure_reason, two_factor_enabled
		 FROM authentication_events
		 WHERE event_type = $1 AND principal_id = $2 AND occurred_at < $3
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT 1`,
		AuthEventLoginSuccess, principalID, before)

	event, err := scanAuthEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AuthenticationEvent{}, ErrEventNotFound
		}
		return AuthenticationEvent{}, err
	}
	return event, nil
}

func scanAuthEvent(row pgx.Row) (AuthenticationEvent, error) {
	var event AuthenticationEvent
	var principalID pgtype.UUID
	err := row.Scan(&event.ID, &event.EventType, &principalID, &event.Email,
		&event.Role, &event.IPAddress, &event.UserAgent, &event.Success,
		&event.Timestamp, &event.FailureReason, &event.TwoFactorEnabled)
	if err != nil {
		return AuthenticationEvent{}, err
	}
	if principalID.Valid {
		event.PrincipalID = principalID.Bytes
		event.PrincipalIDValid = true
	}
	return event, nil
}

func normalizeLimit(limit int32) int32 {
	if limit <= 0 {
		return 20
	}
	return limit
}
