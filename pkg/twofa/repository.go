package twofa

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TwoFactorEntity represents a 2FA record without database-specific types.
// One record exists per principal; the secret is replaced wholesale on a new
// setup, never merged.
type TwoFactorEntity struct {
	PrincipalID     uuid.UUID
	Secret          string
	BackupCodes     []string
	Enabled         bool
	EnabledAt       time.Time
	EnabledAtValid  bool
	LastUsedAt      time.Time
	LastUsedAtValid bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ReplaceSecretParams represents parameters for creating or resetting a 2FA
// record. The record is always written disabled; enabling requires a
// successful code verification.
type ReplaceSecretParams struct {
	PrincipalID uuid.UUID
	Secret      string
	BackupCodes []string
}

// TwoFARepository defines the storage operations for 2FA records. Mutations
// keyed by principal must be atomic per record: two concurrent consumptions
// of the same backup code must not both succeed.
type TwoFARepository interface {
	GetByPrincipalID(ctx context.Context, principalID uuid.UUID) (TwoFactorEntity, error)
	ReplaceSecret(ctx context.Context, params ReplaceSecretParams) error
	MarkEnabled(ctx context.Context, principalID uuid.UUID, enabledAt time.Time) error
	MarkDisabled(ctx context.Context, principalID uuid.UUID) error
	UpdateLastUsed(ctx context.Context, principalID uuid.UUID, usedAt time.Time) error
	// ConsumeBackupCode removes the code from the stored set if present and
	// reports whether it was consumed. The check-and-remove is a single
	// atomic operation.
	ConsumeBackupCode(ctx context.Context, principalID uuid.UUID, code string) (bool, error)
	ReplaceBackupCodes(ctx context.Context, principalID uuid.UUID, codes []string) error
}

// PostgresTwoFARepository implements TwoFARepository using PostgreSQL.
type PostgresTwoFARepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTwoFARepository creates a new PostgreSQL-based 2FA repository.
func NewPostgresTwoFARepository(pool *pgxpool.Pool) *PostgresTwoFARepository {
	return &PostgresTwoFARepository{pool: pool}
}

// GetByPrincipalID retrieves the 2FA record for a principal.
func (r *PostgresTwoFARepository) GetByPrincipalID(ctx context.Context, principalID uuid.UUID) (TwoFactorEntity, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT principal_id, secret, backup_codes, is_enabled, enabled_at, last_used_at, created_at, updated_at
		 FROM two_factor_records
		 WHERE principal_id = $1`,
		principalID)

	var entity TwoFactorEntity
	var enabledAt, lastUsedAt pgtype.Timestamptz
	err := row.Scan(&entity.PrincipalID, &entity.Secret, &entity.BackupCodes,
		&entity.Enabled, &enabledAt, &lastUsedAt, &entity.CreatedAt, &entity.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TwoFactorEntity{}, ErrRecordNotFound
		}
		return TwoFactorEntity{}, err
	}

	entity.EnabledAt = enabledAt.Time
	entity.EnabledAtValid = enabledAt.Valid
	entity.LastUsedAt = lastUsedAt.Time
	entity.LastUsedAtValid = lastUsedAt.Valid
	return entity, nil
}

// ReplaceSecret creates the record or overwrites an existing one with a fresh
// secret and backup codes, always disabled.
func (r *PostgresTwoFARepository) ReplaceSecret(ctx context.Context, params ReplaceSecretParams) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO two_factor_records (principal_id, secret, backup_codes, is_enabled, created_at, updated_at)
		 VALUES ($1, $2, $3, false, now(), now())
		 ON CONFLICT (principal_id) DO UPDATE
		 SET secret = EXCLUDED.secret,
		     backup_codes = EXCLUDED.backup_codes,
		     is_enabled = false,
		     enabled_at = NULL,
		     updated_at = now()`,
		params.PrincipalID, params.Secret, params.BackupCodes)
	return err
}

// MarkEnabled flips the record to enabled. The row condition keeps two
// concurrent ConfirmSetup calls from both succeeding.
func (r *PostgresTwoFARepository) MarkEnabled(ctx context.Context, principalID uuid.UUID, enabledAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE two_factor_records
		 SET is_enabled = true, enabled_at = $2, updated_at = now()
		 WHERE principal_id = $1 AND is_enabled = false AND secret <> ''`,
		principalID, enabledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// MarkDisabled flips the record to disabled, retaining the secret. Idempotent.
func (r *PostgresTwoFARepository) MarkDisabled(ctx context.Context, principalID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE two_factor_records
		 SET is_enabled = false, updated_at = now()
		 WHERE principal_id = $1`,
		principalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// UpdateLastUsed records a successful verification time.
func (r *PostgresTwoFARepository) UpdateLastUsed(ctx context.Context, principalID uuid.UUID, usedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE two_factor_records
		 SET last_used_at = $2, updated_at = now()
		 WHERE principal_id = $1`,
		principalID, usedAt)
	return err
}

// ConsumeBackupCode removes the code in a single statement. The ANY condition
// and array_remove run in the same row update, so only one of two concurrent
// consumers can see the code present.
func (r *PostgresTwoFARepository) ConsumeBackupCode(ctx context.Context, principalID uuid.UUID, code string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE two_factor_records
		 SET backup_codes = array_remove(backup_codes, $2), updated_at = now()
		 WHERE principal_id = $1 AND $2 = ANY(backup_codes)`,
		principalID, code)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ReplaceBackupCodes discards the stored set and replaces it wholesale.
func (r *PostgresTwoFARepository) ReplaceBackupCodes(ctx context.Context, principalID uuid.UUID, codes []string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE two_factor_records
		 SET backup_codes = $2, updated_at = now()
		 WHERE principal_id = $1`,
		principalID, codes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}
