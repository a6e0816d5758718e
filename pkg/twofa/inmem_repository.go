package twofa

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryTwoFARepository implements TwoFARepository using in-memory storage.
// Used for tests and single-process deployments.
type InMemoryTwoFARepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]TwoFactorEntity
}

// NewInMemoryTwoFARepository creates a new in-memory 2FA repository.
func NewInMemoryTwoFARepository() *InMemoryTwoFARepository {
	return &InMemoryTwoFARepository{
		records: make(map[uuid.UUID]TwoFactorEntity),
	}
}

// GetByPrincipalID retrieves the 2FA record for a principal.
func (r *InMemoryTwoFARepository) GetByPrincipalID(ctx context.Context, principalID uuid.UUID) (TwoFactorEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[principalID]
	if !ok {
		return TwoFactorEntity{}, ErrRecordNotFound
	}
	// Copy the slice so callers cannot mutate stored state.
	record.BackupCodes = slices.Clone(record.BackupCodes)
	return record, nil
}

// ReplaceSecret creates the record or overwrites an existing one with a fresh
// secret and backup codes, always disabled.
func (r *InMemoryTwoFARepository) ReplaceSecret(ctx context.Context, params ReplaceSecretParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	record, ok := r.records[params.PrincipalID]
	if !ok {
		record = TwoFactorEntity{
			PrincipalID: params.PrincipalID,
			CreatedAt:   now,
		}
	}
	record.Secret = params.Secret
	record.BackupCodes = slices.Clone(params.BackupCodes)
	record.Enabled = false
	record.EnabledAt = time.Time{}
	record.EnabledAtValid = false
	record.UpdatedAt = now

	r.records[params.PrincipalID] = record
	return nil
}

// MarkEnabled flips the record to enabled.
func (r *InMemoryTwoFARepository) MarkEnabled(ctx context.Context, principalID uuid.UUID, enabledAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[principalID]
	if !ok || record.Enabled || record.Secret == "" {
		return ErrRecordNotFound
	}

	record.Enabled = true
	record.EnabledAt = enabledAt
	record.EnabledAtValid = true
	record.UpdatedAt = time.Now().UTC()
	r.records[principalID] = record
	return nil
}

// MarkDisabled flips the record to disabled, retaining the secret. Idempotent.
func (r *InMemoryTwoFARepository) MarkDisabled(ctx context.Context, principalID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[principalID]
	if !ok {
		return ErrRecordNotFound
	}

	record.Enabled = false
	record.UpdatedAt = time.Now().UTC()
	r.records[principalID] = record
	return nil
}

// UpdateLastUsed records a successful verification time.
func (r *InMemoryTwoFARepository) UpdateLastUsed(ctx context.Context, principalID uuid.UUID, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[principalID]
	if !ok {
		return ErrRecordNotFound
	}

	record.LastUsedAt = usedAt
	record.LastUsedAtValid = true
	record.UpdatedAt = time.Now().UTC()
	r.records[principalID] = record
	return nil
}

// ConsumeBackupCode removes the code from the stored set if present. The
// whole check-and-remove runs under the write lock, so only one of two
// concurrent consumers can succeed.
func (r *InMemoryTwoFARepository) ConsumeBackupCode(ctx context.Context, principalID uuid.UUID, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[principalID]
	if !ok {
		return false, ErrRecordNotFound
	}

	idx := slices.Index(record.BackupCodes, code)
	if idx < 0 {
		return false, nil
	}

	record.BackupCodes = slices.Delete(slices.Clone(record.BackupCodes), idx, idx+1)
	record.UpdatedAt = time.Now().UTC()
	r.records[principalID] = record
	return true, nil
}

// ReplaceBackupCodes discards the stored set and replaces it wholesale.
func (r *InMemoryTwoFARepository) ReplaceBackupCodes(ctx context.Context, principalID uuid.UUID, codes []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[principalID]
	if !ok {
		return ErrRecordNotFound
	}

	record.BackupCodes = slices.Clone(codes)
	record.UpdatedAt = time.Now().UTC()
	r.records[principalID] = record
	return nil
}
