package twofa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TwoFactorService is the facade collaborating services call for the full
// 2FA lifecycle: setup, verify-and-enable, ongoing verification, disable.
type TwoFactorService interface {
	BeginSetup(ctx context.Context, principalID uuid.UUID, label string) (SetupResult, error)
	ConfirmSetup(ctx context.Context, principalID uuid.UUID, passcode string) error
	Authenticate(ctx context.Context, principalID uuid.UUID, code string) (AuthResult, error)
	Disable(ctx context.Context, principalID uuid.UUID) error
	GetStatus(ctx context.Context, principalID uuid.UUID) (Status, error)
	RegenerateBackupCodes(ctx context.Context, principalID uuid.UUID) ([]string, error)
}

type (
	// SetupResult is returned by BeginSetup. The secret and backup codes are
	// shown to the principal once and are not retrievable later.
	SetupResult struct {
		Secret          string   `json:"secret"`
		ProvisioningURI string   `json:"provisioning_uri"`
		BackupCodes     []string `json:"backup_codes"`
	}

	// Status reports the current 2FA state of a principal.
	Status struct {
		Configured           bool      `json:"configured"`
		Pending              bool      `json:"pending"`
		Enabled              bool      `json:"enabled"`
		EnabledAt            time.Time `json:"enabled_at"`
		LastUsedAt           time.Time `json:"last_used_at"`
		RemainingBackupCodes int       `json:"remaining_backup_codes"`
	}
)

// AuthResult is the tri-state outcome of Authenticate. Callers must surface
// AuthNotConfigured differently from AuthInvalidCode only where the
// integrator has accepted the enumeration trade-off.
type AuthResult string

const (
	AuthOK            AuthResult = "ok"
	AuthInvalidCode   AuthResult = "invalid"
	AuthNotConfigured AuthResult = "not_configured"
)

const DefaultIssuer = "polisafe"

// TwoFaService implements TwoFactorService on top of a TwoFARepository.
// Secrets and backup codes are never cached between calls; every
// verification re-reads current state so a reset cannot leave a stale
// secret in play.
type TwoFaService struct {
	repo   TwoFARepository
	issuer string
	skew   uint
}

// Option configures a TwoFaService.
type Option func(*TwoFaService)

// WithIssuer sets the issuer name embedded in provisioning URIs.
func WithIssuer(issuer string) Option {
	return func(s *TwoFaService) {
		s.issuer = issuer
	}
}

// WithSkew sets the clock-skew window in time steps.
func WithSkew(skew uint) Option {
	return func(s *TwoFaService) {
		s.skew = skew
	}
}

// NewTwoFaService creates a new TwoFaService.
func NewTwoFaService(repo TwoFARepository, opts ...Option) *TwoFaService {
	s := &TwoFaService{
		repo:   repo,
		issuer: DefaultIssuer,
		skew:   DefaultSkew,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BeginSetup starts (or restarts) enrollment for a principal: generates a
// fresh secret and backup codes and persists them disabled, overwriting any
// prior unverified secret. Not valid while 2FA is enabled; Disable first.
func (s *TwoFaService) BeginSetup(ctx context.Context, principalID uuid.UUID, label string) (SetupResult, error) {
	record, err := s.repo.GetByPrincipalID(ctx, principalID)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return SetupResult{}, fmt.Errorf("failed to get 2FA record: %w", err)
	}
	if err == nil && record.Enabled {
		return SetupResult{}, fmt.Errorf("%w: 2FA already enabled, disable it before a new setup", ErrPreconditionFailed)
	}

	// Provisioning URIs need an account name; fall back to the principal ID.
	if label == "" {
		label = principalID.String()
	}

	key, err := GenerateTotpKey(s.issuer, label)
	if err != nil {
		return SetupResult{}, err
	}

	codes, err := GenerateBackupCodes(BackupCodeCount)
	if err != nil {
		return SetupResult{}, err
	}

	err = s.repo.ReplaceSecret(ctx, ReplaceSecretParams{
		PrincipalID: principalID,
		Secret:      key.Secret,
		BackupCodes: codes,
	})
	if err != nil {
		return SetupResult{}, fmt.Errorf("failed to store 2FA secret: %w", err)
	}

	slog.Info("Started 2FA setup", "principalID", principalID)
	return SetupResult{
		Secret:          key.Secret,
		ProvisioningURI: key.ProvisioningURI,
		BackupCodes:     codes,
	}, nil
}

// ConfirmSetup verifies a passcode against the pending secret and enables
// 2FA. On an invalid code the pending secret is left in place so the caller
// can retry without re-scanning the QR code.
func (s *TwoFaService) ConfirmSetup(ctx context.Context, principalID uuid.UUID, passcode string) error {
	record, err := s.repo.GetByPrincipalID(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ErrNotConfigured
		}
		return fmt.Errorf("failed to get 2FA record: %w", err)
	}
	if record.Enabled {
		return fmt.Errorf("%w: 2FA already enabled", ErrPreconditionFailed)
	}
	if record.Secret == "" {
		return fmt.Errorf("%w: no pending secret", ErrPreconditionFailed)
	}

	if !isSixDigits(passcode) {
		return ErrMalformedCode
	}

	valid, err := ValidateTotpPasscode(record.Secret, passcode, s.skew)
	if err != nil {
		return err
	}
	if !valid {
		return ErrInvalidCode
	}

	err = s.repo.MarkEnabled(ctx, principalID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to enable 2FA: %w", err)
	}

	slog.Info("Enabled 2FA", "principalID", principalID)
	return nil
}

// Authenticate verifies a code during login for an enabled principal. Backup
// codes are tried first (cheap set lookup, consumed on match), then TOTP.
// Either path updates lastUsedAt on success.
func (s *TwoFaService) Authenticate(ctx context.Context, principalID uuid.UUID, code string) (AuthResult, error) {
	record, err := s.repo.GetByPrincipalID(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return AuthNotConfigured, nil
		}
		return AuthInvalidCode, fmt.Errorf("failed to get 2FA record: %w", err)
	}
	if !record.Enabled {
		return AuthNotConfigured, nil
	}

	normalized := strings.ToUpper(strings.TrimSpace(code))
	if isBackupCodeShaped(normalized) {
		consumed, err := s.repo.ConsumeBackupCode(ctx, principalID, normalized)
		if err != nil {
			return AuthInvalidCode, fmt.Errorf("failed to consume backup code: %w", err)
		}
		if consumed {
			s.touchLastUsed(ctx, principalID)
			slog.Info("Authenticated with backup code", "principalID", principalID)
			return AuthOK, nil
		}
	}

	valid, err := ValidateTotpPasscode(record.Secret, code, s.skew)
	if err != nil {
		return AuthInvalidCode, err
	}
	if !valid {
		return AuthInvalidCode, nil
	}

	s.touchLastUsed(ctx, principalID)
	return AuthOK, nil
}

// Disable turns 2FA off while retaining the secret, permitting re-enable
// without re-scanning a QR code. Idempotent.
func (s *TwoFaService) Disable(ctx context.Context, principalID uuid.UUID) error {
	err := s.repo.MarkDisabled(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ErrNotConfigured
		}
		return fmt.Errorf("failed to disable 2FA: %w", err)
	}
	slog.Info("Disabled 2FA", "principalID", principalID)
	return nil
}

// GetStatus reports the principal's 2FA state. An unconfigured principal
// gets a zero status rather than an error so dashboards can render it.
func (s *TwoFaService) GetStatus(ctx context.Context, principalID uuid.UUID) (Status, error) {
	record, err := s.repo.GetByPrincipalID(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return Status{}, nil
		}
		return Status{}, fmt.Errorf("failed to get 2FA record: %w", err)
	}

	return Status{
		Configured:           true,
		Pending:              !record.Enabled && record.Secret != "",
		Enabled:              record.Enabled,
		EnabledAt:            record.EnabledAt,
		LastUsedAt:           record.LastUsedAt,
		RemainingBackupCodes: len(record.BackupCodes),
	}, nil
}

// RegenerateBackupCodes replaces the stored recovery-code set wholesale;
// previously issued codes become invalid immediately.
func (s *TwoFaService) RegenerateBackupCodes(ctx context.Context, principalID uuid.UUID) ([]string, error) {
	_, err := s.repo.GetByPrincipalID(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("failed to get 2FA record: %w", err)
	}

	codes, err := GenerateBackupCodes(BackupCodeCount)
	if err != nil {
		return nil, err
	}

	err = s.repo.ReplaceBackupCodes(ctx, principalID, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to replace backup codes: %w", err)
	}

	slog.Info("Regenerated backup codes", "principalID", principalID)
	return codes, nil
}

// touchLastUsed updates lastUsedAt; a failure here never fails the login.
func (s *TwoFaService) touchLastUsed(ctx context.Context, principalID uuid.UUID) {
	if err := s.repo.UpdateLastUsed(ctx, principalID, time.Now().UTC()); err != nil {
		slog.Warn("Failed to update 2FA last used time", "principalID", principalID, "error", err)
	}
}
