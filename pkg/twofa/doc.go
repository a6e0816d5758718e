// Package twofa provides TOTP-based two-factor authentication for authsec.
//
// # Overview
//
// The twofa package provides:
//   - TOTP (Time-based One-Time Password, RFC 6238) secret generation with
//     provisioning URIs for authenticator apps
//   - Windowed passcode verification with configurable clock-skew tolerance
//   - Single-use backup (recovery) codes with atomic consumption
//   - A setup -> verify-and-enable -> verify -> disable lifecycle per principal
//
// # Lifecycle
//
// A principal moves through four states: unconfigured, pending verification,
// enabled, and disabled. BeginSetup writes a fresh secret (disabled) and
// returns the provisioning URI plus backup codes; ConfirmSetup enables 2FA
// only after the principal proves possession of the secret by submitting a
// valid passcode; Disable retains the secret so 2FA can be re-enabled without
// re-enrollment; a later BeginSetup replaces the secret wholesale.
//
// # Basic Usage
//
//	repo := twofa.NewInMemoryTwoFARepository()
//	service := twofa.NewTwoFaService(repo,
//		twofa.WithIssuer("polisafe"),
//		twofa.WithSkew(2),
//	)
//
//	setup, err := service.BeginSetup(ctx, principalID, "user@example.com")
//	// principal scans setup.ProvisioningURI, then:
//	err = service.ConfirmSetup(ctx, principalID, "123456")
//
//	result, err := service.Authenticate(ctx, principalID, code)
//	switch result {
//	case twofa.AuthOK:
//	case twofa.AuthInvalidCode:
//	case twofa.AuthNotConfigured:
//	}
//
// # Storage
//
// TwoFARepository has PostgreSQL (pgx) and in-memory implementations; use
// NewTwoFARepository to select one by persistence type. Per-principal
// mutations are atomic per record in both: the Postgres implementation uses
// single-statement conditioned updates, the in-memory one a write lock, so
// two concurrent consumers of the same backup code cannot both succeed.
package twofa
