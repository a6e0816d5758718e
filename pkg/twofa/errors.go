package twofa

import "errors"

// Package-level errors returned by TwoFaService. Callers are expected to
// discriminate with errors.Is so a login UI can render "wrong code" without
// treating it as a server failure.
var (
	// ErrNotConfigured means 2FA was never set up (or was reset) for the principal.
	ErrNotConfigured = errors.New("two-factor authentication not configured")

	// ErrNotEnabled means a record exists but has not been verified yet.
	ErrNotEnabled = errors.New("two-factor authentication not enabled")

	// ErrPreconditionFailed means a state transition was attempted from the
	// wrong state, e.g. ConfirmSetup with no pending secret.
	ErrPreconditionFailed = errors.New("two-factor state transition not allowed")

	// ErrInvalidCode means a well-formed code that did not match TOTP or any
	// backup code.
	ErrInvalidCode = errors.New("invalid two-factor code")

	// ErrMalformedCode means the input does not look like a TOTP passcode or
	// a backup code. Rejected before any secret comparison.
	ErrMalformedCode = errors.New("malformed two-factor code")

	// ErrRecordNotFound is returned by repositories when no record exists for
	// the principal.
	ErrRecordNotFound = errors.New("two-factor record not found")
)
