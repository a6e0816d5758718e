package twofa

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// TotpPeriod is the RFC 6238 time step in seconds. Third-party
	// authenticator apps assume 30; do not change without re-enrolling
	// every principal.
	TotpPeriod = 30

	// DefaultSkew is the number of adjacent time steps accepted on either
	// side of the current one, tolerating about ±60s of clock drift.
	DefaultSkew = 2

	// SecretSize is the TOTP seed length in bytes (160 bits).
	SecretSize = 20
)

// TotpKey is the result of generating a new TOTP secret for a principal.
type TotpKey struct {
	// Secret is the base32-encoded seed.
	Secret string
	// ProvisioningURI is the otpauth:// URL for authenticator-app enrollment.
	ProvisioningURI string
}

// GenerateTotpKey produces a new random TOTP secret and the provisioning URI
// embedding the issuer and account label.
func GenerateTotpKey(issuer, accountLabel string) (TotpKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountLabel,
		Period:      TotpPeriod,
		SecretSize:  SecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		slog.Error("Failed to generate totp secret", "issuer", issuer, "error", err)
		return TotpKey{}, fmt.Errorf("failed to generate totp secret: %w", err)
	}
	return TotpKey{Secret: key.Secret(), ProvisioningURI: key.URL()}, nil
}

// GenerateTotpPasscode computes the passcode for the current time step.
func GenerateTotpPasscode(secret string) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    TotpPeriod,
		Skew:      DefaultSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate totp passcode: %w", err)
	}
	return code, nil
}

// ValidateTotpPasscode checks the passcode against the current time step and
// skew adjacent steps on either side. Inputs that are not six digits are
// rejected before any HMAC is computed; matching uses the library's
// constant-time comparison. An incorrect but well-formed code returns
// (false, nil), never an error.
func ValidateTotpPasscode(secret, passcode string, skew uint) (bool, error) {
	if !isSixDigits(passcode) {
		return false, nil
	}

	valid, err := totp.ValidateCustom(passcode, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    TotpPeriod,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		slog.Error("Failed to validate totp passcode", "error", err)
		return false, fmt.Errorf("failed to validate totp passcode: %w", err)
	}
	return valid, nil
}

func isSixDigits(passcode string) bool {
	if len(passcode) != 6 {
		return false
	}
	for _, c := range passcode {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
