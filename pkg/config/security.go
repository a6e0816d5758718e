package config

// SecurityConfig contains 2FA and anomaly-detection settings.
type SecurityConfig struct {
	// PersistenceType selects the storage backend: postgres or memory.
	PersistenceType string `env:"AUTHSEC_PERSISTENCE" env-default:"postgres"`

	// TotpIssuer is the issuer name shown in authenticator apps.
	TotpIssuer string `env:"AUTHSEC_TOTP_ISSUER" env-default:"polisafe"`

	// TotpSkew is the clock-skew tolerance in 30-second steps.
	TotpSkew uint `env:"AUTHSEC_TOTP_SKEW" env-default:"2"`

	// FailureThreshold is the per-IP failure count that flags brute force.
	FailureThreshold int64 `env:"AUTHSEC_FAILURE_THRESHOLD" env-default:"5"`

	// FailureWindowMinutes is the trailing brute-force scan window.
	FailureWindowMinutes int `env:"AUTHSEC_FAILURE_WINDOW_MINUTES" env-default:"15"`

	// SinkTimeoutMillis bounds event-log writes before degrading to console.
	SinkTimeoutMillis int `env:"AUTHSEC_SINK_TIMEOUT_MILLIS" env-default:"500"`

	// ExposeEnrollmentState lets /verify distinguish not_configured from
	// invalid. Off by default: the distinction enables account enumeration.
	ExposeEnrollmentState bool `env:"AUTHSEC_EXPOSE_ENROLLMENT_STATE" env-default:"false"`

	// VerifyRateBurst is the per-IP burst allowed on the 2FA endpoints.
	VerifyRateBurst int `env:"AUTHSEC_VERIFY_RATE_BURST" env-default:"10"`

	// VerifyRatePerMinute is the sustained per-IP request rate on the 2FA
	// endpoints. Zero disables rate limiting.
	VerifyRatePerMinute float64 `env:"AUTHSEC_VERIFY_RATE_PER_MINUTE" env-default:"30"`
}

// AdminAuthConfig configures bearer-token verification for the admin query
// endpoints. Token issuance belongs to the collaborating identity service.
type AdminAuthConfig struct {
	JwtSecret string `env:"AUTHSEC_ADMIN_JWT_SECRET" env-default:"very-secure-jwt-secret"`
}
