package config

// AlertConfig selects the channels that receive HIGH/CRITICAL security
// alerts. Empty values disable the channel.
type AlertConfig struct {
	WebhookURL string `env:"AUTHSEC_ALERT_WEBHOOK_URL"`
	EmailTo    string `env:"AUTHSEC_ALERT_EMAIL_TO"`
}

// EmailConfig holds SMTP settings for the email alert channel.
type EmailConfig struct {
	Host     string `env:"AUTHSEC_EMAIL_HOST" env-default:"localhost"`
	Port     int    `env:"AUTHSEC_EMAIL_PORT" env-default:"1025"`
	Username string `env:"AUTHSEC_EMAIL_USERNAME"`
	Password string `env:"AUTHSEC_EMAIL_PASSWORD"`
	From     string `env:"AUTHSEC_EMAIL_FROM" env-default:"alerts@example.com"`
	TLS      bool   `env:"AUTHSEC_EMAIL_TLS" env-default:"false"`
}
