package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"

	"github.com/polisafe/authsec/pkg/anomaly"
	"github.com/polisafe/authsec/pkg/config"
	"github.com/polisafe/authsec/pkg/notification"
	"github.com/polisafe/authsec/pkg/ratelimit"
	"github.com/polisafe/authsec/pkg/secevent"
	seceventapi "github.com/polisafe/authsec/pkg/secevent/api"
	"github.com/polisafe/authsec/pkg/twofa"
	twofaapi "github.com/polisafe/authsec/pkg/twofa/api"
)

type Config struct {
	Database  config.DatabaseConfig
	Security  config.SecurityConfig
	AdminAuth config.AdminAuthConfig
	Alert     config.AlertConfig
	Email     config.EmailConfig
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}

	var pool *pgxpool.Pool
	if cfg.Security.PersistenceType == "postgres" || cfg.Security.PersistenceType == "postgresql" {
		var err error
		pool, err = pgxpool.New(context.Background(), cfg.Database.ToDatabaseURL())
		if err != nil {
			slog.Error("Failed to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
	}

	twoFaRepo, err := twofa.NewTwoFARepository(cfg.Security.PersistenceType, twofa.RepositoryConfig{Pool: pool})
	if err != nil {
		slog.Error("Failed to create 2FA repository", "error", err)
		os.Exit(1)
	}

	eventRepo, err := secevent.NewEventRepository(cfg.Security.PersistenceType, secevent.RepositoryConfig{Pool: pool})
	if err != nil {
		slog.Error("Failed to create event repository", "error", err)
		os.Exit(1)
	}

	// Event writes degrade to the console sink rather than failing logins.
	sink := secevent.NewFallbackSink(
		secevent.NewRepositorySink(eventRepo, time.Duration(cfg.Security.SinkTimeoutMillis)*time.Millisecond),
		secevent.NewConsoleSink(nil),
	)
	eventService := secevent.NewEventService(eventRepo, sink)

	notificationManager := notification.NewNotificationManager()
	if cfg.Alert.WebhookURL != "" {
		notificationManager.RegisterNotifier(notification.WebhookSystem, notification.NewWebhookNotifier(cfg.Alert.WebhookURL))
	}
	if cfg.Alert.EmailTo != "" {
		emailNotifier, err := notification.NewEmailNotifier(notification.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			TLS:      cfg.Email.TLS,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		})
		if err != nil {
			slog.Error("Failed to create email notifier", "error", err)
			os.Exit(1)
		}
		notificationManager.RegisterNotifier(notification.EmailSystem, emailNotifier)
	}

	detector := anomaly.NewDetector(eventRepo, eventService,
		anomaly.WithDispatcher(anomaly.NewNotifierDispatcher(notificationManager, cfg.Alert.EmailTo)),
		anomaly.WithFailureThreshold(cfg.Security.FailureThreshold),
		anomaly.WithFailureWindow(time.Duration(cfg.Security.FailureWindowMinutes)*time.Minute),
	)
	eventService.AddAuthEventHook(detector.OnAuthenticationEvent)

	twoFaService := twofa.NewTwoFaService(twoFaRepo,
		twofa.WithIssuer(cfg.Security.TotpIssuer),
		twofa.WithSkew(cfg.Security.TotpSkew),
	)

	twoFaHandle := twofaapi.NewHandle(twoFaService, cfg.Security.ExposeEnrollmentState)
	eventsHandle := seceventapi.NewHandle(eventService)

	adminTokenAuth := jwtauth.New("HS256", []byte(cfg.AdminAuth.JwtSecret), nil)

	myApp := app.Default()

	// Per-IP throttling on the code endpoints slows online guessing; the
	// anomaly detector watches the same traffic but only observes and alerts.
	twoFaRouter := chi.NewRouter()
	if cfg.Security.VerifyRatePerMinute > 0 {
		verifyLimiter := ratelimit.NewLimiter(cfg.Security.VerifyRateBurst, cfg.Security.VerifyRatePerMinute/60.0, time.Hour)
		twoFaRouter.Use(ratelimit.PerIP(verifyLimiter))
	}
	twoFaRouter.Mount("/", twofaapi.TwoFaHandler(twoFaHandle))

	myApp.R.Mount("/api/2fa", twoFaRouter)
	myApp.R.Mount("/api/events", seceventapi.RecordHandler(eventsHandle))

	// Admin query surface sits behind bearer-token verification; token
	// issuance belongs to the collaborating identity service.
	myApp.R.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(adminTokenAuth))
		r.Use(jwtauth.Authenticator(adminTokenAuth))
		r.Mount("/api/admin", seceventapi.QueryHandler(eventsHandle))
	})

	slog.Info("Starting authsec",
		"persistence", cfg.Security.PersistenceType,
		"totpIssuer", cfg.Security.TotpIssuer,
		"failureThreshold", cfg.Security.FailureThreshold)
	myApp.Run()
}
