package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/cyberguard/cyberguard/pkg/accounts"
	"github.com/cyberguard/cyberguard/pkg/audit"
	"github.com/cyberguard/cyberguard/pkg/auth"
	authapi "github.com/cyberguard/cyberguard/pkg/auth/api"
	"github.com/cyberguard/cyberguard/pkg/monitor"
	monitorapi "github.com/cyberguard/cyberguard/pkg/monitor/api"
	"github.com/cyberguard/cyberguard/pkg/notification"
	"github.com/cyberguard/cyberguard/pkg/ratelimit"
	"github.com/cyberguard/cyberguard/pkg/sessions"
)

type DbConfig struct {
	Host     string `env:"CYBERGUARD_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"CYBERGUARD_PG_PORT" env-default:"5432"`
	Database string `env:"CYBERGUARD_PG_DATABASE" env-default:"cyberguard_db"`
	User     string `env:"CYBERGUARD_PG_USER" env-default:"cyberguard"`
	Password string `env:"CYBERGUARD_PG_PASSWORD" env-default:"pwd"`
}

func (d DbConfig) toDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Database)
}

type EmailConfig struct {
	Host     string `env:"EMAIL_HOST" env-default:"localhost"`
	Port     int    `env:"EMAIL_PORT" env-default:"1025"`
	Username string `env:"EMAIL_USERNAME" env-default:""`
	Password string `env:"EMAIL_PASSWORD" env-default:""`
	From     string `env:"EMAIL_FROM" env-default:"noreply@cyberguard.local"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"false"`
}

type AuthConfig struct {
	MaxFailedAttempts int           `env:"AUTH_MAX_FAILED_ATTEMPTS" env-default:"5"`
	AttemptWindow     time.Duration `env:"AUTH_ATTEMPT_WINDOW" env-default:"15m"`
	LoginCodeExpiry   time.Duration `env:"AUTH_LOGIN_CODE_EXPIRY" env-default:"15m"`
	ResetCodeExpiry   time.Duration `env:"AUTH_RESET_CODE_EXPIRY" env-default:"30m"`
}

type SessionConfig struct {
	TTL           time.Duration `env:"SESSION_TTL" env-default:"24h"`
	CookieSecure  bool          `env:"SESSION_COOKIE_SECURE" env-default:"false"`
	PurgeInterval time.Duration `env:"SESSION_PURGE_INTERVAL" env-default:"1h"`
}

type RateLimitConfig struct {
	GlobalEnabled    bool    `env:"RATELIMIT_GLOBAL_ENABLED" env-default:"true"`
	GlobalCapacity   int     `env:"RATELIMIT_GLOBAL_CAPACITY" env-default:"1000"`
	GlobalRefillRate float64 `env:"RATELIMIT_GLOBAL_REFILL_RATE" env-default:"16.67"`

	PerIPEnabled    bool    `env:"RATELIMIT_PER_IP_ENABLED" env-default:"true"`
	PerIPCapacity   int     `env:"RATELIMIT_PER_IP_CAPACITY" env-default:"100"`
	PerIPRefillRate float64 `env:"RATELIMIT_PER_IP_REFILL_RATE" env-default:"1.67"`

	LoginCapacity   int     `env:"RATELIMIT_LOGIN_CAPACITY" env-default:"10"`
	LoginRefillRate float64 `env:"RATELIMIT_LOGIN_REFILL_RATE" env-default:"0.167"`

	RegisterCapacity   int     `env:"RATELIMIT_REGISTER_CAPACITY" env-default:"5"`
	RegisterRefillRate float64 `env:"RATELIMIT_REGISTER_REFILL_RATE" env-default:"0.017"`

	ResetCapacity   int     `env:"RATELIMIT_RESET_CAPACITY" env-default:"3"`
	ResetRefillRate float64 `env:"RATELIMIT_RESET_REFILL_RATE" env-default:"0.00083"`

	IncludeHeaders bool `env:"RATELIMIT_INCLUDE_HEADERS" env-default:"true"`
}

type Config struct {
	Addr            string `env:"CYBERGUARD_ADDR" env-default:":4000"`
	Store           string `env:"CYBERGUARD_STORE" env-default:"postgres"`
	AuditEnabled    bool   `env:"CYBERGUARD_AUDIT_ENABLED" env-default:"true"`
	DbConfig        DbConfig
	EmailConfig     EmailConfig
	AuthConfig      AuthConfig
	SessionConfig   SessionConfig
	RateLimitConfig RateLimitConfig
}

// loadEnvFile loads environment variables from a .env file next to the
// executable or in the working directory, without overriding variables that
// are already set.
func loadEnvFile() {
	candidates := []string{}
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), ".env"))
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, ".env"))
	}

	for _, envFile := range candidates {
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			slog.Error("Failed to load .env file", "error", err, "path", envFile)
			return
		}
		slog.Info("Configuration loaded from .env file", "path", envFile)
		return
	}
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	loadEnvFile()

	config := Config{}
	cleanenv.ReadEnv(&config)

	var (
		accountRepo accounts.Repository
		sessionRepo sessions.Repository
		monitorRepo monitor.Repository
	)

	switch config.Store {
	case "memory":
		slog.Info("Using in-memory stores")
		accountRepo = accounts.NewInMemoryRepository()
		sessionRepo = sessions.NewInMemoryRepository()
		monitorRepo = monitor.NewInMemoryRepository()
	default:
		dbURL := config.DbConfig.toDatabaseURL()
		slog.Info("Connecting to database", "host", config.DbConfig.Host, "database", config.DbConfig.Database)
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("Failed to create database pool", "error", err)
			os.Exit(-1)
		}
		defer pool.Close()
		accountRepo = accounts.NewPostgresRepository(pool)
		sessionRepo = sessions.NewPostgresRepository(pool)
		monitorRepo = monitor.NewPostgresRepository(pool)
	}

	notificationManager, err := notification.NewNotificationManager(
		notification.WithSMTP(notification.SMTPConfig{
			Host:     config.EmailConfig.Host,
			Port:     config.EmailConfig.Port,
			Username: config.EmailConfig.Username,
			Password: config.EmailConfig.Password,
			From:     config.EmailConfig.From,
			TLS:      config.EmailConfig.TLS,
		}),
		notification.WithDefaultTemplates(),
	)
	if err != nil {
		slog.Error("Failed to initialize notification manager", "error", err)
		os.Exit(-1)
	}

	authService := auth.NewService(accountRepo,
		auth.WithNotificationManager(notificationManager),
		auth.WithMaxFailedAttempts(config.AuthConfig.MaxFailedAttempts),
		auth.WithAttemptWindow(config.AuthConfig.AttemptWindow),
		auth.WithLoginCodeExpiry(config.AuthConfig.LoginCodeExpiry),
		auth.WithResetCodeExpiry(config.AuthConfig.ResetCodeExpiry),
	)
	sessionService := sessions.NewService(sessionRepo, sessions.WithTTL(config.SessionConfig.TTL))
	monitorService := monitor.NewService(monitorRepo)

	cookieConfig := sessions.CookieConfig{
		Secure: config.SessionConfig.CookieSecure,
		Path:   "/",
	}

	authHandle := authapi.NewAuthHandler(authService, sessionService, cookieConfig)
	monitorHandle := monitorapi.NewMonitorHandler(monitorService)

	// Session purge loop
	go func() {
		ticker := time.NewTicker(config.SessionConfig.PurgeInterval)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := sessionService.PurgeExpired(context.Background()); err != nil {
				slog.Error("Session purge failed", "error", err)
			}
		}
	}()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	rateLimitMiddleware := createRateLimitMiddleware(&config.RateLimitConfig)
	r.Use(rateLimitMiddleware.Handler)
	slog.Info("Rate limiting configured",
		"global", config.RateLimitConfig.GlobalEnabled,
		"per_ip", config.RateLimitConfig.PerIPEnabled)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, http.StatusText(http.StatusOK))
	})

	r.Route("/api", func(api chi.Router) {
		authHandle.RegisterRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(sessions.RequireSession(sessionService, cookieConfig))
			if config.AuditEnabled {
				auditMiddleware, err := audit.NewMiddleware(audit.Config{Recorder: monitorService})
				if err != nil {
					slog.Error("Failed to initialize audit middleware", "error", err)
					os.Exit(-1)
				}
				protected.Use(auditMiddleware.Handler)
			}
			monitorHandle.RegisterRoutes(protected)
		})
	})

	slog.Info("Starting server", "addr", config.Addr)
	if err := http.ListenAndServe(config.Addr, r); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(-1)
	}
}

func createRateLimitMiddleware(cfg *RateLimitConfig) *ratelimit.Middleware {
	rateLimitConfig := ratelimit.DefaultConfig()

	rateLimitConfig.GlobalEnabled = cfg.GlobalEnabled
	rateLimitConfig.GlobalCapacity = cfg.GlobalCapacity
	rateLimitConfig.GlobalRefillRate = cfg.GlobalRefillRate

	rateLimitConfig.PerIPEnabled = cfg.PerIPEnabled
	rateLimitConfig.PerIPCapacity = cfg.PerIPCapacity
	rateLimitConfig.PerIPRefillRate = cfg.PerIPRefillRate

	rateLimitConfig.IncludeHeaders = cfg.IncludeHeaders

	// Tighter buckets on the credential endpoints
	rateLimitConfig.EndpointLimits = map[string]ratelimit.EndpointLimit{
		"POST /api/login": {
			Capacity:   cfg.LoginCapacity,
			RefillRate: cfg.LoginRefillRate,
		},
		"POST /api/register": {
			Capacity:   cfg.RegisterCapacity,
			RefillRate: cfg.RegisterRefillRate,
		},
		"POST /api/reset-password": {
			Capacity:   cfg.ResetCapacity,
			RefillRate: cfg.ResetRefillRate,
		},
	}

	return ratelimit.NewMiddleware(rateLimitConfig)
}
