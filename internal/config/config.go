package config

import (
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // No authentication required (default)
	AuthModeLocal AuthMode = "local" // Local user database with sessions and API tokens
)

type (
	Config struct {
		HTTP
		Global
		Database
		Log
		Steam
		IGDB
		Import
		RateLimit
		Tasks
		Scheduler
		Auth
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Log struct {
		Level string // debug, info, warn, error
	}
	Steam struct {
		APIKey  string
		BaseURL string
		Timeout time.Duration
	}
	IGDB struct {
		ClientID       string
		ClientSecret   string
		BaseURL        string
		TokenURL       string
		RequestsPerSec int
		SearchLimit    int
		Timeout        time.Duration
	}
	Import struct {
		Workers int // Size of the per-run worker pool
	}
	RateLimit struct {
		// Requests admitted per window on the import HTTP endpoints, keyed by client IP.
		RequestLimit  int
		RequestWindow time.Duration

		// Catalog searches admitted per window, keyed by user account.
		CatalogLimit  int
		CatalogWindow time.Duration

		SweepInterval time.Duration // In-process fallback sweep
		ProbeInterval time.Duration // How long to stay on the fallback before retrying the shared store
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Scheduler struct {
		Enabled            bool
		RateLimitCleanup   string // Cron format: "*/15 * * * *"
		ImportRunRetention string // Cron format: "0 3 * * *"
		RunRetentionDays   int
		AuditRetentionDays int
	}
	Auth struct {
		Mode            AuthMode
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		LockoutDuration time.Duration
		SecureCookies   bool // Set to false for local dev without HTTPS
		CSRFSecret      string
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("log_level", "info")

	// External services
	v.SetDefault("steam_api_key", "")
	v.SetDefault("steam_base_url", DefaultSteamBaseURL)
	v.SetDefault("steam_timeout", "30s")
	v.SetDefault("igdb_client_id", "")
	v.SetDefault("igdb_client_secret", "")
	v.SetDefault("igdb_base_url", DefaultIGDBBaseURL)
	v.SetDefault("igdb_token_url", DefaultTwitchTokenURL)
	v.SetDefault("igdb_requests_per_second", 4)
	v.SetDefault("igdb_search_limit", 10)
	v.SetDefault("igdb_timeout", "10s")

	// Import pipeline
	v.SetDefault("import_workers", 4)

	// Rate limiting
	v.SetDefault("rate_limit_request_limit", 20)
	v.SetDefault("rate_limit_request_window", "1h")
	v.SetDefault("rate_limit_catalog_limit", 600)
	v.SetDefault("rate_limit_catalog_window", "1h")
	v.SetDefault("rate_limit_sweep_interval", "5m")
	v.SetDefault("rate_limit_probe_interval", "10s")

	// Task queue
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	// Maintenance scheduler
	v.SetDefault("scheduler_enabled", true)
	v.SetDefault("scheduler_rate_limit_cleanup", "*/15 * * * *")
	v.SetDefault("scheduler_import_run_retention", "0 3 * * *")
	v.SetDefault("import_run_retention_days", 30)
	v.SetDefault("audit_retention_days", 90)

	// Auth
	v.SetDefault("auth_mode", "none")
	v.SetDefault("auth_session_lifetime", "24h")
	v.SetDefault("auth_token_expiry", "720h") // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_lockout_duration", "30m")
	v.SetDefault("auth_secure_cookies", true)
	v.SetDefault("auth_csrf_secret", "") // Auto-generated if empty

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Log: Log{
			Level: v.GetString("LOG_LEVEL"),
		},
		Steam: Steam{
			APIKey:  v.GetString("STEAM_API_KEY"),
			BaseURL: v.GetString("STEAM_BASE_URL"),
			Timeout: v.GetDuration("STEAM_TIMEOUT"),
		},
		IGDB: IGDB{
			ClientID:       v.GetString("IGDB_CLIENT_ID"),
			ClientSecret:   v.GetString("IGDB_CLIENT_SECRET"),
			BaseURL:        v.GetString("IGDB_BASE_URL"),
			TokenURL:       v.GetString("IGDB_TOKEN_URL"),
			RequestsPerSec: v.GetInt("IGDB_REQUESTS_PER_SECOND"),
			SearchLimit:    v.GetInt("IGDB_SEARCH_LIMIT"),
			Timeout:        v.GetDuration("IGDB_TIMEOUT"),
		},
		Import: Import{
			Workers: v.GetInt("IMPORT_WORKERS"),
		},
		RateLimit: RateLimit{
			RequestLimit:  v.GetInt("RATE_LIMIT_REQUEST_LIMIT"),
			RequestWindow: v.GetDuration("RATE_LIMIT_REQUEST_WINDOW"),
			CatalogLimit:  v.GetInt("RATE_LIMIT_CATALOG_LIMIT"),
			CatalogWindow: v.GetDuration("RATE_LIMIT_CATALOG_WINDOW"),
			SweepInterval: v.GetDuration("RATE_LIMIT_SWEEP_INTERVAL"),
			ProbeInterval: v.GetDuration("RATE_LIMIT_PROBE_INTERVAL"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Scheduler: Scheduler{
			Enabled:            v.GetBool("SCHEDULER_ENABLED"),
			RateLimitCleanup:   v.GetString("SCHEDULER_RATE_LIMIT_CLEANUP"),
			ImportRunRetention: v.GetString("SCHEDULER_IMPORT_RUN_RETENTION"),
			RunRetentionDays:   v.GetInt("IMPORT_RUN_RETENTION_DAYS"),
			AuditRetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Auth: Auth{
			Mode:            AuthMode(v.GetString("AUTH_MODE")),
			SessionLifetime: v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:     v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:      v.GetInt("AUTH_BCRYPT_COST"),
			LockoutDuration: v.GetDuration("AUTH_LOCKOUT_DURATION"),
			SecureCookies:   v.GetBool("AUTH_SECURE_COOKIES"),
			CSRFSecret:      v.GetString("AUTH_CSRF_SECRET"),
		},
	}
}
