package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // No authentication, every request is anonymous
	AuthModeLocal AuthMode = "local" // Local user database with sessions (default)
)

type StorageDriver string

const (
	StorageDriverDisk StorageDriver = "disk"
	StorageDriverS3   StorageDriver = "s3"
)

type (
	Config struct {
		HTTP
		Global
		Database
		UI
		Tasks
		Auth
		Redis
		Geocoding
		Storage
		Scheduler
		ReadOnly
		CORS
		Logging
		Plausible
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
		Env                      string // "development" or "production"
	}
	Database struct {
		Path string
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
		PageSize      int
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Auth struct {
		Mode            AuthMode
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS
		AllowSignup     bool

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Redis struct {
		Addr     string // empty disables Redis; in-process cache and bus are used instead
		Password string
		DB       int
	}
	Geocoding struct {
		BaseURL     string
		UserAgent   string
		Email       string
		RateLimit   time.Duration
		ReverseTTL  time.Duration
		SearchTTL   time.Duration
		ViewBox     string // "minLon,maxLat,maxLon,minLat", biases place search to Ibadan
		CountryCode string
	}
	Storage struct {
		Driver      StorageDriver
		Dir         string
		PublicURL   string
		MaxUploadMB int64
		S3Bucket    string
		S3Region    string
		S3Endpoint  string
		S3AccessKey string
		S3SecretKey string
	}
	Scheduler struct {
		Enabled          bool
		ArchiveSchedule  string // Cron format: "0 * * * *" = hourly
		RefreshSchedule  string // Cron format: "30 3 * * *" = nightly
		AuditRetainDays  int
		SearchCacheTTL   time.Duration
		SearchDebounceMS int
	}
	ReadOnly struct {
		Enabled bool
	}
	CORS struct {
		AllowOrigins []string
	}
	Logging struct {
		Level string
	}
	Plausible struct {
		Domain     string // empty disables page analytics
		ScriptURL  string
		Extensions string // comma-separated, e.g. "outbound-links,file-downloads"
	}
)

// NewConfig loads configuration from the environment. A .env file in the
// working directory is read first when present.
func NewConfig() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8080)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("env", "production")
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("templates_path", "")
	v.SetDefault("static_path", "")
	v.SetDefault("page_size", 12)
	v.SetDefault("log_level", "info")

	// Auth defaults
	v.SetDefault("auth_mode", "local")
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "168h") // 7 days
	v.SetDefault("auth_token_expiry", "720h")     // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_allow_signup", true)
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "2m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	// Redis
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	// Geocoding (OpenStreetMap Nominatim)
	v.SetDefault("geocoding_base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoding_user_agent", "ChopLifeIB/1.0 (+https://choplife.ng)")
	v.SetDefault("geocoding_email", "")
	v.SetDefault("geocoding_rate_limit", "1s")
	v.SetDefault("geocoding_reverse_ttl", "720h")
	v.SetDefault("geocoding_search_ttl", "24h")
	v.SetDefault("geocoding_viewbox", "3.7500,7.5500,4.0500,7.2500")
	v.SetDefault("geocoding_country_code", "ng")

	// Gallery storage
	v.SetDefault("storage_driver", "disk")
	v.SetDefault("storage_dir", "./uploads")
	v.SetDefault("storage_public_url", "/uploads")
	v.SetDefault("storage_max_upload_mb", 8)
	v.SetDefault("storage_s3_bucket", "")
	v.SetDefault("storage_s3_region", "eu-west-1")
	v.SetDefault("storage_s3_endpoint", "")
	v.SetDefault("storage_s3_access_key", "")
	v.SetDefault("storage_s3_secret_key", "")

	// Scheduler
	v.SetDefault("scheduler_enabled", true)
	v.SetDefault("scheduler_archive_schedule", "0 * * * *")  // Hourly at :00
	v.SetDefault("scheduler_refresh_schedule", "30 3 * * *") // 03:30 daily
	v.SetDefault("audit_retention_days", 90)
	v.SetDefault("search_cache_ttl", "2m")
	v.SetDefault("search_debounce_ms", 300)

	v.SetDefault("read_only", false)
	v.SetDefault("cors_allow_origins", "*")

	v.SetDefault("plausible_domain", "")
	v.SetDefault("plausible_script_url", "https://plausible.io/js/script.js")
	v.SetDefault("plausible_extensions", "")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
			Env:                      v.GetString("ENV"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
			PageSize:      v.GetInt("PAGE_SIZE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Auth: Auth{
			Mode:             AuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			AllowSignup:      v.GetBool("AUTH_ALLOW_SIGNUP"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Redis: Redis{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Geocoding: Geocoding{
			BaseURL:     v.GetString("GEOCODING_BASE_URL"),
			UserAgent:   v.GetString("GEOCODING_USER_AGENT"),
			Email:       v.GetString("GEOCODING_EMAIL"),
			RateLimit:   v.GetDuration("GEOCODING_RATE_LIMIT"),
			ReverseTTL:  v.GetDuration("GEOCODING_REVERSE_TTL"),
			SearchTTL:   v.GetDuration("GEOCODING_SEARCH_TTL"),
			ViewBox:     v.GetString("GEOCODING_VIEWBOX"),
			CountryCode: v.GetString("GEOCODING_COUNTRY_CODE"),
		},
		Storage: Storage{
			Driver:      StorageDriver(v.GetString("STORAGE_DRIVER")),
			Dir:         v.GetString("STORAGE_DIR"),
			PublicURL:   v.GetString("STORAGE_PUBLIC_URL"),
			MaxUploadMB: v.GetInt64("STORAGE_MAX_UPLOAD_MB"),
			S3Bucket:    v.GetString("STORAGE_S3_BUCKET"),
			S3Region:    v.GetString("STORAGE_S3_REGION"),
			S3Endpoint:  v.GetString("STORAGE_S3_ENDPOINT"),
			S3AccessKey: v.GetString("STORAGE_S3_ACCESS_KEY"),
			S3SecretKey: v.GetString("STORAGE_S3_SECRET_KEY"),
		},
		Scheduler: Scheduler{
			Enabled:          v.GetBool("SCHEDULER_ENABLED"),
			ArchiveSchedule:  v.GetString("SCHEDULER_ARCHIVE_SCHEDULE"),
			RefreshSchedule:  v.GetString("SCHEDULER_REFRESH_SCHEDULE"),
			AuditRetainDays:  v.GetInt("AUDIT_RETENTION_DAYS"),
			SearchCacheTTL:   v.GetDuration("SEARCH_CACHE_TTL"),
			SearchDebounceMS: v.GetInt("SEARCH_DEBOUNCE_MS"),
		},
		ReadOnly: ReadOnly{
			Enabled: v.GetBool("READ_ONLY"),
		},
		CORS: CORS{
			AllowOrigins: splitList(v.GetString("CORS_ALLOW_ORIGINS")),
		},
		Logging: Logging{
			Level: v.GetString("LOG_LEVEL"),
		},
		Plausible: Plausible{
			Domain:     v.GetString("PLAUSIBLE_DOMAIN"),
			ScriptURL:  v.GetString("PLAUSIBLE_SCRIPT_URL"),
			Extensions: v.GetString("PLAUSIBLE_EXTENSIONS"),
		},
	}
}

// IsDevelopment reports whether the app runs with developer-friendly defaults.
func (c *Config) IsDevelopment() bool {
	return c.Global.Env == "development"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
