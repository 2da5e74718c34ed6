// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Upload    UploadConfig
	Wizard    WizardConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Reconcile ReconcileConfig
	Notify    NotifyConfig
	Metrics   MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing the response (default: 90s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"90s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// AllowedOrigins lists origins allowed to call the API from a browser
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate applies embedded migrations at startup (default: true)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"true"`
}

// StorageConfig holds object store settings.
type StorageConfig struct {
	// Endpoint is the S3-compatible host:port (default: localhost:9000)
	Endpoint string `env:"STORAGE_ENDPOINT" envAlt:"MINIO_ENDPOINT" default:"localhost:9000"`

	AccessKey string `env:"STORAGE_ACCESS_KEY" envAlt:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `env:"STORAGE_SECRET_KEY" envAlt:"MINIO_SECRET_KEY" default:"minioadmin"`

	// UseSSL connects to the endpoint over TLS (default: false)
	UseSSL bool `env:"STORAGE_USE_SSL" default:"false"`

	// PublicBaseURL prefixes public object URLs (default: http://localhost:9000)
	PublicBaseURL string `env:"STORAGE_PUBLIC_URL" default:"http://localhost:9000"`

	ImageBucket    string `env:"STORAGE_BUCKET_IMAGES" default:"car-images"`
	DocumentBucket string `env:"STORAGE_BUCKET_DOCUMENTS" default:"financing-docs"`
	BlogBucket     string `env:"STORAGE_BUCKET_BLOG" default:"blog-images"`
}

// RedisConfig holds the session store settings.
type RedisConfig struct {
	// Addr is host:port; empty keeps sessions in memory
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" default:"0"`
}

// AuthConfig holds admin authentication settings.
type AuthConfig struct {
	// AdminUsername is the back-office login (default: admin)
	AdminUsername string `env:"ADMIN_USERNAME" default:"admin"`

	// AdminPasswordHash is a bcrypt hash; empty disables admin login
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	// TokenSecret signs session tokens; empty generates one per process
	TokenSecret string `env:"AUTH_TOKEN_SECRET" envAlt:"JWT_SECRET"`

	// SessionTTL is how long an admin session lasts (default: 12h)
	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" default:"12h"`

	// CookieName holds the session token (default: admin_session)
	CookieName string `env:"AUTH_COOKIE_NAME" default:"admin_session"`

	// CookieSecure sets the Secure flag on the session cookie (default: false)
	CookieSecure bool `env:"AUTH_COOKIE_SECURE" default:"false"`
}

// UploadConfig holds file upload settings.
type UploadConfig struct {
	// MaxImageSize is the per-file limit for listing and blog images (default: 5MB)
	MaxImageSize int64 `env:"UPLOAD_MAX_IMAGE_SIZE" default:"5242880"`

	// MaxDocumentSize is the per-file limit for financing documents (default: 5MB)
	MaxDocumentSize int64 `env:"UPLOAD_MAX_DOCUMENT_SIZE" default:"5242880"`

	// MaxImages is the per-listing image cap (default: 10)
	MaxImages int `env:"UPLOAD_MAX_IMAGES" default:"10"`

	// MaxConcurrent is the maximum number of parallel object uploads (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for an upload slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// MaxRequestSize bounds a multipart listing form: every image plus 1MB of fields.
func (c *UploadConfig) MaxRequestSize() int64 {
	return int64(c.MaxImages)*c.MaxImageSize + 1<<20
}

// WizardConfig holds financing form settings.
type WizardConfig struct {
	// SessionTTL is how long an idle form session is kept (default: 2h)
	SessionTTL time.Duration `env:"WIZARD_SESSION_TTL" default:"2h"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// UploadLimit is requests per minute for upload endpoints (default: 20)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"20"`

	// LoginLimit is login attempts per minute per IP (default: 5)
	LoginLimit int `env:"RATE_LIMIT_LOGIN" default:"5"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// ReconcileConfig holds listing repair settings.
type ReconcileConfig struct {
	// Enabled starts the background reconciler (default: true)
	Enabled bool `env:"RECONCILE_ENABLED" default:"true"`

	// Interval is how often the reconciler runs (default: 5m)
	Interval time.Duration `env:"RECONCILE_INTERVAL" default:"5m"`

	// GracePeriod is how long a listing may await its children (default: 2m)
	GracePeriod time.Duration `env:"RECONCILE_GRACE_PERIOD" default:"2m"`

	// BatchSize is listings per run (default: 50)
	BatchSize int `env:"RECONCILE_BATCH_SIZE" default:"50"`
}

// NotifyConfig holds event and e-mail settings. Empty values disable a channel.
type NotifyConfig struct {
	NATSURL       string `env:"NATS_URL"`
	SubjectPrefix string `env:"NATS_SUBJECT_PREFIX" default:"dealership"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" default:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM" default:"no-reply@localhost"`
	MailTo       string `env:"MAIL_TO"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	// Enabled exposes /metrics (default: true)
	Enabled bool `env:"METRICS_ENABLED" default:"true"`

	// Namespace prefixes every metric name (default: dealership)
	Namespace string `env:"METRICS_NAMESPACE" default:"dealership"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
