package config

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	defaultServiceName  = "content-cloud"
	defaultServicePort  = 8094
	defaultVersion      = "1.0.0"
	defaultLoggingLevel = "info"
	defaultLoggingFmt   = "json"
	defaultDBHost       = "localhost"
	defaultDBPort       = 5432
	defaultDBName       = "periospot"
	defaultDBUser       = "postgres"
	defaultDBSSLMode    = "disable"

	defaultImportBatchSize  = 100
	defaultImportMaxErrors  = 5
	defaultImportBatchDelay = 500 * time.Millisecond

	defaultLinkDelay       = 500 * time.Millisecond
	defaultShortenerDomain = "geni.us"
	defaultRetailerTag     = "advaimpldigid-20"

	defaultMailerLiteURL = "https://connect.mailerlite.com/api"
	defaultResendURL     = "https://api.resend.com"
	defaultShortenerURL  = "https://api.geni.us"

	defaultMaxRequestsPerMinute = 60
	defaultWindowSeconds        = 60

	defaultHTTPTimeout = 30 * time.Second
)

// Config holds the application configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Import    ImportConfig    `yaml:"import"`
	Affiliate AffiliateConfig `yaml:"affiliate"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	Port      int    `env:"CONTENT_CLOUD_PORT"   yaml:"port"`
	Debug     bool   `env:"APP_DEBUG"            yaml:"debug"`
	JWTSecret string `env:"CONTENT_CLOUD_SECRET" yaml:"jwt_secret"`
	SiteURL   string `env:"SITE_URL"             yaml:"site_url"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host     string `env:"POSTGRES_CONTENT_HOST"     yaml:"host"`
	Port     int    `env:"POSTGRES_CONTENT_PORT"     yaml:"port"`
	User     string `env:"POSTGRES_CONTENT_USER"     yaml:"user"`
	Password string `env:"POSTGRES_CONTENT_PASSWORD" yaml:"password"`
	Database string `env:"POSTGRES_CONTENT_DB"       yaml:"database"`
	SSLMode  string `env:"POSTGRES_CONTENT_SSLMODE"  yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// ImportConfig holds subscriber import pipeline configuration.
type ImportConfig struct {
	MailerLiteURL    string        `env:"MAILERLITE_API_URL" yaml:"mailerlite_url"`
	MailerLiteAPIKey string        `env:"MAILERLITE_API_KEY" yaml:"mailerlite_api_key"`
	ResendURL        string        `env:"RESEND_API_URL"     yaml:"resend_url"`
	ResendAPIKey     string        `env:"RESEND_API_KEY"     yaml:"resend_api_key"`
	ResendAudienceID string        `env:"RESEND_AUDIENCE_ID" yaml:"resend_audience_id"`
	BatchSize        int           `yaml:"batch_size"`
	BatchDelay       time.Duration `yaml:"batch_delay"`
	MaxErrorSample   int           `yaml:"max_error_sample"`
	HTTPTimeout      time.Duration `yaml:"http_timeout"`
}

// AffiliateConfig holds affiliate link generator configuration.
type AffiliateConfig struct {
	ShortenerURL    string        `env:"GENIUSLINK_API_URL"    yaml:"shortener_url"`
	APIKey          string        `env:"GENIUSLINK_API_KEY"    yaml:"api_key"`
	APISecret       string        `env:"GENIUSLINK_API_SECRET" yaml:"api_secret"`
	GroupID         int           `env:"GENIUSLINK_GROUP_ID"   yaml:"group_id"`
	ShortenerDomain string        `yaml:"shortener_domain"`
	RetailerTag     string        `env:"AMAZON_AFFILIATE_TAG"  yaml:"retailer_tag"`
	BatchDelay      time.Duration `yaml:"batch_delay"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
}

// RateLimitConfig holds rate limiting configuration for the public redirect route.
type RateLimitConfig struct {
	MaxRequestsPerMinute int `yaml:"max_requests_per_minute"`
	WindowSeconds        int `yaml:"window_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setImportDefaults(&cfg.Import)
	setAffiliateDefaults(&cfg.Affiliate)
	setRateLimitDefaults(&cfg.RateLimit)
	setLoggingDefaults(&cfg.Logging)
}

func setServiceDefaults(svc *ServiceConfig) {
	if svc.Name == "" {
		svc.Name = defaultServiceName
	}
	if svc.Version == "" {
		svc.Version = defaultVersion
	}
	if svc.Port == 0 {
		svc.Port = defaultServicePort
	}
	if svc.SiteURL == "" {
		svc.SiteURL = "https://periospot.com"
	}
}

func setDatabaseDefaults(db *DatabaseConfig) {
	if db.Host == "" {
		db.Host = defaultDBHost
	}
	if db.Port == 0 {
		db.Port = defaultDBPort
	}
	if db.User == "" {
		db.User = defaultDBUser
	}
	if db.Database == "" {
		db.Database = defaultDBName
	}
	if db.SSLMode == "" {
		db.SSLMode = defaultDBSSLMode
	}
}

func setImportDefaults(imp *ImportConfig) {
	if imp.MailerLiteURL == "" {
		imp.MailerLiteURL = defaultMailerLiteURL
	}
	if imp.ResendURL == "" {
		imp.ResendURL = defaultResendURL
	}
	if imp.BatchSize == 0 {
		imp.BatchSize = defaultImportBatchSize
	}
	if imp.BatchDelay == 0 {
		imp.BatchDelay = defaultImportBatchDelay
	}
	if imp.MaxErrorSample == 0 {
		imp.MaxErrorSample = defaultImportMaxErrors
	}
	if imp.HTTPTimeout == 0 {
		imp.HTTPTimeout = defaultHTTPTimeout
	}
}

func setAffiliateDefaults(aff *AffiliateConfig) {
	if aff.ShortenerURL == "" {
		aff.ShortenerURL = defaultShortenerURL
	}
	if aff.ShortenerDomain == "" {
		aff.ShortenerDomain = defaultShortenerDomain
	}
	if aff.RetailerTag == "" {
		aff.RetailerTag = defaultRetailerTag
	}
	if aff.BatchDelay == 0 {
		aff.BatchDelay = defaultLinkDelay
	}
	if aff.HTTPTimeout == 0 {
		aff.HTTPTimeout = defaultHTTPTimeout
	}
}

func setRateLimitDefaults(rl *RateLimitConfig) {
	if rl.MaxRequestsPerMinute == 0 {
		rl.MaxRequestsPerMinute = defaultMaxRequestsPerMinute
	}
	if rl.WindowSeconds == 0 {
		rl.WindowSeconds = defaultWindowSeconds
	}
}

func setLoggingDefaults(log *LoggingConfig) {
	if log.Level == "" {
		log.Level = defaultLoggingLevel
	}
	if log.Format == "" {
		log.Format = defaultLoggingFmt
	}
}

// ValidationError names the config field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the fields a service cannot start without.
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return &ValidationError{Field: "service.port", Message: "must be between 1 and 65535"}
	}
	if c.Service.JWTSecret == "" {
		return &ValidationError{Field: "service.jwt_secret", Message: "is required"}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of: debug, info, warn, error, fatal"}
	}
	return nil
}
