package config

import (
	"testing"
	"time"
)

func TestSetDefaults(t *testing.T) {
	t.Helper()

	cfg := &Config{}
	setDefaults(cfg)

	assertStringEqual(t, "service.name", defaultServiceName, cfg.Service.Name)
	assertStringEqual(t, "service.version", defaultVersion, cfg.Service.Version)
	assertIntEqual(t, "service.port", defaultServicePort, cfg.Service.Port)
	assertStringEqual(t, "service.site_url", "https://periospot.com", cfg.Service.SiteURL)

	assertStringEqual(t, "database.host", defaultDBHost, cfg.Database.Host)
	assertIntEqual(t, "database.port", defaultDBPort, cfg.Database.Port)
	assertStringEqual(t, "database.user", defaultDBUser, cfg.Database.User)
	assertStringEqual(t, "database.database", defaultDBName, cfg.Database.Database)
	assertStringEqual(t, "database.sslmode", defaultDBSSLMode, cfg.Database.SSLMode)

	assertStringEqual(t, "import.mailerlite_url", defaultMailerLiteURL, cfg.Import.MailerLiteURL)
	assertStringEqual(t, "import.resend_url", defaultResendURL, cfg.Import.ResendURL)
	assertIntEqual(t, "import.batch_size", defaultImportBatchSize, cfg.Import.BatchSize)
	assertIntEqual(t, "import.max_error_sample", defaultImportMaxErrors, cfg.Import.MaxErrorSample)

	if cfg.Import.BatchDelay != defaultImportBatchDelay {
		t.Errorf("import.batch_delay: got %v, want %v",
			cfg.Import.BatchDelay, defaultImportBatchDelay)
	}
	if cfg.Import.HTTPTimeout != defaultHTTPTimeout {
		t.Errorf("import.http_timeout: got %v, want %v",
			cfg.Import.HTTPTimeout, defaultHTTPTimeout)
	}

	assertStringEqual(t, "affiliate.shortener_url", defaultShortenerURL, cfg.Affiliate.ShortenerURL)
	assertStringEqual(t, "affiliate.shortener_domain", defaultShortenerDomain, cfg.Affiliate.ShortenerDomain)
	assertStringEqual(t, "affiliate.retailer_tag", defaultRetailerTag, cfg.Affiliate.RetailerTag)

	assertIntEqual(t, "rate_limit.max_requests_per_minute",
		defaultMaxRequestsPerMinute, cfg.RateLimit.MaxRequestsPerMinute)
	assertIntEqual(t, "rate_limit.window_seconds",
		defaultWindowSeconds, cfg.RateLimit.WindowSeconds)

	assertStringEqual(t, "logging.level", defaultLoggingLevel, cfg.Logging.Level)
	assertStringEqual(t, "logging.format", defaultLoggingFmt, cfg.Logging.Format)
}

func TestSetDefaults_KeepsExplicitValues(t *testing.T) {
	t.Helper()

	cfg := &Config{}
	cfg.Service.Port = 9000
	cfg.Import.BatchDelay = 2 * time.Second
	setDefaults(cfg)

	assertIntEqual(t, "service.port", 9000, cfg.Service.Port)
	if cfg.Import.BatchDelay != 2*time.Second {
		t.Errorf("import.batch_delay: got %v, want 2s", cfg.Import.BatchDelay)
	}
}

func TestValidate_MissingSecret(t *testing.T) {
	t.Helper()

	cfg := &Config{}
	setDefaults(cfg)
	cfg.Service.JWTSecret = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for missing JWT secret, got nil")
	}

	expected := "service.jwt_secret: is required"
	if err.Error() != expected {
		t.Errorf("error message: got %q, want %q", err.Error(), expected)
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Helper()

	cfg := &Config{}
	setDefaults(cfg)
	cfg.Service.JWTSecret = "test-secret-key"

	err := cfg.Validate()
	if err != nil {
		t.Fatalf("expected no validation error, got: %v", err)
	}
}

func TestValidate_BadPort(t *testing.T) {
	t.Helper()

	cfg := &Config{}
	setDefaults(cfg)
	cfg.Service.JWTSecret = "test-secret-key"
	cfg.Service.Port = 70000

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for out-of-range port, got nil")
	}
}

func TestDSN(t *testing.T) {
	t.Helper()

	db := &DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		Database: "periospot",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=postgres password=secret dbname=periospot sslmode=disable"
	got := db.DSN()

	if got != expected {
		t.Errorf("DSN:\ngot:  %q\nwant: %q", got, expected)
	}
}

// assertStringEqual is a test helper that checks string equality.
func assertStringEqual(t *testing.T, field, want, got string) {
	t.Helper()

	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}

// assertIntEqual is a test helper that checks int equality.
func assertIntEqual(t *testing.T, field string, want, got int) {
	t.Helper()

	if got != want {
		t.Errorf("%s: got %d, want %d", field, got, want)
	}
}
