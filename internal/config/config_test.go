package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
http:
  addr: ":9090"
pricing:
  profit_margin: 0.25
  quote_ttl: 30s
watch:
  poll_interval: 2s
  max_attempts: 10
crypto:
  invoice_lifetime: 10m
limits:
  orders_per_minute: 5
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Pricing.ProfitMargin != 0.25 {
		t.Fatalf("unexpected profit margin: %v", cfg.Pricing.ProfitMargin)
	}
	if cfg.Pricing.QuoteTTL != 30*time.Second {
		t.Fatalf("unexpected quote ttl: %v", cfg.Pricing.QuoteTTL)
	}
	if cfg.Watch.PollInterval != 2*time.Second {
		t.Fatalf("unexpected poll interval: %v", cfg.Watch.PollInterval)
	}
	if cfg.Watch.MaxAttempts != 10 {
		t.Fatalf("unexpected max attempts: %d", cfg.Watch.MaxAttempts)
	}
	if cfg.Crypto.InvoiceLifetime != 10*time.Minute {
		t.Fatalf("unexpected invoice lifetime: %v", cfg.Crypto.InvoiceLifetime)
	}
	if cfg.Limits.OrdersPerMinute != 5 {
		t.Fatalf("unexpected orders per minute: %d", cfg.Limits.OrdersPerMinute)
	}

	// untouched sections keep defaults
	if cfg.SMS.MaxPrice != 90 || cfg.SMS.QualityFactor != 10 {
		t.Fatalf("unexpected sms defaults: %+v", cfg.SMS)
	}
	if cfg.Watch.MaxAttempts == 0 {
		t.Fatalf("watch defaults missing")
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("POSTGRES_DSN", "postgres://env@localhost:5432/env")
	t.Setenv("CRYPTO_CALLBACK_SECRET", "supersecret")
	t.Setenv("SMS_API_KEY", "key-from-env")
	t.Setenv("PROFIT_MARGIN", "0.3")
	t.Setenv("WATCH_MAX_ATTEMPTS", "12")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Postgres.DSN != "postgres://env@localhost:5432/env" {
		t.Fatalf("unexpected postgres dsn: %s", cfg.Postgres.DSN)
	}
	if cfg.Crypto.CallbackSecret != "supersecret" {
		t.Fatalf("unexpected callback secret: %s", cfg.Crypto.CallbackSecret)
	}
	if cfg.SMS.APIKey != "key-from-env" {
		t.Fatalf("unexpected sms api key: %s", cfg.SMS.APIKey)
	}
	if cfg.Pricing.ProfitMargin != 0.3 {
		t.Fatalf("unexpected profit margin: %v", cfg.Pricing.ProfitMargin)
	}
	if cfg.Watch.MaxAttempts != 12 {
		t.Fatalf("unexpected max attempts: %d", cfg.Watch.MaxAttempts)
	}
}

func TestLoadRejectsBadEnvValues(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("WATCH_POLL_INTERVAL", "not-a-duration")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for invalid duration override")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_ENV", "HTTP_ADDR", "HTTP_READ_TIMEOUT", "HTTP_WRITE_TIMEOUT", "HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL", "POSTGRES_DSN", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"JWT_SECRET", "CARD_BASE_URL", "CARD_SECRET_KEY", "CARD_PUBLIC_KEY", "CARD_REDIRECT_URL",
		"CRYPTO_BASE_URL", "CRYPTO_MERCHANT_KEY", "CRYPTO_CALLBACK_SECRET", "CRYPTO_CALLBACK_URL",
		"CRYPTO_RETURN_URL", "CRYPTO_INVOICE_LIFETIME", "SMS_BASE_URL", "SMS_API_KEY",
		"SMS_MAX_PRICE", "SMS_QUALITY_FACTOR", "PROFIT_MARGIN", "QUOTE_TTL",
		"WATCH_POLL_INTERVAL", "WATCH_MAX_ATTEMPTS",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
