package config

import (
	"testing"
	"time"
)

func TestLoadReadsCriticalEnvKeys(t *testing.T) {
	t.Setenv("CLASSBOARD_DB_BACKEND", "postgres")
	t.Setenv("CLASSBOARD_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("CLASSBOARD_ADMIN_PASSWORD", "secret")
	t.Setenv("CLASSBOARD_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("CLASSBOARD_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBBackend != DatabasePostgres {
		t.Fatalf("unexpected backend: %q", cfg.DBBackend)
	}
	if cfg.JWTSigningKey != "supersecret" {
		t.Fatalf("unexpected jwt signing key: %q", cfg.JWTSigningKey)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("unexpected session ttl: %v", cfg.SessionTTL)
	}
	if cfg.TrainStationID != "8000294" {
		t.Fatalf("unexpected default station: %q", cfg.TrainStationID)
	}
}

func TestLoadRequiresAdminCredential(t *testing.T) {
	t.Setenv("CLASSBOARD_ADMIN_PASSWORD", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("CLASSBOARD_ADMIN_PASSWORD_HASH", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected load to fail without an admin password")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("CLASSBOARD_ADMIN_PASSWORD", "secret")
	t.Setenv("CLASSBOARD_DB_BACKEND", "couchdb")

	if _, err := Load(); err == nil {
		t.Fatal("expected unsupported backend error")
	}
}

func TestLoadReportsLegacyEnvWarnings(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD", "legacy")
	t.Setenv("DB_URL", "classboard.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AdminPassword != "legacy" {
		t.Fatalf("expected legacy admin password to be honoured, got %q", cfg.AdminPassword)
	}
	if len(cfg.LegacyEnvWarnings) < 2 {
		t.Fatalf("expected at least two legacy env warnings, got %v", cfg.LegacyEnvWarnings)
	}
}

func TestLoadProductionRequiresTestbedKey(t *testing.T) {
	t.Setenv("CLASSBOARD_ADMIN_PASSWORD", "secret")
	t.Setenv("CLASSBOARD_ENV", "production")
	t.Setenv("CLASSBOARD_TESTBED_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected production config load to fail without a testbed api key")
	}

	t.Setenv("CLASSBOARD_TESTBED_API_KEY", "key")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected production config load to succeed: %v", err)
	}
	if !cfg.CookieSecure {
		t.Fatal("expected secure cookies by default in production")
	}
}

func TestLoadRejectsInvalidTimezone(t *testing.T) {
	t.Setenv("CLASSBOARD_ADMIN_PASSWORD", "secret")
	t.Setenv("CLASSBOARD_TIMEZONE", "Mars/Olympus")

	if _, err := Load(); err == nil {
		t.Fatal("expected invalid timezone error")
	}

	t.Setenv("CLASSBOARD_TIMEZONE", "Europe/Berlin")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Location().String() != "Europe/Berlin" {
		t.Fatalf("unexpected location %v", cfg.Location())
	}
}

func TestLoadForToolsSkipsServeChecks(t *testing.T) {
	t.Setenv("CLASSBOARD_ADMIN_PASSWORD", "")
	t.Setenv("CLASSBOARD_ADMIN_PASSWORD_HASH", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("CLASSBOARD_ENV", "production")
	t.Setenv("CLASSBOARD_TESTBED_API_KEY", "")
	t.Setenv("TESTBED_API_KEY", "")

	cfg, err := LoadForTools()
	if err != nil {
		t.Fatalf("LoadForTools: %v", err)
	}
	if !cfg.CookieSecure {
		t.Fatal("expected secure cookies by default in production")
	}
}
