package config

import (
	"testing"
	"time"
)

func TestLoadRequiresDatabaseAndSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing DATABASE_URL to fail")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/leadboard")
	t.Setenv("JWT_ACCESS_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing JWT_ACCESS_SECRET to fail")
	}
}

func TestLoadDefaultsAndLists(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/leadboard")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "https://a.pt, https://b.pt ,")
	t.Setenv("KPI_DIGEST_RECIPIENTS", "ops@a.pt,,sales@a.pt")
	t.Setenv("KPI_CACHE_TTL", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.GetCORSOrigins(); len(got) != 2 || got[1] != "https://b.pt" {
		t.Fatalf("unexpected origins: %v", got)
	}
	if got := cfg.GetDigestRecipients(); len(got) != 2 {
		t.Fatalf("unexpected recipients: %v", got)
	}
	if cfg.GetKPICacheTTL() != 90*time.Second {
		t.Fatalf("expected 90s ttl, got %s", cfg.GetKPICacheTTL())
	}
}

func TestLoadWildcardOriginRejectsCredentials(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/leadboard")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatalf("expected wildcard origin with credentials to fail")
	}

	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.GetCORSAllowAll() {
		t.Fatalf("expected wildcard origin to allow all")
	}
}

func TestLoadBoardValidatesFallbackDriver(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://crm.example.pt/api/v1/")
	t.Setenv("FALLBACK_DRIVER", "memcached")
	if _, err := LoadBoard(); err == nil {
		t.Fatalf("expected unsupported driver to fail")
	}

	t.Setenv("FALLBACK_DRIVER", "Redis")
	t.Setenv("FALLBACK_REDIS_URL", "redis://localhost:6379/0")
	cfg, err := LoadBoard()
	if err != nil {
		t.Fatalf("load board: %v", err)
	}
	if cfg.GetFallbackDriver() != "redis" {
		t.Fatalf("expected driver to be lowercased, got %q", cfg.GetFallbackDriver())
	}
	if cfg.GetBackendURL() != "https://crm.example.pt/api/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.GetBackendURL())
	}
}
