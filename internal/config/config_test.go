package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Addr != ":8787" {
		t.Errorf("unexpected default addr: %s", cfg.Addr)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("unexpected default cache TTL: %s", cfg.CacheTTL)
	}
}

func TestFileOverlayAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chronomind.toml")
	content := `
addr = ":9000"
meili_url = "http://meili:7700"
cache_ttl_seconds = 60
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CHRONOMIND_CONFIG", path)
	t.Setenv("API_ADDR", ":7000")

	cfg := Load()
	if cfg.Addr != ":7000" {
		t.Errorf("env must win over file, got %s", cfg.Addr)
	}
	if cfg.MeiliURL != "http://meili:7700" {
		t.Errorf("file must win over default, got %s", cfg.MeiliURL)
	}
	if cfg.CacheTTL != time.Minute {
		t.Errorf("file cache TTL not applied: %s", cfg.CacheTTL)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("untouched default changed: %s", cfg.RedisURL)
	}
}

func TestUnreadableFileFallsBackToDefaults(t *testing.T) {
	t.Setenv("CHRONOMIND_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg := Load()
	if cfg.Addr != ":8787" {
		t.Errorf("expected defaults on unreadable file, got %s", cfg.Addr)
	}
}
