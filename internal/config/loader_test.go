package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Server.Port, "8080")
	}
	if cfg.Database.Path != "tenancyd.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "tenancyd.db")
	}
	if cfg.Queue.Workers != 2 {
		t.Errorf("Queue.Workers = %d, want 2", cfg.Queue.Workers)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Cache.TTL = %v, want 5m", cfg.Cache.TTL)
	}
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tenancyd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFrom_YAMLOverride(t *testing.T) {
	path := writeYAML(t, `
server:
  port: "9090"
database:
  path: /var/lib/tenancyd/leases.db
logging:
  level: debug
cache:
  ttl: 90s
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Port = %q, want %q", cfg.Server.Port, "9090")
	}
	if cfg.Database.Path != "/var/lib/tenancyd/leases.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Cache.TTL != 90*time.Second {
		t.Errorf("Cache.TTL = %v, want 90s", cfg.Cache.TTL)
	}
	// Unchanged fields keep defaults.
	if cfg.Queue.Workers != 2 {
		t.Errorf("Queue.Workers = %d, want default 2", cfg.Queue.Workers)
	}
}

func TestLoadFrom_EnvOverridesYAML(t *testing.T) {
	path := writeYAML(t, `
server:
  port: "9090"
queue:
  workers: 3
`)
	t.Setenv("PORT", "7070")
	t.Setenv("TENANCYD_QUEUE_WORKERS", "8")
	t.Setenv("TENANCYD_CACHE_TTL", "1m")
	t.Setenv("TENANCYD_DEFAULT_EXPIRY_DAYS", "60")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("Port = %q, want %q", cfg.Server.Port, "7070")
	}
	if cfg.Queue.Workers != 8 {
		t.Errorf("Queue.Workers = %d, want 8", cfg.Queue.Workers)
	}
	if cfg.Cache.TTL != time.Minute {
		t.Errorf("Cache.TTL = %v, want 1m", cfg.Cache.TTL)
	}
	if cfg.Leases.DefaultExpiryDays != 60 {
		t.Errorf("DefaultExpiryDays = %d, want 60", cfg.Leases.DefaultExpiryDays)
	}
}

func TestLoadFrom_IgnoresUnparseableEnv(t *testing.T) {
	t.Setenv("TENANCYD_QUEUE_WORKERS", "many")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Queue.Workers != 2 {
		t.Errorf("Queue.Workers = %d, want default 2", cfg.Queue.Workers)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	t.Setenv("TENANCYD_QUEUE_WORKERS", "0")

	if _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected validation error for zero workers")
	}
}

func TestLoadFrom_MalformedYAML(t *testing.T) {
	path := writeYAML(t, "server: [unclosed")

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	path := writeYAML(t, `
server:
  port: "6060"
`)
	t.Setenv("TENANCYD_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("Port = %q, want %q", cfg.Server.Port, "6060")
	}
}
