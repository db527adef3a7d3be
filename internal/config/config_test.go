package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Quota.PerMinute != 90 {
		t.Errorf("expected default quota 90, got %d", cfg.Quota.PerMinute)
	}
	if cfg.Upstream.Timeout != 30*time.Second {
		t.Errorf("expected default upstream timeout 30s, got %v", cfg.Upstream.Timeout)
	}
	if cfg.Cache.Backend != CacheBackendMemory {
		t.Errorf("expected default cache backend memory, got %s", cfg.Cache.Backend)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quote.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  host: "127.0.0.1"
upstream:
  base_url: "https://api.example.com"
  token_url: "https://auth.example.com/oauth/token"
  client_id: "id"
  client_secret: "secret"
  timeout: 5s
quota:
  per_minute: 30
cache:
  backend: redis
  redis_addr: "redis:6379"
lookup:
  numbers_path: "/data/numbers.json"
  names_path: "/data/names.yaml"
log:
  level: debug
  pretty: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Addr() != "127.0.0.1:9090" {
		t.Errorf("expected addr 127.0.0.1:9090, got %s", cfg.Addr())
	}
	if cfg.Upstream.Timeout != 5*time.Second {
		t.Errorf("expected upstream timeout 5s, got %v", cfg.Upstream.Timeout)
	}
	if cfg.Quota.PerMinute != 30 {
		t.Errorf("expected quota 30, got %d", cfg.Quota.PerMinute)
	}
	if cfg.Cache.Backend != CacheBackendRedis || cfg.Cache.RedisAddr != "redis:6379" {
		t.Errorf("unexpected cache config %+v", cfg.Cache)
	}
	if cfg.Lookup.NamesPath != "/data/names.yaml" {
		t.Errorf("expected names path, got %q", cfg.Lookup.NamesPath)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Pretty {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoadNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with empty path should use defaults: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_QUOTE_SECRET", "from-env")
	path := writeConfig(t, `
upstream:
  client_secret: "${TEST_QUOTE_SECRET}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Upstream.ClientSecret != "from-env" {
		t.Errorf("expected expanded secret, got %q", cfg.Upstream.ClientSecret)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QUOTE_PORT", "7070")
	t.Setenv("QUOTE_HOST", "localhost")
	t.Setenv("QUOTE_QUOTA_PER_MINUTE", "12")
	t.Setenv("QUOTE_CACHE_BACKEND", "REDIS")
	t.Setenv("QUOTE_CLIENT_ID", "env-id")

	path := writeConfig(t, `
server:
  port: 9090
quota:
  per_minute: 30
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr() != "localhost:7070" {
		t.Errorf("expected env override addr, got %s", cfg.Addr())
	}
	if cfg.Quota.PerMinute != 12 {
		t.Errorf("expected quota 12, got %d", cfg.Quota.PerMinute)
	}
	if cfg.Cache.Backend != CacheBackendRedis {
		t.Errorf("expected redis backend, got %s", cfg.Cache.Backend)
	}
	if cfg.Upstream.ClientID != "env-id" {
		t.Errorf("expected env client id, got %s", cfg.Upstream.ClientID)
	}
}

func TestInvalidPortOverrideIgnored(t *testing.T) {
	t.Setenv("QUOTE_PORT", "not-a-port")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port to survive bad override, got %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing base url", mutate: func(c *Config) { c.Upstream.BaseURL = "" }, wantErr: "base_url"},
		{name: "missing token url", mutate: func(c *Config) { c.Upstream.TokenURL = "" }, wantErr: "token_url"},
		{name: "missing secret", mutate: func(c *Config) { c.Upstream.ClientSecret = "" }, wantErr: "client_secret"},
		{name: "zero quota", mutate: func(c *Config) { c.Quota.PerMinute = 0 }, wantErr: "per_minute"},
		{name: "unknown backend", mutate: func(c *Config) { c.Cache.Backend = "memcached" }, wantErr: "unknown cache backend"},
		{name: "redis without addr", mutate: func(c *Config) {
			c.Cache.Backend = CacheBackendRedis
			c.Cache.RedisAddr = ""
		}, wantErr: "redis_addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.Upstream.BaseURL = "https://api.example.com"
			cfg.Upstream.TokenURL = "https://auth.example.com/token"
			cfg.Upstream.ClientID = "id"
			cfg.Upstream.ClientSecret = "secret"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
