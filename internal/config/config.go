// Package config loads the quote proxy configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config is the full quote proxy configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Quota    QuotaConfig    `yaml:"quota"`
	Cache    CacheConfig    `yaml:"cache"`
	Lookup   LookupConfig   `yaml:"lookup"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// UpstreamConfig locates the upstream API and its token endpoint.
type UpstreamConfig struct {
	BaseURL      string        `yaml:"base_url"`
	TokenURL     string        `yaml:"token_url"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
}

// QuotaConfig sets the upstream call budget per minute.
type QuotaConfig struct {
	PerMinute int `yaml:"per_minute"` // default: 90
}

// CacheConfig selects the item cache backend.
type CacheConfig struct {
	Backend       string `yaml:"backend"` // memory | redis
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// LookupConfig points at the item number and name tables.
type LookupConfig struct {
	NumbersPath string `yaml:"numbers_path"`
	NamesPath   string `yaml:"names_path"`
}

// LogConfig controls logger level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load reads path (optional), expands ${VAR} references, and applies
// QUOTE_* environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
		Upstream: UpstreamConfig{
			Timeout:   30 * time.Second,
			UserAgent: "item-quote-client/1.0",
		},
		Quota: QuotaConfig{
			PerMinute: 90,
		},
		Cache: CacheConfig{
			Backend:   CacheBackendMemory,
			RedisAddr: "localhost:6379",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func expandEnvVars(s string) string {
	return os.ExpandEnv(s)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QUOTE_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("QUOTE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("QUOTE_UPSTREAM_BASE_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("QUOTE_UPSTREAM_TOKEN_URL"); v != "" {
		cfg.Upstream.TokenURL = v
	}
	if v := os.Getenv("QUOTE_CLIENT_ID"); v != "" {
		cfg.Upstream.ClientID = v
	}
	if v := os.Getenv("QUOTE_CLIENT_SECRET"); v != "" {
		cfg.Upstream.ClientSecret = v
	}
	if v := os.Getenv("QUOTE_QUOTA_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Quota.PerMinute = n
		}
	}
	if v := os.Getenv("QUOTE_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("QUOTE_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("QUOTE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate checks the settings needed to talk to the upstream API.
func (c *Config) Validate() error {
	var errs []error
	if c.Upstream.BaseURL == "" {
		errs = append(errs, errors.New("upstream.base_url is required"))
	}
	if c.Upstream.TokenURL == "" {
		errs = append(errs, errors.New("upstream.token_url is required"))
	}
	if c.Upstream.ClientID == "" || c.Upstream.ClientSecret == "" {
		errs = append(errs, errors.New("upstream.client_id and upstream.client_secret are required"))
	}
	if c.Quota.PerMinute <= 0 {
		errs = append(errs, fmt.Errorf("quota.per_minute must be positive, got %d", c.Quota.PerMinute))
	}
	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("cache.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	return errors.Join(errs...)
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
