// Package config loads the YAML configuration consumed by the captable
// CLI and HTTP server: cache backend selection, the audit-store DSN, and
// server/rate-limit tuning. Grounded on the teacher's own YAML config
// loaders (internal/application/config.go's LoadAPIsConfig/LoadCacheConfig
// pattern: os.ReadFile + yaml.Unmarshal into a tagged struct, no viper/env
// layering).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CacheConfig selects and tunes the result cache backend (spec.md §11's
// resultcache wiring).
type CacheConfig struct {
	Backend string `yaml:"backend"` // "memory" or "redis"
	Redis   struct {
		Addr              string `yaml:"addr"`
		DB                int    `yaml:"db"`
		DefaultTTLSeconds int    `yaml:"default_ttl_seconds"`
	} `yaml:"redis"`
}

// DefaultTTL returns the configured cache TTL as a time.Duration.
func (c CacheConfig) DefaultTTL() time.Duration {
	return time.Duration(c.Redis.DefaultTTLSeconds) * time.Second
}

// AuditStoreConfig configures the optional Postgres-backed audit trail
// persistence layer (spec.md §11's auditstore wiring). Enabled gates it:
// when false (the default) serve never connects; analyses still produce an
// in-memory audit.Trail.
type AuditStoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// ServerConfig tunes the HTTP API (spec.md §11's httpapi wiring).
type ServerConfig struct {
	Addr               string `yaml:"addr"`
	RateLimitPerSecond int    `yaml:"rate_limit_per_second"`
	RateLimitBurst     int    `yaml:"rate_limit_burst"`
}

// Config is the top-level configuration document.
type Config struct {
	Cache      CacheConfig      `yaml:"cache"`
	AuditStore AuditStoreConfig `yaml:"audit_store"`
	Server     ServerConfig     `yaml:"server"`
}

// Default returns the configuration used when no file is supplied: an
// in-memory cache, no audit persistence, and a conservative rate limit.
func Default() Config {
	c := Config{}
	c.Cache.Backend = "memory"
	c.Cache.Redis.DefaultTTLSeconds = 300
	c.Server.Addr = ":8080"
	c.Server.RateLimitPerSecond = 20
	c.Server.RateLimitBurst = 40
	return c
}

// Load reads and parses a YAML configuration file, starting from Default()
// so a partial file only overrides the fields it sets.
func Load(path string) (Config, error) {
	c := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return c, nil
}
