// Package config loads bookstore settings from a YAML file with BOOKSTORE_*
// environment overrides.
package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/coregx/bookstore/internal/security"
)

// Cache backends.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds configuration for the bookstore data layer.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	// Default: "localhost"
	Host string `yaml:"host"`
	// Default: 5432
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	// One of disable, require, verify-ca, verify-full.
	// Default: "require"
	SSLMode string `yaml:"sslmode"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	// Zero disables background health checks.
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
}

// CacheConfig holds the key-value store settings and key namespace.
type CacheConfig struct {
	// Default: "redis"
	Backend  string `yaml:"backend"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// Keys are namespaced as {key_prefix}-{application_key}-{data_increment}.
	KeyPrefix      string `yaml:"key_prefix"`
	ApplicationKey string `yaml:"application_key"`
	DataIncrement  int    `yaml:"data_increment"`

	// Default: 1h
	DefaultTTL time.Duration `yaml:"default_ttl"`
	// Read storage, with a warning, when the cache cannot be reached.
	FallbackOnUnavailable bool `yaml:"fallback_on_unavailable"`
	// Default: 1000
	MemoryCapacity int `yaml:"memory_capacity"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// debug, info, warn or error. Default: "info"
	Level string `yaml:"level"`
	// text or json. Default: "text"
	Format string `yaml:"format"`
	// Statements written to the audit log: none, writes or all. Default: "writes"
	Audit string `yaml:"audit"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "require",
		},
		Cache: CacheConfig{
			Backend:        BackendRedis,
			Addr:           "localhost:6379",
			KeyPrefix:      "bookstore",
			DefaultTTL:     time.Hour,
			MemoryCapacity: 1000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Audit:  "writes",
		},
	}
}

// Load reads path (when not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) decode(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && err != io.EOF {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from BOOKSTORE_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"BOOKSTORE_DB_HOST":          &c.Database.Host,
		"BOOKSTORE_DB_NAME":          &c.Database.Name,
		"BOOKSTORE_DB_USER":          &c.Database.User,
		"BOOKSTORE_DB_PASSWORD":      &c.Database.Password,
		"BOOKSTORE_DB_SSLMODE":       &c.Database.SSLMode,
		"BOOKSTORE_CACHE_BACKEND":    &c.Cache.Backend,
		"BOOKSTORE_CACHE_ADDR":       &c.Cache.Addr,
		"BOOKSTORE_CACHE_PASSWORD":   &c.Cache.Password,
		"BOOKSTORE_CACHE_KEY_PREFIX": &c.Cache.KeyPrefix,
		"BOOKSTORE_APPLICATION_KEY":  &c.Cache.ApplicationKey,
		"BOOKSTORE_LOG_LEVEL":        &c.Log.Level,
		"BOOKSTORE_LOG_FORMAT":       &c.Log.Format,
		"BOOKSTORE_LOG_AUDIT":        &c.Log.Audit,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"BOOKSTORE_DB_PORT":        &c.Database.Port,
		"BOOKSTORE_CACHE_DB":       &c.Cache.DB,
		"BOOKSTORE_DATA_INCREMENT": &c.Cache.DataIncrement,
	}
	for name, dst := range ints {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = n
	}

	if v, ok := lookup("BOOKSTORE_CACHE_TTL"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid BOOKSTORE_CACHE_TTL: %w", err)
		}
		c.Cache.DefaultTTL = d
	}
	if v, ok := lookup("BOOKSTORE_CACHE_FALLBACK"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid BOOKSTORE_CACHE_FALLBACK: %w", err)
		}
		c.Cache.FallbackOnUnavailable = b
	}
	return nil
}

// Validate fills unset values with defaults and rejects values that cannot work.
func (c *Config) Validate() error {
	def := Default()
	if c.Database.Host == "" {
		c.Database.Host = def.Database.Host
	}
	if c.Database.Port <= 0 {
		c.Database.Port = def.Database.Port
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = def.Database.SSLMode
	}
	switch c.Database.SSLMode {
	case "disable", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("invalid database sslmode %q", c.Database.SSLMode)
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = def.Cache.Backend
	}
	switch c.Cache.Backend {
	case BackendRedis:
		if c.Cache.Addr == "" {
			c.Cache.Addr = def.Cache.Addr
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid cache backend %q", c.Cache.Backend)
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = def.Cache.KeyPrefix
	}
	if c.Cache.DefaultTTL <= 0 {
		c.Cache.DefaultTTL = def.Cache.DefaultTTL
	}
	if c.Cache.MemoryCapacity <= 0 {
		c.Cache.MemoryCapacity = def.Cache.MemoryCapacity
	}
	if c.Cache.DataIncrement < 0 {
		return fmt.Errorf("invalid cache data increment %d", c.Cache.DataIncrement)
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if c.Log.Audit == "" {
		c.Log.Audit = def.Log.Audit
	}
	if _, err := c.Log.AuditLevel(); err != nil {
		return err
	}
	return nil
}

// DSN returns a lib/pq connection URL.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	return u.String()
}

// RedisOptions returns go-redis client options.
func (c CacheConfig) RedisOptions() *redis.Options {
	return &redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	}
}

// NewLogger builds a slog logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := l.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// AuditLevel returns the configured audit level.
func (l LogConfig) AuditLevel() (security.AuditLevel, error) {
	switch l.Audit {
	case "none":
		return security.AuditNone, nil
	case "writes":
		return security.AuditWrites, nil
	case "all":
		return security.AuditAll, nil
	}
	return security.AuditNone, fmt.Errorf("invalid audit level %q", l.Audit)
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", l.Level)
	}
	return level, nil
}
