package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/bookstore/internal/security"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bookstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.DefaultTTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db.internal
  port: 6432
  name: books
  user: reader
  password: s3cret
  sslmode: disable
  health_check_interval: 30s
cache:
  backend: memory
  key_prefix: shelf
  application_key: app1
  data_increment: 7
  default_ttl: 15m
  fallback_on_unavailable: true
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6432, cfg.Database.Port)
	assert.Equal(t, 30*time.Second, cfg.Database.HealthCheckInterval)
	assert.Equal(t, BackendMemory, cfg.Cache.Backend)
	assert.Equal(t, "shelf", cfg.Cache.KeyPrefix)
	assert.Equal(t, 7, cfg.Cache.DataIncrement)
	assert.Equal(t, 15*time.Minute, cfg.Cache.DefaultTTL)
	assert.True(t, cfg.Cache.FallbackOnUnavailable)
	assert.Equal(t, 1000, cfg.Cache.MemoryCapacity)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "database:\n  hostname: x\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse YAML")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default().Database, cfg.Database)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"BOOKSTORE_DB_HOST":         "pg",
		"BOOKSTORE_DB_PORT":         "15432",
		"BOOKSTORE_APPLICATION_KEY": "tenant-a",
		"BOOKSTORE_DATA_INCREMENT":  "2",
		"BOOKSTORE_CACHE_TTL":       "90s",
		"BOOKSTORE_CACHE_FALLBACK":  "true",
		"BOOKSTORE_LOG_LEVEL":       "warn",
	}))
	require.NoError(t, err)

	assert.Equal(t, "pg", cfg.Database.Host)
	assert.Equal(t, 15432, cfg.Database.Port)
	assert.Equal(t, "tenant-a", cfg.Cache.ApplicationKey)
	assert.Equal(t, 2, cfg.Cache.DataIncrement)
	assert.Equal(t, 90*time.Second, cfg.Cache.DefaultTTL)
	assert.True(t, cfg.Cache.FallbackOnUnavailable)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestApplyEnv_Invalid(t *testing.T) {
	tests := map[string]string{
		"BOOKSTORE_DB_PORT":        "five",
		"BOOKSTORE_CACHE_TTL":      "forever",
		"BOOKSTORE_CACHE_FALLBACK": "maybe",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			err := cfg.ApplyEnv(envMap(map[string]string{name: value}))
			assert.ErrorContains(t, err, name)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, Default(), cfg)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "sslmode", mutate: func(c *Config) { c.Database.SSLMode = "prefer-ish" }},
		{name: "backend", mutate: func(c *Config) { c.Cache.Backend = "memcached" }},
		{name: "increment", mutate: func(c *Config) { c.Cache.DataIncrement = -1 }},
		{name: "level", mutate: func(c *Config) { c.Log.Level = "loud" }},
		{name: "format", mutate: func(c *Config) { c.Log.Format = "xml" }},
		{name: "audit", mutate: func(c *Config) { c.Log.Audit = "some" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "books", User: "reader", Password: "p@ss word", SSLMode: "disable"}
	assert.Equal(t, "postgres://reader:p%40ss%20word@db:5432/books?sslmode=disable", d.DSN())

	d = DatabaseConfig{Host: "db", Port: 5432, Name: "books", SSLMode: "require"}
	assert.Equal(t, "postgres://db:5432/books?sslmode=require", d.DSN())
}

func TestCacheConfig_RedisOptions(t *testing.T) {
	opts := CacheConfig{Addr: "redis:6379", Password: "pw", DB: 2}.RedisOptions()
	assert.Equal(t, "redis:6379", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
}

func TestLogConfig_AuditLevel(t *testing.T) {
	level, err := LogConfig{Audit: "all"}.AuditLevel()
	require.NoError(t, err)
	assert.Equal(t, security.AuditAll, level)

	level, err = Default().Log.AuditLevel()
	require.NoError(t, err)
	assert.Equal(t, security.AuditWrites, level)
}

func TestLogConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
