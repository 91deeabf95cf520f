// Package bookstore is the multi-tenant data-access layer of the bookstore service.
// It reads stories, chapters, paragraphs, configuration and identities from
// PostgreSQL, caches default reads in Redis, and keeps the cache consistent on writes.
//
// Every read is scoped to an application key (tenant) and, by default, to
// records whose publish date has passed:
//
//	db, err := bookstore.Open(cfg, bookstore.WithLogger(slog.Default()))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	view, err := db.GetStory(ctx, "000s...", bookstore.ReadOptions{})
package bookstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/coregx/bookstore/internal/cache"
	"github.com/coregx/bookstore/internal/config"
	"github.com/coregx/bookstore/internal/core"
	"github.com/coregx/bookstore/internal/dialects"
	"github.com/coregx/bookstore/internal/logger"
	"github.com/coregx/bookstore/internal/schema"
	"github.com/coregx/bookstore/internal/security"
	"github.com/coregx/bookstore/internal/storage"
	"github.com/coregx/bookstore/internal/store"
	"github.com/coregx/bookstore/internal/tracer"
)

type (
	// Config holds database, cache and logging settings.
	Config = config.Config
	// Store is the data facade.
	Store = store.Store
	// ReadOptions adjusts one read.
	ReadOptions = store.ReadOptions
	// Record is one entity row keyed by column name.
	Record = store.Record
	// StoryView is a story with its chapter headlines.
	StoryView = store.StoryView
	// ChapterView is a chapter with its paragraph headlines.
	ChapterView = store.ChapterView
	// Values is an ordered list of column assignments for writes.
	Values = core.Values
	// Assignment is one column and its value.
	Assignment = core.Assignment
	// PublishCutoff selects the publish-date filter of a read.
	PublishCutoff = core.PublishCutoff
	// QueryEvent describes one executed statement.
	QueryEvent = core.QueryEvent
	// QueryHook is invoked after every statement.
	QueryHook = core.QueryHook
	// Table describes one entity table.
	Table = schema.Table
	// Cache stores JSON values under namespaced keys.
	Cache = cache.Cache
	// CacheStats holds cache counters.
	CacheStats = cache.Stats
)

// Re-export constructors, entity kinds and errors.
var (
	LoadConfig    = config.Load
	DefaultConfig = config.Default

	PublishedNow    = core.PublishedNow
	NoPublishFilter = core.NoPublishFilter
	PublishedBefore = core.PublishedBefore
	ParseCutoff     = core.ParseCutoff

	Story         = schema.Story
	Chapter       = schema.Chapter
	Paragraph     = schema.Paragraph
	Configuration = schema.Configuration
	Identity      = schema.Identity
	LookupTable   = schema.Lookup
	NewID         = schema.NewID

	ErrMissingID            = core.ErrMissingID
	ErrNoValues             = core.ErrNoValues
	ErrUnsupportedValueType = core.ErrUnsupportedValueType
	ErrUnknownTable         = schema.ErrUnknownTable
	ErrDuplicateKey         = dialects.ErrDuplicateKey
	ErrForeignKey           = dialects.ErrForeignKey
	ErrWrongKind            = store.ErrWrongKind
	ErrCacheDisabled        = store.ErrCacheDisabled
	ErrCacheUnavailable     = cache.ErrUnavailable
	ErrUnknownCacheKey      = cache.ErrUnknownCacheKey
	ErrUnsafeFragment       = security.ErrUnsafeFragment
)

// DB is an open bookstore: a Store and the connections it owns.
type DB struct {
	*store.Store
	storage *storage.Connector
	cache   *cache.Cache
}

type options struct {
	logger *slog.Logger
	tracer trace.Tracer
	hook   core.QueryHook
	cache  cache.Connector
}

// Option is a functional option for Open and WrapDB.
type Option func(*options)

// WithLogger logs statements, cache operations and audit events to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTracer traces statements and cache operations with an OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithQueryHook sets a callback invoked after every statement.
func WithQueryHook(h QueryHook) Option {
	return func(o *options) {
		o.hook = h
	}
}

// WithCacheConnector replaces the connector selected by the cache backend setting.
func WithCacheConnector(c cache.Connector) Option {
	return func(o *options) {
		o.cache = c
	}
}

// Open validates cfg and opens the PostgreSQL pool and cache it describes.
// No connection is made until the first operation; use Ping to check connectivity.
func Open(cfg *Config, opts ...Option) (*DB, error) {
	if cfg == nil {
		return nil, errors.New("bookstore: nil config")
	}
	c := *cfg
	if err := c.Validate(); err != nil {
		return nil, err
	}
	o := collect(opts)

	conn, err := storage.Open(c.Database.DSN(), storageOptions(c, o)...)
	if err != nil {
		return nil, err
	}
	db, err := build(c, conn, o)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

// WrapDB builds a bookstore over an existing pool. The database section of cfg
// only contributes the health check interval; pool limits stay as configured on sqlDB.
func WrapDB(sqlDB *sql.DB, cfg *Config, opts ...Option) (*DB, error) {
	if cfg == nil {
		return nil, errors.New("bookstore: nil config")
	}
	c := *cfg
	if err := c.Validate(); err != nil {
		return nil, err
	}
	o := collect(opts)

	conn := storage.New(sqlDB,
		storage.WithLogger(newLogger(o)),
		storage.WithHealthCheck(c.Database.HealthCheckInterval),
	)
	return build(c, conn, o)
}

// Ping verifies that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.storage.Ping(ctx)
}

// Healthy reports the latest background health check.
func (db *DB) Healthy() bool {
	return db.storage.Healthy()
}

// Cache returns the cache used by the store.
func (db *DB) Cache() *Cache {
	return db.cache
}

// CacheStats returns the cache counters.
func (db *DB) CacheStats() CacheStats {
	return db.cache.Stats()
}

// Close closes the database pool and the cache connector, including one passed
// with WithCacheConnector.
func (db *DB) Close() error {
	return errors.Join(db.storage.Close(), db.cache.Close())
}

func collect(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func newLogger(o *options) logger.Logger {
	return logger.NewSlogAdapter(o.logger)
}

func newTracer(o *options) tracer.Tracer {
	if o.tracer == nil {
		return &tracer.NoopTracer{}
	}
	return tracer.NewOtelTracer(o.tracer)
}

func storageOptions(c Config, o *options) []storage.Option {
	opts := []storage.Option{
		storage.WithLogger(newLogger(o)),
		storage.WithHealthCheck(c.Database.HealthCheckInterval),
	}
	if c.Database.MaxOpenConns > 0 {
		opts = append(opts, storage.WithMaxOpenConns(c.Database.MaxOpenConns))
	}
	if c.Database.MaxIdleConns > 0 {
		opts = append(opts, storage.WithMaxIdleConns(c.Database.MaxIdleConns))
	}
	if c.Database.ConnMaxLifetime > 0 {
		opts = append(opts, storage.WithConnMaxLifetime(c.Database.ConnMaxLifetime))
	}
	return opts
}

func build(c Config, conn *storage.Connector, o *options) (*DB, error) {
	log := newLogger(o)
	trc := newTracer(o)
	sanitizer := logger.NewSanitizer(nil)

	execOpts := []core.Option{
		core.WithLogger(log),
		core.WithSanitizer(sanitizer),
		core.WithTracer(trc),
		core.WithValidator(security.NewValidator()),
	}
	if o.logger != nil {
		level, err := c.Log.AuditLevel()
		if err != nil {
			return nil, err
		}
		execOpts = append(execOpts, core.WithAuditor(security.NewAuditor(o.logger, level)))
	}
	if o.hook != nil {
		execOpts = append(execOpts, core.WithQueryHook(o.hook))
	}
	exec, err := core.NewExecutor(conn, execOpts...)
	if err != nil {
		return nil, err
	}

	cacheConn := o.cache
	if cacheConn == nil {
		switch c.Cache.Backend {
		case config.BackendMemory:
			cacheConn = cache.NewMemoryConnectorWithCapacity(c.Cache.MemoryCapacity)
		default:
			cacheConn = cache.NewRedisConnector(c.Cache.RedisOptions())
		}
	}
	kv, err := cache.New(cacheConn, cache.KeyFactory{
		Namespace: cache.Namespace{
			KeyPrefix:      c.Cache.KeyPrefix,
			ApplicationKey: c.Cache.ApplicationKey,
			DataIncrement:  c.Cache.DataIncrement,
		},
		DefaultTTL: c.Cache.DefaultTTL,
	},
		cache.WithLogger(logger.With(log, "component", "cache")),
		cache.WithSanitizer(sanitizer),
		cache.WithTracer(trc),
	)
	if err != nil {
		return nil, err
	}

	s, err := store.New(exec,
		store.WithCache(kv),
		store.WithLogger(logger.With(log, "component", "store")),
		store.WithApplicationKey(c.Cache.ApplicationKey),
		store.WithFallbackOnUnavailable(c.Cache.FallbackOnUnavailable),
	)
	if err != nil {
		return nil, err
	}
	return &DB{Store: s, storage: conn, cache: kv}, nil
}
