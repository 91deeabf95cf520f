// Package cache stores JSON-encoded read results in a key-value store under
// namespaced keys, with a fixed lifetime per cache kind.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coregx/bookstore/internal/logger"
	"github.com/coregx/bookstore/internal/tracer"
)

var (
	// ErrUnavailable wraps every failure to reach the key-value store.
	ErrUnavailable = errors.New("cache store unavailable")
	// ErrMissingConnector is returned when a Cache is created without a connector.
	ErrMissingConnector = errors.New("cache connector is not configured")
)

// Connector is a key-value store. Connect and Disconnect bracket every cache
// operation; Connect on an open connector must be cheap.
type Connector interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsOpen() bool
	// Get reports false when key does not exist.
	Get(ctx context.Context, key string) (string, bool, error)
	SetEx(ctx context.Context, key string, ttl time.Duration, value string) error
	Del(ctx context.Context, keys ...string) error
}

// Result is the outcome of a successful Get.
type Result uint8

// Get results.
const (
	Miss Result = iota
	Hit
)

func (r Result) String() string {
	if r == Hit {
		return "hit"
	}
	return "miss"
}

// Stats holds cache counters.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Errors  uint64
	HitRate float64
}

// Cache reads and writes JSON values through a Connector.
type Cache struct {
	conn      Connector
	keys      KeyFactory
	logger    logger.Logger
	sanitizer *logger.Sanitizer
	tracer    tracer.Tracer

	hits   atomic.Uint64
	misses atomic.Uint64
	errors atomic.Uint64
}

// Option is a functional option for configuring Cache.
type Option func(*Cache)

// WithLogger sets the cache logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// WithSanitizer sets the key masking used in logs and spans.
func WithSanitizer(s *logger.Sanitizer) Option {
	return func(c *Cache) {
		c.sanitizer = s
	}
}

// WithTracer sets the cache tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(c *Cache) {
		c.tracer = t
	}
}

// New creates a Cache over conn with keys resolved by keys.
func New(conn Connector, keys KeyFactory, opts ...Option) (*Cache, error) {
	if conn == nil {
		return nil, ErrMissingConnector
	}
	c := &Cache{
		conn:      conn,
		keys:      keys,
		logger:    &logger.NoopLogger{},
		sanitizer: logger.NewSanitizer(nil),
		tracer:    &tracer.NoopTracer{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Keys returns the key factory.
func (c *Cache) Keys() KeyFactory {
	return c.keys
}

// Get probes the current and legacy keys of lookup concurrently and decodes the
// first hit into dest, preferring the current key. A store failure returns an
// error wrapping ErrUnavailable, never a Miss.
func (c *Cache) Get(ctx context.Context, lookup string, dest any) (Result, error) {
	gen, err := c.keys.Resolve(lookup)
	if err != nil {
		return Miss, err
	}
	return c.probe(ctx, gen, dest)
}

func (c *Cache) probe(ctx context.Context, gen Generator, dest any) (Result, error) {
	ctx, span := c.tracer.StartSpan(ctx, "bookstore.cache.get")
	defer span.End()
	start := time.Now()

	keys := []string{gen.Key()}
	if legacy, ok := gen.LegacyKey(); ok {
		keys = append(keys, legacy)
	}
	values := make([]string, len(keys))
	found := make([]bool, len(keys))

	err := c.withConnection(ctx, func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		for i, key := range keys {
			i, key := i, key
			g.Go(func() error {
				v, ok, err := c.conn.Get(gctx, key)
				if err != nil {
					return err
				}
				values[i], found[i] = v, ok && v != ""
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		c.reconcile(ctx, gen, keys, values, found)
		return nil
	})

	result := Miss
	if err == nil {
		for i := range keys {
			if !found[i] {
				continue
			}
			if uerr := json.Unmarshal([]byte(values[i]), dest); uerr != nil {
				err = fmt.Errorf("decode cached %s: %w", gen.Kind, uerr)
			} else {
				result = Hit
			}
			break
		}
	}

	c.record(span, "get", gen, result == Hit, time.Since(start), err)
	if err != nil {
		return Miss, err
	}
	return result, nil
}

// reconcile copies a legacy-only hit into the current key so later reads stop
// depending on the legacy scheme. Failures are logged, the read still succeeds.
func (c *Cache) reconcile(ctx context.Context, gen Generator, keys, values []string, found []bool) {
	if len(keys) < 2 || keys[0] == keys[1] || found[0] || !found[1] {
		return
	}
	if err := c.conn.SetEx(ctx, keys[0], gen.Lifetime(), values[1]); err != nil {
		c.logger.Warn("cache reconcile failed",
			"kind", string(gen.Kind),
			"key", c.sanitizer.MaskKey(keys[0]),
			"error", err,
		)
	}
}

// Set JSON-encodes value and stores it under the current key of lookup with the kind's lifetime.
func (c *Cache) Set(ctx context.Context, lookup string, value any) error {
	gen, err := c.keys.Resolve(lookup)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", gen.Kind, err)
	}

	ctx, span := c.tracer.StartSpan(ctx, "bookstore.cache.set")
	defer span.End()
	start := time.Now()

	err = c.withConnection(ctx, func(ctx context.Context) error {
		return c.conn.SetEx(ctx, gen.Key(), gen.Lifetime(), string(payload))
	})
	c.record(span, "set", gen, false, time.Since(start), err)
	return err
}

// Del removes the current and legacy keys of lookup.
func (c *Cache) Del(ctx context.Context, lookup string) error {
	gen, err := c.keys.Resolve(lookup)
	if err != nil {
		return err
	}

	ctx, span := c.tracer.StartSpan(ctx, "bookstore.cache.del")
	defer span.End()
	start := time.Now()

	err = c.withConnection(ctx, func(ctx context.Context) error {
		return c.conn.Del(ctx, gen.Keys()...)
	})
	c.record(span, "del", gen, false, time.Since(start), err)
	return err
}

// Stats returns the hit, miss and error counters.
func (c *Cache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	rate := 0.0
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Hits:    hits,
		Misses:  misses,
		Errors:  c.errors.Load(),
		HitRate: rate,
	}
}

// Close closes the connector when it reports itself open and implements io.Closer.
// Connectors without a Close method, such as MemoryConnector, are left as they are.
func (c *Cache) Close() error {
	closer, ok := c.conn.(io.Closer)
	if !ok || !c.conn.IsOpen() {
		return nil
	}
	if err := closer.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", ErrUnavailable, err)
	}
	return nil
}

// withConnection connects, runs fn and disconnects. Connector failures are wrapped in ErrUnavailable.
func (c *Cache) withConnection(ctx context.Context, fn func(context.Context) error) error {
	if err := c.conn.Connect(ctx); err != nil {
		return fmt.Errorf("%w: connect: %w", ErrUnavailable, err)
	}
	err := fn(ctx)
	if derr := c.conn.Disconnect(ctx); derr != nil {
		c.logger.Warn("cache disconnect failed", "error", derr)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *Cache) record(span tracer.Span, op string, gen Generator, hit bool, elapsed time.Duration, err error) {
	key := c.sanitizer.MaskKey(gen.Key())
	tracer.AddCacheAttributes(span, &tracer.CacheMetadata{
		Operation: op,
		Kind:      string(gen.Kind),
		Key:       key,
		Hit:       hit,
		Duration:  elapsed,
		Error:     err,
	})

	if err != nil {
		c.errors.Add(1)
		c.logger.Error("cache operation failed",
			"operation", op,
			"kind", gen.Kind,
			"key", key,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return
	}
	if op == "get" {
		if hit {
			c.hits.Add(1)
		} else {
			c.misses.Add(1)
		}
	}
	c.logger.Debug("cache operation",
		"operation", op,
		"kind", gen.Kind,
		"key", key,
		"hit", hit,
		"duration_ms", elapsed.Milliseconds(),
	)
}
