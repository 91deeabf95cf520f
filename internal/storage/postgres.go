// Package storage runs bound statements against PostgreSQL through database/sql.
package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"time"

	// PostgreSQL driver
	_ "github.com/lib/pq"

	"github.com/coregx/bookstore/internal/core"
	"github.com/coregx/bookstore/internal/logger"
)

// DriverName is the database/sql driver used by Open.
const DriverName = "postgres"

// ErrClosed is returned by Query after Close.
var ErrClosed = errors.New("storage connector is closed")

// Connector implements core.Connector on a *sql.DB.
//
// Every call checks out a dedicated connection. With ExecOptions.CloseConnection
// the connection goes back to the pool after the call; otherwise it is kept and
// reused by the next call until Close.
type Connector struct {
	db       *sql.DB
	logger   logger.Logger
	interval time.Duration
	health   *healthChecker

	mu     sync.Mutex
	held   *sql.Conn
	closed bool
}

// Option is a functional option for configuring Connector.
type Option func(*Connector)

// WithMaxOpenConns sets the maximum number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(c *Connector) {
		c.db.SetMaxOpenConns(n)
	}
}

// WithMaxIdleConns sets the maximum number of idle connections.
// Zero closes every connection as soon as it is released.
func WithMaxIdleConns(n int) Option {
	return func(c *Connector) {
		c.db.SetMaxIdleConns(n)
	}
}

// WithConnMaxLifetime sets the maximum amount of time a connection may be reused.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(c *Connector) {
		c.db.SetConnMaxLifetime(d)
	}
}

// WithLogger sets the logger used for connection events.
func WithLogger(l logger.Logger) Option {
	return func(c *Connector) {
		c.logger = l
	}
}

// WithHealthCheck pings the database every interval in the background.
// A zero interval disables health checks.
func WithHealthCheck(interval time.Duration) Option {
	return func(c *Connector) {
		c.interval = interval
	}
}

// Open opens a PostgreSQL connection pool for dsn. The pool is opened lazily;
// call Ping to verify connectivity.
func Open(dsn string, opts ...Option) (*Connector, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", DriverName, err)
	}
	return New(db, opts...), nil
}

// New wraps an existing pool. The Connector owns db and closes it on Close.
func New(db *sql.DB, opts ...Option) *Connector {
	c := &Connector{
		db:     db,
		logger: &logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.interval > 0 {
		c.health = newHealthChecker(db, c.logger, c.interval)
		c.health.start()
	}
	return c
}

// Query runs query with args and returns every row as a column map.
// []byte column values are returned as strings.
func (c *Connector) Query(ctx context.Context, query string, args []any, opts core.ExecOptions) ([]core.Row, error) {
	conn, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := queryRows(ctx, conn, query, args)
	c.release(conn, opts.CloseConnection || errors.Is(err, driver.ErrBadConn))
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Ping verifies that the database is reachable.
func (c *Connector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Healthy reports the result of the most recent background health check.
// It is always true when health checks are disabled.
func (c *Connector) Healthy() bool {
	if c.health == nil {
		return true
	}
	return c.health.isHealthy()
}

// Stats returns the connection pool statistics.
func (c *Connector) Stats() sql.DBStats {
	return c.db.Stats()
}

// Close releases the held connection, stops health checks and closes the pool.
func (c *Connector) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	held := c.held
	c.held = nil
	c.mu.Unlock()

	if c.health != nil {
		c.health.shutdown()
	}
	if held != nil {
		_ = held.Close()
	}
	return c.db.Close()
}

func (c *Connector) acquire(ctx context.Context) (*sql.Conn, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if held := c.held; held != nil {
		c.held = nil
		c.mu.Unlock()
		return held, nil
	}
	c.mu.Unlock()

	conn, err := c.db.Conn(ctx)
	if err != nil {
		c.logger.Error("connection checkout failed", "error", err)
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

func (c *Connector) release(conn *sql.Conn, closeConn bool) {
	if !closeConn {
		c.mu.Lock()
		if !c.closed && c.held == nil {
			c.held = conn
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
	if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		c.logger.Warn("connection release failed", "error", err)
	}
}

func queryRows(ctx context.Context, conn *sql.Conn, query string, args []any) ([]core.Row, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []core.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(core.Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
