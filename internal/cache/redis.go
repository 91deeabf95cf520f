package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotConnected is returned by connector reads and writes outside Connect/Disconnect.
var ErrNotConnected = errors.New("cache connector is not connected")

// RedisConnector is a Connector backed by a go-redis client. The client is
// created by the first Connect and closed when the last matching Disconnect
// runs, so concurrent operations share one client.
type RedisConnector struct {
	opts *redis.Options

	mu     sync.Mutex
	client *redis.Client
	refs   int
}

// NewRedisConnector creates a connector for opts. No connection is made until Connect.
func NewRedisConnector(opts *redis.Options) *RedisConnector {
	return &RedisConnector{opts: opts}
}

// Connect opens the client and pings the server, or reuses the open client.
func (r *RedisConnector) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		r.refs++
		return nil
	}

	client := redis.NewClient(r.opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return err
	}
	r.client = client
	r.refs = 1
	return nil
}

// Disconnect releases one Connect and closes the client after the last one.
func (r *RedisConnector) Disconnect(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}
	r.refs--
	if r.refs > 0 {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	r.refs = 0
	return err
}

// Close closes the client regardless of outstanding Connects. A later Connect opens a new client.
func (r *RedisConnector) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	r.refs = 0
	return err
}

// IsOpen reports whether a client is open.
func (r *RedisConnector) IsOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client != nil
}

// Get returns the value stored at key.
func (r *RedisConnector) Get(ctx context.Context, key string) (string, bool, error) {
	client, err := r.current()
	if err != nil {
		return "", false, err
	}
	v, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SetEx stores value at key with an expiry.
func (r *RedisConnector) SetEx(ctx context.Context, key string, ttl time.Duration, value string) error {
	client, err := r.current()
	if err != nil {
		return err
	}
	return client.SetEx(ctx, key, value, ttl).Err()
}

// Del removes keys. Missing keys are ignored.
func (r *RedisConnector) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	client, err := r.current()
	if err != nil {
		return err
	}
	return client.Del(ctx, keys...).Err()
}

func (r *RedisConnector) current() (*redis.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil, ErrNotConnected
	}
	return r.client, nil
}
