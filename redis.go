package keel

import (
	"context"
	"maps"
	"strings"

	"github.com/xraph/keel/redisconn"
)

// placeholderInfo stands in for INFO on servers that rename or disable it.
var placeholderInfo = map[string]string{
	"redis_version":          "9.9.9",
	"uptime_in_days":         "9999",
	"connected_clients":      "9999",
	"used_memory_human":      "9P",
	"used_memory_peak_human": "9P",
}

// Pool returns the connection pool, creating it from the Redis options on
// first use. After Close it fails with redisconn.ErrPoolClosed.
func (c *Config) Pool() (*redisconn.Pool, error) {
	c.poolMu.Lock()
	defer c.poolMu.Unlock()
	if c.poolClosed {
		return nil, redisconn.ErrPoolClosed
	}
	if c.pool != nil {
		return c.pool, nil
	}

	opts := c.redisOpts
	if opts.Size <= 0 {
		opts.Size = c.Concurrency() + 2
	}
	if opts.Logger == nil {
		opts.Logger = c.logger
	}
	p, err := redisconn.NewPool(opts)
	if err != nil {
		return nil, err
	}
	c.pool = p
	return p, nil
}

// Redis leases a connection for the duration of fn. A read-only redirect
// or instance-state change reported by the server discards the connection
// and runs fn once more on a fresh one; any other error is returned as is.
func (c *Config) Redis(ctx context.Context, fn func(*redisconn.Conn) error) error {
	if fn == nil {
		return redisconn.ErrNoCallback
	}
	p, err := c.Pool()
	if err != nil {
		return err
	}
	return p.Do(ctx, fn)
}

// WithRedis is Config.Redis for callbacks that produce a value.
func WithRedis[T any](ctx context.Context, c *Config, fn func(*redisconn.Conn) (T, error)) (T, error) {
	var zero T
	if fn == nil {
		return zero, redisconn.ErrNoCallback
	}
	p, err := c.Pool()
	if err != nil {
		return zero, err
	}
	return redisconn.WithConnection(ctx, p, fn)
}

// RedisInfo returns the server's INFO fields. When the server rejects INFO
// as an unknown command, a fixed placeholder map is returned instead.
func (c *Config) RedisInfo(ctx context.Context) (map[string]string, error) {
	info, err := WithRedis(ctx, c, func(conn *redisconn.Conn) (map[string]string, error) {
		return redisconn.Info(ctx, conn)
	})
	if err != nil {
		if isUnknownCommand(err) {
			return maps.Clone(placeholderInfo), nil
		}
		return nil, err
	}
	return info, nil
}

func isUnknownCommand(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unknown command")
}

// Close releases the connection pool, if one was created. Redis access
// through c fails with redisconn.ErrPoolClosed afterwards; Close itself is
// idempotent.
func (c *Config) Close() error {
	c.poolMu.Lock()
	defer c.poolMu.Unlock()
	if c.poolClosed {
		return nil
	}
	c.poolClosed = true
	if c.pool == nil {
		return nil
	}
	err := c.pool.Close()
	c.pool = nil
	return err
}
