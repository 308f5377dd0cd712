package redisconn

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Defaults applied by NewPool to zero-valued Options fields.
const (
	DefaultURL         = "redis://localhost:6379/0"
	DefaultSize        = 5
	DefaultPoolTimeout = time.Second
)

// Client is the store client held by one pooled connection.
// *redis.Client satisfies it.
type Client interface {
	redis.Cmdable
	Close() error
}

// Dialer creates a new Client. Each call must produce an independent
// underlying connection.
type Dialer func(ctx context.Context) (Client, error)

// Options configures a Pool.
type Options struct {
	// URL is a redis:// or rediss:// URL. Ignored when Dialer is set.
	URL string

	// Size is the maximum number of connections leased at once.
	Size int

	// PoolTimeout bounds how long a checkout waits for a free connection.
	PoolTimeout time.Duration

	// Network timeouts passed to the client. Zero keeps the go-redis defaults.
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Name is sent with CLIENT SETNAME on every new connection.
	Name string

	// Dialer overrides how connections are created.
	Dialer Dialer

	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

func (o Options) withDefaults() Options {
	if o.URL == "" {
		o.URL = DefaultURL
	}
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.PoolTimeout <= 0 {
		o.PoolTimeout = DefaultPoolTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// dialer returns o.Dialer, or a dialer that builds single-connection
// go-redis clients from o.URL.
func (o Options) dialer() (Dialer, error) {
	if o.Dialer != nil {
		return o.Dialer, nil
	}

	base, err := redis.ParseURL(o.URL)
	if err != nil {
		return nil, fmt.Errorf("keel/redisconn: parse url: %w", err)
	}

	// One leased Conn is one TCP connection, so discarding a Conn after a
	// failover really does force a fresh connection.
	base.PoolSize = 1
	base.MinIdleConns = 0
	// The single bounded retry in WithConnection is the only retry.
	base.MaxRetries = -1
	if o.Name != "" {
		base.ClientName = o.Name
	}
	if o.DialTimeout > 0 {
		base.DialTimeout = o.DialTimeout
	}
	if o.ReadTimeout > 0 {
		base.ReadTimeout = o.ReadTimeout
	}
	if o.WriteTimeout > 0 {
		base.WriteTimeout = o.WriteTimeout
	}

	return func(_ context.Context) (Client, error) {
		opts := *base
		return redis.NewClient(&opts), nil
	}, nil
}
