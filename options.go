package keel

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/keel/codec"
	"github.com/xraph/keel/redisconn"
)

// Option configures a Config.
type Option func(*Config) error

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) error {
		if l != nil {
			c.logger = l
		}
		return nil
	}
}

// WithConcurrency sets the number of jobs processed at once.
func WithConcurrency(n int) Option {
	return func(c *Config) error {
		_, err := c.SetConcurrency(n)
		return err
	}
}

// WithQueues sets the queues to fetch from.
func WithQueues(queues []string) Option {
	return func(c *Config) error {
		c.SetQueues(queues)
		return nil
	}
}

// WithDefaultJobOptions replaces the default job options.
func WithDefaultJobOptions(opts map[string]any) Option {
	return func(c *Config) error {
		SetDefaultJobOptions(c, opts)
		return nil
	}
}

// WithCodec sets the payload codec. The default is JSON.
func WithCodec(cd codec.Codec) Option {
	return func(c *Config) error {
		if cd != nil {
			c.codec = cd
		}
		return nil
	}
}

// WithErrorHandler appends h to the error handler chain, after the default
// logging handler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *Config) error {
		if h != nil {
			c.extraHandlers = append(c.extraHandlers, h)
		}
		return nil
	}
}

// WithRedisOptions sets the options used to build the connection pool on
// first use. A zero Size means concurrency plus two. Providers already set
// by WithTracerProvider or WithMeterProvider are kept when opts has none.
func WithRedisOptions(opts redisconn.Options) Option {
	return func(c *Config) error {
		if opts.TracerProvider == nil {
			opts.TracerProvider = c.redisOpts.TracerProvider
		}
		if opts.MeterProvider == nil {
			opts.MeterProvider = c.redisOpts.MeterProvider
		}
		c.redisOpts = opts
		return nil
	}
}

// WithPool uses an existing pool instead of building one. The caller keeps
// ownership, but Config.Close closes it.
func WithPool(p *redisconn.Pool) Option {
	return func(c *Config) error {
		c.pool = p
		return nil
	}
}

// WithTracerProvider sets the OTel tracer provider for Redis calls.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) error {
		c.redisOpts.TracerProvider = tp
		return nil
	}
}

// WithMeterProvider sets the OTel meter provider for Redis calls and
// lifecycle event counts.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Config) error {
		c.redisOpts.MeterProvider = mp
		return nil
	}
}
