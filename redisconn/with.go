package redisconn

import (
	"context"
	"log/slog"
)

// maxAttempts bounds how often one WithConnection call runs its callback:
// the original attempt plus one reconnect after a failover signal.
const maxAttempts = 2

// WithConnection leases a connection from p, runs fn with it and returns
// fn's result. If fn fails with a failover signal on the first attempt, the
// connection is discarded and fn runs once more on a new connection. Any
// other error, or a failure of the second attempt, is returned unchanged.
//
// A nil fn fails with ErrNoCallback without touching the pool.
func WithConnection[T any](ctx context.Context, p *Pool, fn func(*Conn) (T, error)) (T, error) {
	var zero T
	if fn == nil {
		return zero, ErrNoCallback
	}

	ctx, span := p.tel.start(ctx)
	var (
		lastErr  error
		attempts int
		failover Signal
	)
	defer func() { p.tel.end(span, attempts, failover, lastErr) }()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = attempt

		c, err := p.acquire(ctx)
		if err != nil {
			lastErr = err
			return zero, err
		}

		v, err := invoke(p, c, fn)
		if err == nil {
			p.release(c)
			lastErr = nil
			return v, nil
		}
		lastErr = err

		signal := Classify(err)
		if !signal.Failover() {
			p.release(c)
			return zero, err
		}

		// A connection that observed a failover points at a demoted node;
		// never hand it out again.
		p.discard(c)
		failover = signal
		if attempt < maxAttempts {
			p.logger.Info("redis failover detected, reconnecting",
				slog.String("signal", signal.String()),
				slog.String("conn_id", c.ID().String()),
				slog.String("error", err.Error()),
			)
			p.tel.reconnect(ctx, signal)
		}
	}
	return zero, lastErr
}

// invoke runs fn, discarding c if fn panics.
func invoke[T any](p *Pool, c *Conn, fn func(*Conn) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.discard(c)
			panic(r)
		}
	}()
	return fn(c)
}

// Do is WithConnection for callbacks that produce no value.
func (p *Pool) Do(ctx context.Context, fn func(*Conn) error) error {
	if fn == nil {
		return ErrNoCallback
	}
	_, err := WithConnection(ctx, p, func(c *Conn) (struct{}, error) {
		return struct{}{}, fn(c)
	})
	return err
}
