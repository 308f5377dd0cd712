package redisconn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

var (
	// ErrNoCallback is returned when WithConnection is called without a
	// callback. No connection is checked out.
	ErrNoCallback = errors.New("keel/redisconn: callback is required")

	// ErrPoolTimeout is returned when no connection became free within the
	// pool timeout.
	ErrPoolTimeout = errors.New("keel/redisconn: connection pool timeout")

	// ErrPoolClosed is returned by checkouts after Close.
	ErrPoolClosed = errors.New("keel/redisconn: connection pool closed")
)

// Stats is a point-in-time view of a Pool.
type Stats struct {
	Size     int
	InUse    int64
	Idle     int
	Dials    int64
	Discards int64
}

// Pool leases connections to callers, at most Size at a time. It is safe
// for concurrent use.
type Pool struct {
	opts   Options
	dial   Dialer
	sem    *semaphore.Weighted
	logger *slog.Logger
	tel    *telemetry

	mu     sync.Mutex
	idle   []*Conn
	closed bool

	inUse    atomic.Int64
	dials    atomic.Int64
	discards atomic.Int64
}

// NewPool creates a pool. Connections are dialed lazily on first checkout.
func NewPool(opts Options) (*Pool, error) {
	opts = opts.withDefaults()
	dial, err := opts.dialer()
	if err != nil {
		return nil, err
	}
	return &Pool{
		opts:   opts,
		dial:   dial,
		sem:    semaphore.NewWeighted(int64(opts.Size)),
		logger: opts.Logger,
		tel:    newTelemetry(opts.TracerProvider, opts.MeterProvider),
	}, nil
}

// Size returns the pool capacity.
func (p *Pool) Size() int { return p.opts.Size }

// Stats returns current pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	idle := len(p.idle)
	p.mu.Unlock()
	return Stats{
		Size:     p.opts.Size,
		InUse:    p.inUse.Load(),
		Idle:     idle,
		Dials:    p.dials.Load(),
		Discards: p.discards.Load(),
	}
}

// acquire blocks until a slot is free or the pool timeout elapses, then
// returns an idle connection or dials a new one.
func (p *Pool) acquire(ctx context.Context) (*Conn, error) {
	if p.isClosed() {
		return nil, ErrPoolClosed
	}

	wctx, cancel := context.WithTimeout(ctx, p.opts.PoolTimeout)
	defer cancel()
	if err := p.sem.Acquire(wctx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w after %s", ErrPoolTimeout, p.opts.PoolTimeout)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		return nil, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		c := p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		p.inUse.Add(1)
		p.tel.checkout(ctx)
		return c, nil
	}
	p.mu.Unlock()

	client, err := p.dial(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, fmt.Errorf("keel/redisconn: dial: %w", err)
	}
	p.dials.Add(1)
	p.inUse.Add(1)
	p.tel.checkout(ctx)
	return newConn(client), nil
}

// release returns c to the idle stack.
func (p *Pool) release(c *Conn) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.closeConn(c)
	} else {
		p.idle = append(p.idle, c)
		p.mu.Unlock()
	}
	p.inUse.Add(-1)
	p.sem.Release(1)
}

// discard closes c and frees its slot; the next checkout dials afresh.
func (p *Pool) discard(c *Conn) {
	p.closeConn(c)
	p.discards.Add(1)
	p.inUse.Add(-1)
	p.sem.Release(1)
}

func (p *Pool) closeConn(c *Conn) {
	if err := c.client.Close(); err != nil {
		p.logger.Warn("redis connection close failed",
			slog.String("conn_id", c.id.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close closes idle connections and rejects further checkouts. Connections
// leased at the time of Close are closed when they are released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var errs []error
	for _, c := range idle {
		if err := c.client.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
