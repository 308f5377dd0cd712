package keel

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/xraph/keel/codec"
	"github.com/xraph/keel/job"
	"github.com/xraph/keel/lifecycle"
	"github.com/xraph/keel/observability"
	"github.com/xraph/keel/redisconn"
	"github.com/xraph/keel/worker"
)

// Defaults for a new Config.
const (
	DefaultConcurrency = 5
	DefaultQueue       = "default"
)

// Config is the process-wide runtime configuration. Create one with New at
// startup and share it by reference; all methods are safe for concurrent
// use.
type Config struct {
	mu                sync.RWMutex
	concurrency       int
	queues            []string
	defaultJobOptions map[string]any

	logger    *slog.Logger
	codec     codec.Codec
	lifecycle *lifecycle.Registry
	handlers  *HandlerChain

	// extraHandlers collects WithErrorHandler values until the chain exists.
	extraHandlers []ErrorHandler

	poolMu     sync.Mutex
	pool       *redisconn.Pool
	poolClosed bool
	redisOpts  redisconn.Options
}

// New creates a Config with the given options.
func New(opts ...Option) (*Config, error) {
	c := &Config{
		concurrency:       DefaultConcurrency,
		queues:            []string{DefaultQueue},
		defaultJobOptions: stringifyKeys(job.DefaultOptions().Map()),
		logger:            slog.Default(),
		codec:             codec.JSON{},
		lifecycle:         lifecycle.NewRegistry(),
	}
	for _, opt := range opts {
		if opt == nil {
			return nil, ErrNilOption
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if mp := c.redisOpts.MeterProvider; mp != nil {
		if err := observability.NewLifecycleMetrics(mp).Register(c.lifecycle); err != nil {
			return nil, err
		}
	}

	c.handlers = NewHandlerChain(c.logger, LogErrorHandler(c.logger))
	for _, h := range c.extraHandlers {
		c.handlers.Append(h)
	}
	c.extraHandlers = nil
	return c, nil
}

// Logger returns the configured logger.
func (c *Config) Logger() *slog.Logger { return c.logger }

// Codec returns the payload codec.
func (c *Config) Codec() codec.Codec { return c.codec }

// Concurrency returns the number of jobs processed at once.
func (c *Config) Concurrency() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.concurrency
}

// SetConcurrency sets the number of jobs processed at once and returns it.
// A pool created before the change keeps its size.
func (c *Config) SetConcurrency(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidConcurrency, n)
	}
	c.mu.Lock()
	c.concurrency = n
	c.mu.Unlock()
	return n, nil
}

// Queues returns a copy of the queues to fetch from, in priority order.
func (c *Config) Queues() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.queues)
}

// SetQueues stores a copy of queues and returns it. Order and duplicates
// are preserved.
func (c *Config) SetQueues(queues []string) []string {
	stored := slices.Clone(queues)
	if stored == nil {
		stored = []string{}
	}
	c.mu.Lock()
	c.queues = stored
	c.mu.Unlock()
	return slices.Clone(stored)
}

// DefaultJobOptions returns a copy of the options applied to every job.
// Mutating the result does not affect the Config.
func (c *Config) DefaultJobOptions() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.defaultJobOptions)
}

// SetDefaultJobOptions replaces the default job options of c. Keys of any
// comparable type are converted to their string form: strings are kept,
// anything else goes through fmt.Sprint, which uses String for
// fmt.Stringer keys. Values are stored as given. Returns the stored
// options. If two keys share a string form, which value wins is undefined.
func SetDefaultJobOptions[K comparable](c *Config, opts map[K]any) map[string]any {
	normalized := stringifyKeys(opts)
	c.mu.Lock()
	c.defaultJobOptions = normalized
	c.mu.Unlock()
	return maps.Clone(normalized)
}

// MergeDefaultJobOptions merges opts into the current default job options
// of c under a single lock, so concurrent merges never lose updates. Keys
// are stringified as in SetDefaultJobOptions. Returns the merged options.
func MergeDefaultJobOptions[K comparable](c *Config, opts map[K]any) map[string]any {
	normalized := stringifyKeys(opts)
	c.mu.Lock()
	defer c.mu.Unlock()
	merged := maps.Clone(c.defaultJobOptions)
	if merged == nil {
		merged = make(map[string]any, len(normalized))
	}
	maps.Copy(merged, normalized)
	c.defaultJobOptions = merged
	return maps.Clone(merged)
}

func stringifyKeys[K comparable](m map[K]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[keyString(k)] = v
	}
	return out
}

func keyString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}

// Lifecycle returns the lifecycle hook registry.
func (c *Config) Lifecycle() *lifecycle.Registry { return c.lifecycle }

// On registers hook to run when event fires.
func (c *Config) On(event worker.Event, hook lifecycle.Hook) error {
	return c.lifecycle.On(event, hook)
}

// Fire runs the hooks registered for event. Hook failures are returned,
// not isolated.
func (c *Config) Fire(ctx context.Context, event worker.Event) error {
	return c.lifecycle.Fire(ctx, event)
}

// ErrorHandlers returns the live, shared error handler chain. Handlers
// appended or popped here take effect for every later HandleException.
func (c *Config) ErrorHandlers() *HandlerChain { return c.handlers }

// HandleException reports err to every error handler. It never panics and
// never returns err; propagating err is the caller's job.
func (c *Config) HandleException(ctx context.Context, err error, info map[string]any) {
	c.handlers.HandleException(ctx, err, info)
}
