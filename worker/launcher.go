package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/keel/codec"
	"github.com/xraph/keel/id"
	"github.com/xraph/keel/redisconn"
)

// Redis keys written by the heartbeat.
const (
	ProcessesKey     = "keel:processes"
	processKeyPrefix = "keel:proc:"
)

// Heartbeat defaults.
const (
	DefaultHeartbeatInterval = 10 * time.Second
	DefaultHeartbeatTTL      = 60 * time.Second
)

// ErrLauncherStopped is returned by Start and Beat once Stop has run. A
// stopped Launcher is final; create a new one to run again.
var ErrLauncherStopped = errors.New("keel/worker: launcher stopped")

// ProcessKey returns the hash key holding the heartbeat of process pid.
func ProcessKey(pid id.ProcessID) string { return processKeyPrefix + pid.String() }

// Runtime is what a Launcher needs from the process configuration.
// *keel.Config satisfies it.
type Runtime interface {
	Concurrency() int
	Queues() []string
	Codec() codec.Codec
	Fire(ctx context.Context, event Event) error
	HandleException(ctx context.Context, err error, info map[string]any)
	Redis(ctx context.Context, fn func(*redisconn.Conn) error) error
}

// ProcessInfo is the identity published with every heartbeat.
type ProcessInfo struct {
	Identity    id.ProcessID `json:"identity" msgpack:"identity"`
	Hostname    string       `json:"hostname" msgpack:"hostname"`
	PID         int          `json:"pid" msgpack:"pid"`
	Concurrency int          `json:"concurrency" msgpack:"concurrency"`
	Queues      []string     `json:"queues" msgpack:"queues"`
	StartedAt   time.Time    `json:"started_at" msgpack:"started_at"`
}

// Launcher drives the lifecycle of one worker process: it fires lifecycle
// events and keeps the process heartbeat in Redis.
type Launcher struct {
	rt       Runtime
	pid      id.ProcessID
	logger   *slog.Logger
	hostname string

	interval time.Duration
	ttl      time.Duration

	startedAt time.Time
	beats     atomic.Int64
	firstBeat atomic.Bool
	quiet     atomic.Bool

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	// beatMu orders heartbeat writes against the final key cleanup.
	beatMu  sync.RWMutex
	stopped bool
}

// LauncherOption configures a Launcher.
type LauncherOption func(*Launcher)

// WithHeartbeatInterval sets how often the heartbeat is written.
func WithHeartbeatInterval(d time.Duration) LauncherOption {
	return func(l *Launcher) { l.interval = d }
}

// WithHeartbeatTTL sets the expiry of the heartbeat keys.
func WithHeartbeatTTL(d time.Duration) LauncherOption {
	return func(l *Launcher) { l.ttl = d }
}

// WithLauncherLogger sets the logger.
func WithLauncherLogger(logger *slog.Logger) LauncherOption {
	return func(l *Launcher) { l.logger = logger }
}

// WithHostname overrides the hostname reported in the heartbeat.
func WithHostname(h string) LauncherOption {
	return func(l *Launcher) { l.hostname = h }
}

// NewLauncher creates a Launcher for rt.
func NewLauncher(rt Runtime, opts ...LauncherOption) *Launcher {
	l := &Launcher{
		rt:       rt,
		pid:      id.NewProcessID(),
		logger:   slog.Default(),
		interval: DefaultHeartbeatInterval,
		ttl:      DefaultHeartbeatTTL,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.hostname == "" {
		l.hostname, _ = os.Hostname()
	}
	if l.interval <= 0 {
		l.interval = DefaultHeartbeatInterval
	}
	if l.ttl < l.interval {
		l.ttl = 6 * l.interval
	}
	return l
}

// ID returns the process identifier.
func (l *Launcher) ID() id.ProcessID { return l.pid }

// Beats returns the number of heartbeats completed so far, events included.
func (l *Launcher) Beats() int64 { return l.beats.Load() }

// Info returns the identity the next heartbeat will publish.
func (l *Launcher) Info() ProcessInfo {
	return ProcessInfo{
		Identity:    l.pid,
		Hostname:    l.hostname,
		PID:         os.Getpid(),
		Concurrency: l.rt.Concurrency(),
		Queues:      l.rt.Queues(),
		StartedAt:   l.startedAt,
	}
}

// Start fires Startup and launches the heartbeat goroutine. The first
// heartbeat is written immediately. It returns without waiting. Starting a
// running Launcher is a no-op; starting a stopped one fails with
// ErrLauncherStopped.
func (l *Launcher) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.isStopped() {
		return ErrLauncherStopped
	}
	if l.running {
		return nil
	}
	l.running = true
	l.startedAt = time.Now().UTC()

	l.logger.Info("worker process starting",
		slog.String("process_id", l.pid.String()),
		slog.Int("concurrency", l.rt.Concurrency()),
		slog.Any("queues", l.rt.Queues()),
	)
	l.fire(ctx, Startup)

	l.wg.Add(1)
	go l.heartbeatLoop()
	return nil
}

// Quiet fires Quiet the first time it is called. The process keeps its
// heartbeat but reports itself quiet.
func (l *Launcher) Quiet(ctx context.Context) {
	if l.quiet.Swap(true) {
		return
	}
	l.logger.Info("worker process quieting", slog.String("process_id", l.pid.String()))
	l.fire(ctx, Quiet)
}

// Stop quiets the process if needed, stops the heartbeat, fires Shutdown,
// removes the heartbeat keys and finally fires Exit. If ctx ends before the
// heartbeat goroutine finishes, Stop proceeds without it; that goroutine
// writes no further heartbeats. Stop is final.
func (l *Launcher) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = false
	l.mu.Unlock()

	l.Quiet(ctx)
	l.logger.Info("worker process stopping", slog.String("process_id", l.pid.String()))
	close(l.stopCh)

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		l.logger.Warn("heartbeat did not stop in time")
	}

	// Waits for an in-flight heartbeat write, then blocks new ones.
	l.beatMu.Lock()
	l.stopped = true
	l.beatMu.Unlock()

	l.fire(ctx, Shutdown)
	// The keys are removed even when ctx has already ended.
	err := l.clearHeartbeat(context.WithoutCancel(ctx))
	l.fire(ctx, Exit)
	return err
}

// Beat writes one heartbeat, then fires Heartbeat (first beat only) and
// Beat. A failed write is reported to the error handlers and returned; no
// events fire for it. After Stop, Beat writes nothing and returns
// ErrLauncherStopped.
func (l *Launcher) Beat(ctx context.Context) error {
	if err := l.writeBeat(ctx); err != nil {
		return err
	}
	if l.firstBeat.CompareAndSwap(false, true) {
		l.fire(ctx, Heartbeat)
	}
	l.fire(ctx, Beat)
	l.beats.Add(1)
	return nil
}

func (l *Launcher) writeBeat(ctx context.Context) error {
	l.beatMu.RLock()
	defer l.beatMu.RUnlock()
	if l.stopped {
		return ErrLauncherStopped
	}

	payload, err := l.rt.Codec().Marshal(l.Info())
	if err != nil {
		return fmt.Errorf("keel/worker: encode process info: %w", err)
	}
	key := ProcessKey(l.pid)
	now := time.Now().UTC()

	err = l.rt.Redis(ctx, func(c *redisconn.Conn) error {
		if err := c.SAdd(ctx, ProcessesKey, key).Err(); err != nil {
			return err
		}
		if err := c.HSet(ctx, key,
			"info", string(payload),
			"beat", strconv.FormatInt(now.Unix(), 10),
			"quiet", strconv.FormatBool(l.quiet.Load()),
		).Err(); err != nil {
			return err
		}
		return c.Expire(ctx, key, l.ttl).Err()
	})
	if err != nil {
		l.rt.HandleException(ctx, err, map[string]any{"context": "heartbeat", "process_id": l.pid.String()})
		return err
	}
	return nil
}

func (l *Launcher) isStopped() bool {
	l.beatMu.RLock()
	defer l.beatMu.RUnlock()
	return l.stopped
}

func (l *Launcher) heartbeatLoop() {
	defer l.wg.Done()

	ctx := context.Background()
	_ = l.Beat(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			_ = l.Beat(ctx)
		}
	}
}

func (l *Launcher) clearHeartbeat(ctx context.Context) error {
	key := ProcessKey(l.pid)
	err := l.rt.Redis(ctx, func(c *redisconn.Conn) error {
		if err := c.SRem(ctx, ProcessesKey, key).Err(); err != nil {
			return err
		}
		return c.Del(ctx, key).Err()
	})
	if err != nil {
		l.rt.HandleException(ctx, err, map[string]any{"context": "clear heartbeat", "process_id": l.pid.String()})
	}
	return err
}

// fire runs the hooks for event and routes a hook failure to the error
// handlers.
func (l *Launcher) fire(ctx context.Context, event Event) {
	if err := l.rt.Fire(ctx, event); err != nil {
		l.rt.HandleException(ctx, err, map[string]any{"event": event.String()})
	}
}
