package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/keel/codec"
	"github.com/xraph/keel/redisconn"
	"github.com/xraph/keel/worker"
)

// memStore is a shared in-memory keyspace behind every memClient.
type memStore struct {
	mu      sync.Mutex
	sets    map[string]map[string]bool
	hashes  map[string]map[string]string
	ttls    map[string]time.Duration
	failErr error
}

func newMemStore() *memStore {
	return &memStore{
		sets:   map[string]map[string]bool{},
		hashes: map[string]map[string]string{},
		ttls:   map[string]time.Duration{},
	}
}

func (s *memStore) setFail(err error) {
	s.mu.Lock()
	s.failErr = err
	s.mu.Unlock()
}

func (s *memStore) members(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for m := range s.sets[key] {
		out = append(out, m)
	}
	return out
}

func (s *memStore) hash(key string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]string{}
	for k, v := range s.hashes[key] {
		out[k] = v
	}
	return out
}

func (s *memStore) ttl(key string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttls[key]
}

type memClient struct {
	redis.Cmdable
	store *memStore
}

func (c *memClient) SAdd(_ context.Context, key string, members ...any) *redis.IntCmd {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return redis.NewIntResult(0, s.failErr)
	}
	if s.sets[key] == nil {
		s.sets[key] = map[string]bool{}
	}
	for _, m := range members {
		s.sets[key][fmt.Sprint(m)] = true
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (c *memClient) SRem(_ context.Context, key string, members ...any) *redis.IntCmd {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return redis.NewIntResult(0, s.failErr)
	}
	for _, m := range members {
		delete(s.sets[key], fmt.Sprint(m))
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (c *memClient) HSet(_ context.Context, key string, values ...any) *redis.IntCmd {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return redis.NewIntResult(0, s.failErr)
	}
	if s.hashes[key] == nil {
		s.hashes[key] = map[string]string{}
	}
	for i := 0; i+1 < len(values); i += 2 {
		s.hashes[key][fmt.Sprint(values[i])] = fmt.Sprint(values[i+1])
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (c *memClient) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (c *memClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.hashes, k)
		delete(s.ttls, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (c *memClient) SMembers(_ context.Context, key string) *redis.StringSliceCmd {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for m := range s.sets[key] {
		out = append(out, m)
	}
	return redis.NewStringSliceResult(out, nil)
}

func (c *memClient) HGet(_ context.Context, key, field string) *redis.StringCmd {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.hashes[key][field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (c *memClient) Close() error { return nil }

type fakeRuntime struct {
	pool  *redisconn.Pool
	store *memStore

	mu      sync.Mutex
	events  []worker.Event
	hookErr map[worker.Event]error
	handled []map[string]any
}

func newFakeRuntime(t *testing.T) *fakeRuntime {
	t.Helper()
	store := newMemStore()
	pool, err := redisconn.NewPool(redisconn.Options{
		Size: 2,
		Dialer: func(context.Context) (redisconn.Client, error) {
			return &memClient{store: store}, nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return &fakeRuntime{pool: pool, store: store, hookErr: map[worker.Event]error{}}
}

func (r *fakeRuntime) Concurrency() int   { return 4 }
func (r *fakeRuntime) Queues() []string   { return []string{"critical", "default"} }
func (r *fakeRuntime) Codec() codec.Codec { return codec.JSON{} }

func (r *fakeRuntime) Fire(_ context.Context, e worker.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.hookErr[e]
}

func (r *fakeRuntime) HandleException(_ context.Context, err error, info map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := map[string]any{"error": err.Error()}
	for k, v := range info {
		entry[k] = v
	}
	r.handled = append(r.handled, entry)
}

func (r *fakeRuntime) Redis(ctx context.Context, fn func(*redisconn.Conn) error) error {
	return r.pool.Do(ctx, fn)
}

func (r *fakeRuntime) fired() []worker.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]worker.Event(nil), r.events...)
}

func (r *fakeRuntime) exceptions() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]any(nil), r.handled...)
}

func newLauncher(rt *fakeRuntime) *worker.Launcher {
	return worker.NewLauncher(rt,
		worker.WithHeartbeatInterval(time.Hour),
		worker.WithHeartbeatTTL(2*time.Hour),
		worker.WithHostname("box-1"),
	)
}

func TestLauncher_StartStopEventOrder(t *testing.T) {
	rt := newFakeRuntime(t)
	l := newLauncher(rt)
	ctx := context.Background()

	require.NoError(t, l.Start(ctx))
	require.Eventually(t, func() bool { return l.Beats() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, l.Stop(ctx))

	assert.Equal(t, []worker.Event{
		worker.Startup,
		worker.Heartbeat,
		worker.Beat,
		worker.Quiet,
		worker.Shutdown,
		worker.Exit,
	}, rt.fired())
	assert.Empty(t, rt.exceptions())
}

func TestLauncher_StartAndStopAreIdempotent(t *testing.T) {
	rt := newFakeRuntime(t)
	l := newLauncher(rt)
	ctx := context.Background()

	require.NoError(t, l.Stop(ctx), "stop before start is a no-op")
	require.NoError(t, l.Start(ctx))
	require.NoError(t, l.Start(ctx))
	require.Eventually(t, func() bool { return l.Beats() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, l.Stop(ctx))
	require.NoError(t, l.Stop(ctx))

	var startups int
	for _, e := range rt.fired() {
		if e == worker.Startup {
			startups++
		}
	}
	assert.Equal(t, 1, startups)
}

func TestLauncher_HeartbeatFiresOnce(t *testing.T) {
	rt := newFakeRuntime(t)
	l := newLauncher(rt)
	ctx := context.Background()

	for range 3 {
		require.NoError(t, l.Beat(ctx))
	}
	assert.Equal(t, []worker.Event{worker.Heartbeat, worker.Beat, worker.Beat, worker.Beat}, rt.fired())
	assert.EqualValues(t, 3, l.Beats())
}

func TestLauncher_BeatWritesProcessKeys(t *testing.T) {
	rt := newFakeRuntime(t)
	l := newLauncher(rt)

	require.NoError(t, l.Beat(context.Background()))

	key := worker.ProcessKey(l.ID())
	assert.Equal(t, []string{key}, rt.store.members(worker.ProcessesKey))
	assert.Equal(t, 2*time.Hour, rt.store.ttl(key))

	h := rt.store.hash(key)
	assert.Equal(t, "false", h["quiet"])
	assert.NotEmpty(t, h["beat"])

	var info worker.ProcessInfo
	require.NoError(t, codec.JSON{}.Unmarshal([]byte(h["info"]), &info))
	assert.Equal(t, l.ID().String(), info.Identity.String())
	assert.Equal(t, "box-1", info.Hostname)
	assert.Equal(t, 4, info.Concurrency)
	assert.Equal(t, []string{"critical", "default"}, info.Queues)
	assert.Positive(t, info.PID)
}

func TestLauncher_QuietIsReportedAndFiresOnce(t *testing.T) {
	rt := newFakeRuntime(t)
	l := newLauncher(rt)
	ctx := context.Background()

	l.Quiet(ctx)
	l.Quiet(ctx)
	require.NoError(t, l.Beat(ctx))

	assert.Equal(t, "true", rt.store.hash(worker.ProcessKey(l.ID()))["quiet"])
	assert.Equal(t, []worker.Event{worker.Quiet, worker.Heartbeat, worker.Beat}, rt.fired())
}

func TestLauncher_StopClearsProcessKeys(t *testing.T) {
	rt := newFakeRuntime(t)
	l := newLauncher(rt)
	ctx := context.Background()

	require.NoError(t, l.Start(ctx))
	require.Eventually(t, func() bool { return l.Beats() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, l.Stop(ctx))

	assert.Empty(t, rt.store.members(worker.ProcessesKey))
	assert.Empty(t, rt.store.hash(worker.ProcessKey(l.ID())))
}

func TestLauncher_BeatFailureIsHandled(t *testing.T) {
	rt := newFakeRuntime(t)
	l := newLauncher(rt)
	boom := errors.New("connection refused")
	rt.store.setFail(boom)

	err := l.Beat(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, rt.fired(), "no events for a failed beat")
	assert.Zero(t, l.Beats())

	handled := rt.exceptions()
	require.Len(t, handled, 1)
	assert.Equal(t, "heartbeat", handled[0]["context"])
	assert.Equal(t, l.ID().String(), handled[0]["process_id"])
}

func TestLauncher_HookErrorsAreHandled(t *testing.T) {
	rt := newFakeRuntime(t)
	rt.hookErr[worker.Startup] = errors.New("startup hook failed")
	rt.hookErr[worker.Exit] = errors.New("exit hook failed")
	l := newLauncher(rt)
	ctx := context.Background()

	require.NoError(t, l.Start(ctx))
	require.Eventually(t, func() bool { return l.Beats() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, l.Stop(ctx), "hook failures do not fail Stop")

	handled := rt.exceptions()
	require.Len(t, handled, 2)
	assert.Equal(t, "startup", handled[0]["event"])
	assert.Equal(t, "exit", handled[1]["event"])
	assert.Contains(t, rt.fired(), worker.Shutdown, "later events still fire")
}

func TestLauncher_UniqueIDs(t *testing.T) {
	rt := newFakeRuntime(t)
	a, b := newLauncher(rt), newLauncher(rt)
	assert.NotEqual(t, a.ID().String(), b.ID().String())
	assert.Equal(t, "keel:proc:"+a.ID().String(), worker.ProcessKey(a.ID()))
}

func TestLauncher_RestartAfterStopIsRejected(t *testing.T) {
	rt := newFakeRuntime(t)
	l := newLauncher(rt)
	ctx := context.Background()

	require.NoError(t, l.Start(ctx))
	require.Eventually(t, func() bool { return l.Beats() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, l.Stop(ctx))

	assert.ErrorIs(t, l.Start(ctx), worker.ErrLauncherStopped)
	assert.NotPanics(t, func() { require.NoError(t, l.Stop(ctx)) })

	var startups int
	for _, e := range rt.fired() {
		if e == worker.Startup {
			startups++
		}
	}
	assert.Equal(t, 1, startups)
}

func TestLauncher_NoBeatAfterStop(t *testing.T) {
	rt := newFakeRuntime(t)
	l := newLauncher(rt)
	ctx := context.Background()

	require.NoError(t, l.Start(ctx))
	require.Eventually(t, func() bool { return l.Beats() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, l.Stop(ctx))
	before := rt.fired()

	assert.ErrorIs(t, l.Beat(ctx), worker.ErrLauncherStopped)
	assert.Empty(t, rt.store.members(worker.ProcessesKey))
	assert.Empty(t, rt.store.hash(worker.ProcessKey(l.ID())))
	assert.Equal(t, before, rt.fired(), "no events after stop")
	assert.Empty(t, rt.exceptions())
}

func TestLauncher_StopWithExpiredContextLeavesNoKeys(t *testing.T) {
	rt := newFakeRuntime(t)
	l := newLauncher(rt)

	require.NoError(t, l.Start(context.Background()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = l.Stop(ctx)

	// A heartbeat goroutine that outlived Stop must not resurrect the keys.
	require.Eventually(t, func() bool {
		return len(rt.store.members(worker.ProcessesKey)) == 0
	}, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, l.Beat(context.Background()), worker.ErrLauncherStopped)
}

func TestListProcesses(t *testing.T) {
	rt := newFakeRuntime(t)
	a, b := newLauncher(rt), newLauncher(rt)
	ctx := context.Background()

	require.NoError(t, a.Beat(ctx))
	require.NoError(t, b.Beat(ctx))

	// Expired hash and a foreign member are skipped.
	expired := newLauncher(rt)
	require.NoError(t, expired.Beat(ctx))
	rt.store.mu.Lock()
	delete(rt.store.hashes, worker.ProcessKey(expired.ID()))
	rt.store.sets[worker.ProcessesKey]["not-a-process"] = true
	rt.store.mu.Unlock()

	procs, err := worker.ListProcesses(ctx, rt)
	require.NoError(t, err)
	require.Len(t, procs, 2)

	ids := []string{procs[0].Identity.String(), procs[1].Identity.String()}
	assert.ElementsMatch(t, []string{a.ID().String(), b.ID().String()}, ids)
	assert.Equal(t, "box-1", procs[0].Hostname)
}

func TestParseProcessKey(t *testing.T) {
	l := newLauncher(newFakeRuntime(t))

	got, err := worker.ParseProcessKey(worker.ProcessKey(l.ID()))
	require.NoError(t, err)
	assert.Equal(t, l.ID().String(), got.String())

	_, err = worker.ParseProcessKey("keel:other:x")
	assert.Error(t, err)
	_, err = worker.ParseProcessKey("keel:proc:conn_01h2xcejqtf2nbrexx3vqjhp41")
	assert.Error(t, err, "wrong id prefix")
}
