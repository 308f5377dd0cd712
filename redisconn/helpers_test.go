package redisconn_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/keel/redisconn"
)

// fakeClient stands in for one server connection. Only the commands the
// tests use are implemented; anything else panics on the nil Cmdable.
type fakeClient struct {
	redis.Cmdable

	server *fakeServer
	closed atomic.Bool
}

func (f *fakeClient) Info(_ context.Context, _ ...string) *redis.StringCmd {
	return redis.NewStringResult(f.server.info(), nil)
}

func (f *fakeClient) Close() error {
	f.closed.Store(true)
	return nil
}

// fakeServer counts connections the way INFO total_connections_received does.
type fakeServer struct {
	mu       sync.Mutex
	received int
	clients  []*fakeClient
	dialErr  error
}

func (s *fakeServer) dial(_ context.Context) (redisconn.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dialErr != nil {
		return nil, s.dialErr
	}
	s.received++
	c := &fakeClient{server: s}
	s.clients = append(s.clients, c)
	return c, nil
}

func (s *fakeServer) info() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("# Server\r\nredis_version:7.2.4\r\n\r\n# Stats\r\ntotal_connections_received:%d\r\n", s.received)
}

func (s *fakeServer) dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

func (s *fakeServer) client(i int) *fakeClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients[i]
}

func newTestPool(t *testing.T, opts redisconn.Options) (*redisconn.Pool, *fakeServer, *bytes.Buffer) {
	t.Helper()
	srv := &fakeServer{}
	buf := &bytes.Buffer{}
	opts.Dialer = srv.dial
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(buf, nil))
	}
	p, err := redisconn.NewPool(opts)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p, srv, buf
}
