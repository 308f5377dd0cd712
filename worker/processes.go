package worker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/keel/id"
	"github.com/xraph/keel/redisconn"
)

// ParseProcessKey extracts the process ID from a key built by ProcessKey.
func ParseProcessKey(key string) (id.ProcessID, error) {
	raw, ok := strings.CutPrefix(key, processKeyPrefix)
	if !ok {
		return id.Nil, fmt.Errorf("keel/worker: %q is not a process key", key)
	}
	return id.ParseProcessID(raw)
}

// ListProcesses returns the processes whose heartbeat is still live, oldest
// first. Members of the process set whose hash has expired, or whose key
// does not parse, are skipped.
func ListProcesses(ctx context.Context, rt Runtime) ([]ProcessInfo, error) {
	var out []ProcessInfo
	err := rt.Redis(ctx, func(c *redisconn.Conn) error {
		out = out[:0]
		keys, err := c.SMembers(ctx, ProcessesKey).Result()
		if err != nil {
			return err
		}
		for _, key := range keys {
			if _, err := ParseProcessKey(key); err != nil {
				continue
			}
			raw, err := c.HGet(ctx, key, "info").Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return err
			}
			var info ProcessInfo
			if err := rt.Codec().Unmarshal([]byte(raw), &info); err != nil {
				return fmt.Errorf("keel/worker: decode %s: %w", key, err)
			}
			out = append(out, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b ProcessInfo) int { return a.StartedAt.Compare(b.StartedAt) })
	return out, nil
}
