// Package redisconn provides scoped, pooled access to Redis that recovers
// from server-side failover.
//
// A [Pool] leases one [Conn] at a time to a callback:
//
//	pool, err := redisconn.NewPool(redisconn.Options{URL: "redis://localhost:6379/0"})
//	if err != nil { ... }
//	defer pool.Close()
//
//	n, err := redisconn.WithConnection(ctx, pool, func(c *redisconn.Conn) (int64, error) {
//	    return c.LPush(ctx, "queue:default", payload).Result()
//	})
//
// When the callback fails with a failover signal (the node became a
// read-only replica, or a blocking call was force-unblocked because the
// instance changed role) the leased connection is discarded and the callback
// runs exactly once more on a freshly dialed connection. Every other error is
// returned unchanged and never retried. See [Classify] for the decision
// table.
//
// The leased connection is returned to the pool on every exit path.
package redisconn
