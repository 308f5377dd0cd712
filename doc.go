// Package keel is the runtime core of a Redis-backed background job
// framework: the process-wide configuration object, its pooled and
// failover-aware Redis connection, the lifecycle hook registry, and the
// error handler chain.
//
// # Quick Start
//
//	cfg, err := keel.New(
//	    keel.WithConcurrency(10),
//	    keel.WithQueues([]string{"critical", "default"}),
//	    keel.WithRedisOptions(redisconn.Options{URL: "redis://localhost:6379/0"}),
//	)
//	if err != nil { ... }
//	defer cfg.Close()
//
//	cfg.On(worker.Startup, func(ctx context.Context) error { ... })
//	cfg.ErrorHandlers().Append(reportToTracker)
//
//	err = cfg.Redis(ctx, func(c *redisconn.Conn) error {
//	    return c.LPush(ctx, "queue:default", payload).Err()
//	})
//
// # Architecture
//
// A [Config] is created once at process start and passed by reference to
// every component that needs it. Its accessors are safe for concurrent use.
// Redis access is scoped: [Config.Redis] and [WithRedis] lease a connection
// for the duration of one callback and reconnect once, transparently, when
// the server reports a failover (see package redisconn). Errors observed by
// the runtime are routed through [Config.HandleException], which isolates
// every registered handler from the others.
package keel
