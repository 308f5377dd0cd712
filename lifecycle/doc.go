// Package lifecycle holds the callbacks registered for worker lifecycle
// events.
//
// Hooks are registered against a [worker.Event] and fire strictly in
// registration order:
//
//	reg := lifecycle.NewRegistry()
//	err := reg.On(worker.Startup, func(ctx context.Context) error {
//	    return warmCaches(ctx)
//	})
//
// [Registry.Fire] runs the hooks for one event synchronously. Unlike the
// error handler chain, it does not isolate failures: the first hook error
// (or panic) stops the run and reaches the caller, which decides whether
// the process can continue.
package lifecycle
