package keel

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
)

// ErrorHandler receives an error observed by the runtime together with a
// context map (job payload, event name, and so on). A returned error or a
// panic is logged; neither reaches the caller of HandleException.
type ErrorHandler func(ctx context.Context, err error, info map[string]any) error

// HandlerChain is an ordered, concurrency-safe list of error handlers.
type HandlerChain struct {
	mu       sync.RWMutex
	handlers []ErrorHandler
	logger   *slog.Logger
}

// NewHandlerChain returns a chain holding handlers in order. Nil handlers
// are skipped.
func NewHandlerChain(logger *slog.Logger, handlers ...ErrorHandler) *HandlerChain {
	if logger == nil {
		logger = slog.Default()
	}
	h := &HandlerChain{logger: logger}
	for _, fn := range handlers {
		h.Append(fn)
	}
	return h
}

// Append adds fn to the end of the chain.
func (h *HandlerChain) Append(fn ErrorHandler) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.handlers = append(h.handlers, fn)
	h.mu.Unlock()
}

// Pop removes and returns the last handler.
func (h *HandlerChain) Pop() (ErrorHandler, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.handlers)
	if n == 0 {
		return nil, false
	}
	fn := h.handlers[n-1]
	h.handlers[n-1] = nil
	h.handlers = h.handlers[:n-1]
	return fn, true
}

// Len returns the number of handlers.
func (h *HandlerChain) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}

// Handlers returns a snapshot of the chain.
func (h *HandlerChain) Handlers() []ErrorHandler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.handlers)
}

// HandleException calls every handler, in order, with err and info. Each
// handler runs behind its own recover boundary; a failing handler is
// logged at ERROR and the next one still runs. The chain is snapshotted
// first, so handlers may modify it while running. A nil err is ignored:
// no handler runs and nothing is logged.
func (h *HandlerChain) HandleException(ctx context.Context, err error, info map[string]any) {
	if err == nil {
		return
	}
	handlers := h.Handlers()
	if len(handlers) == 0 {
		h.logger.ErrorContext(ctx, "error raised with no error handlers",
			slog.String("error", err.Error()),
		)
		return
	}
	for i, fn := range handlers {
		if herr := h.call(ctx, fn, err, info); herr != nil {
			h.logger.ErrorContext(ctx, "error handler failed",
				slog.Int("handler", i),
				slog.String("error", herr.Error()),
				slog.String("original_error", err.Error()),
			)
		}
	}
}

func (h *HandlerChain) call(ctx context.Context, fn ErrorHandler, err error, info map[string]any) (herr error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.DebugContext(ctx, "error handler panic stack",
				slog.String("stack", string(debug.Stack())),
			)
			herr = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, err, info)
}

// LogErrorHandler returns the default handler, which logs the error and
// its context map at WARN.
func LogErrorHandler(logger *slog.Logger) ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, err error, info map[string]any) error {
		attrs := []any{slog.String("error", err.Error())}
		if len(info) > 0 {
			attrs = append(attrs, slog.Any("context", info))
		}
		logger.WarnContext(ctx, "job error", attrs...)
		return nil
	}
}
