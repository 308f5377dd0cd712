package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/xraph/keel/worker"
)

var (
	// ErrInvalidEvent is returned when registering against an event that is
	// not part of the worker event vocabulary.
	ErrInvalidEvent = errors.New("keel/lifecycle: invalid event name")

	// ErrNilHook is returned when registering a nil hook.
	ErrNilHook = errors.New("keel/lifecycle: hook is required")
)

// Hook is a lifecycle callback.
type Hook func(ctx context.Context) error

// Registry maps lifecycle events to their ordered hooks. It is safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	hooks map[worker.Event][]Hook
}

// NewRegistry creates an empty registry with a slot for every event.
func NewRegistry() *Registry {
	r := &Registry{hooks: make(map[worker.Event][]Hook)}
	for _, e := range worker.Events() {
		r.hooks[e] = nil
	}
	return r
}

// On appends hook to the hooks for event.
func (r *Registry) On(event worker.Event, hook Hook) error {
	if !event.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, event)
	}
	if hook == nil {
		return ErrNilHook
	}

	r.mu.Lock()
	r.hooks[event] = append(r.hooks[event], hook)
	r.mu.Unlock()
	return nil
}

// Hooks returns a snapshot of the hooks registered for event, in
// registration order.
func (r *Registry) Hooks(event worker.Event) []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.hooks[event])
}

// Clear removes every hook registered for event.
func (r *Registry) Clear(event worker.Event) {
	r.mu.Lock()
	if _, ok := r.hooks[event]; ok {
		r.hooks[event] = nil
	}
	r.mu.Unlock()
}

// Fire runs the hooks for event in registration order, each to completion
// before the next. It stops at and returns the first hook error. Hooks
// registered while Fire is running take effect on the next Fire.
func (r *Registry) Fire(ctx context.Context, event worker.Event) error {
	if !event.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, event)
	}
	for i, h := range r.Hooks(event) {
		if err := h(ctx); err != nil {
			return fmt.Errorf("keel/lifecycle: %v hook %d: %w", event, i, err)
		}
	}
	return nil
}
