package hooks

import (
	"context"

	"github.com/driftlabs/goalloop"
)

// Registry manages a collection of hooks and dispatches controller events to
// them. Hooks can implement any combination of the hook interfaces defined in
// the goalloop package; they only receive events for the interfaces they
// implement.
//
// Registry is NOT thread-safe. Register all hooks before submitting goals.
// Fire methods are called by the controller on the session goroutine.
type Registry struct {
	hooks []any
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		hooks: make([]any, 0),
	}
}

// Register adds a hook to the registry. Hooks are called in the order they
// are registered.
func (r *Registry) Register(hook any) *Registry {
	r.hooks = append(r.hooks, hook)
	return r
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	return len(r.hooks)
}

// Clear removes all registered hooks.
func (r *Registry) Clear() {
	r.hooks = make([]any, 0)
}

// FireBeforeIteration dispatches a BeforeIterationEvent to all registered
// BeforeIterationHook implementations.
func (r *Registry) FireBeforeIteration(
	ctx context.Context,
	session *goalloop.ExecutionSession,
	event goalloop.BeforeIterationEvent,
) {
	if r == nil {
		return
	}
	for _, h := range r.hooks {
		if hook, ok := h.(goalloop.BeforeIterationHook); ok {
			hook.OnBeforeIteration(ctx, session, event)
		}
	}
}

// FireAfterIteration dispatches an AfterIterationEvent to all registered
// AfterIterationHook implementations.
func (r *Registry) FireAfterIteration(
	ctx context.Context,
	session *goalloop.ExecutionSession,
	event goalloop.AfterIterationEvent,
) {
	if r == nil {
		return
	}
	for _, h := range r.hooks {
		if hook, ok := h.(goalloop.AfterIterationHook); ok {
			hook.OnAfterIteration(ctx, session, event)
		}
	}
}

// FireStateTransition dispatches a StateTransitionEvent to all registered
// StateTransitionHook implementations.
func (r *Registry) FireStateTransition(
	ctx context.Context,
	session *goalloop.ExecutionSession,
	event goalloop.StateTransitionEvent,
) {
	if r == nil {
		return
	}
	for _, h := range r.hooks {
		if hook, ok := h.(goalloop.StateTransitionHook); ok {
			hook.OnStateTransition(ctx, session, event)
		}
	}
}

// FireCompletionRejected dispatches a CompletionRejectedEvent to all
// registered CompletionRejectedHook implementations.
func (r *Registry) FireCompletionRejected(
	ctx context.Context,
	session *goalloop.ExecutionSession,
	event goalloop.CompletionRejectedEvent,
) {
	if r == nil {
		return
	}
	for _, h := range r.hooks {
		if hook, ok := h.(goalloop.CompletionRejectedHook); ok {
			hook.OnCompletionRejected(ctx, session, event)
		}
	}
}

// FireError dispatches an ErrorEvent to all registered ErrorHook
// implementations. Informational only; errors from hooks are not propagated.
func (r *Registry) FireError(
	ctx context.Context,
	session *goalloop.ExecutionSession,
	event goalloop.ErrorEvent,
) {
	if r == nil {
		return
	}
	for _, h := range r.hooks {
		if hook, ok := h.(goalloop.ErrorHook); ok {
			hook.OnError(ctx, session, event)
		}
	}
}
