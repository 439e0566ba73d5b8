package goalloop

import (
	"context"
	"time"
)

// -----------------------------------------------------------------------------
// Controller Hook Interfaces
// -----------------------------------------------------------------------------
//
// Hooks allow observing the loop at its significant points: iteration
// boundaries, state transitions, completion rejections, and errors. To use
// hooks:
//
//  1. Implement the desired hook interface(s)
//  2. Register with hooks.Registry
//  3. Pass the registry in controller.Deps
//
// A single hook can implement any combination of interfaces; it only receives
// the events for the interfaces it implements. Hooks are called in
// registration order, synchronously on the session goroutine, and must not
// mutate the session they are handed.

// BeforeIterationHook is notified before each action dispatch.
type BeforeIterationHook interface {
	OnBeforeIteration(ctx context.Context, session *ExecutionSession, event BeforeIterationEvent)
}

// AfterIterationHook is notified after each iteration's record is appended
// (and reflected on, when reflection ran).
type AfterIterationHook interface {
	OnAfterIteration(ctx context.Context, session *ExecutionSession, event AfterIterationEvent)
}

// StateTransitionHook is notified on every state machine transition,
// including the transition into a terminal state.
type StateTransitionHook interface {
	OnStateTransition(ctx context.Context, session *ExecutionSession, event StateTransitionEvent)
}

// CompletionRejectedHook is notified when the ReflectionGate rejects a
// completion claim. Rejection is non-fatal; the loop continues.
type CompletionRejectedHook interface {
	OnCompletionRejected(ctx context.Context, session *ExecutionSession, event CompletionRejectedEvent)
}

// ErrorHook is notified of errors, fatal and recoverable alike. The error is
// still handled by the controller; this is informational only.
type ErrorHook interface {
	OnError(ctx context.Context, session *ExecutionSession, event ErrorEvent)
}

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

// BeforeIterationEvent is fired before an action is dispatched.
type BeforeIterationEvent struct {
	SessionID string
	Iteration int
	Subtask   SubtaskSpec
}

// AfterIterationEvent is fired once an iteration's record is final.
type AfterIterationEvent struct {
	SessionID string
	Iteration int
	Record    IterationRecord
	Duration  time.Duration
}

// StateTransitionEvent is fired on every state change.
type StateTransitionEvent struct {
	SessionID string
	From      SessionState
	To        SessionState
	Reason    string
}

// CompletionRejectedEvent is fired when a completion claim fails the gate.
type CompletionRejectedEvent struct {
	SessionID string
	Signal    CompletionSignal
	Decision  GateDecision

	// Kind is always KindCompletionRejected; it is carried so hooks can
	// classify the event alongside ErrorEvent kinds without special-casing.
	Kind ErrorKind
}

// ErrorEvent is fired when an error occurs during a session.
type ErrorEvent struct {
	SessionID string
	Err       error

	// Fatal is true when the error terminates the session.
	Fatal bool
}
