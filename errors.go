package goalloop

import (
	"errors"
	"fmt"
)

// Sentinel errors for collaborator failures. Provider implementations wrap
// these with %w so the controller can classify failures with errors.Is.
var (
	// ErrPlannerUnavailable indicates the external planner call failed.
	ErrPlannerUnavailable = errors.New("planner unavailable")

	// ErrReflectorUnavailable indicates the external reflector call failed.
	ErrReflectorUnavailable = errors.New("reflector unavailable")

	// ErrSessionNotFound is returned by MemoryStore.Load and the controller
	// status surface for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
)

// ErrorKind classifies a terminal error for callers.
type ErrorKind string

const (
	KindBudgetExceeded       ErrorKind = "budget_exceeded"
	KindActionFailure        ErrorKind = "action_failure"
	KindCompletionRejected   ErrorKind = "completion_rejected"
	KindPlannerUnavailable   ErrorKind = "planner_unavailable"
	KindReflectorUnavailable ErrorKind = "reflector_unavailable"
	KindPersistenceFailure   ErrorKind = "persistence_failure"
	KindCallerAbort          ErrorKind = "caller_abort"
)

// TerminalError is the structured error descriptor surfaced when a session
// ends in Failed, TimedOut, or Aborted. It carries enough context (the last
// plan state and remaining issues) for the caller to resume or diagnose.
type TerminalError struct {
	Kind            ErrorKind     `json:"kind"`
	Message         string        `json:"message"`
	PartialPlan     []SubtaskSpec `json:"partial_plan,omitempty"`
	RemainingIssues []string      `json:"remaining_issues,omitempty"`
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}
