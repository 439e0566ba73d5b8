package goalloop

import (
	"fmt"
	"time"
)

// SessionState is the state of an ExecutionSession in the loop state machine.
type SessionState string

const (
	StatePlanning   SessionState = "planning"
	StateExecuting  SessionState = "executing"
	StateReflecting SessionState = "reflecting"
	StateCompleted  SessionState = "completed"
	StateFailed     SessionState = "failed"
	StateTimedOut   SessionState = "timed_out"
	StateAborted    SessionState = "aborted"
)

// Terminal reports whether the state is terminal. Terminal states are
// one-way: once entered, no further ticks occur for the session.
func (s SessionState) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateTimedOut, StateAborted:
		return true
	}
	return false
}

// validTransitions enumerates the non-terminal edges of the state machine.
// Any state may additionally transition to any terminal state.
var validTransitions = map[SessionState][]SessionState{
	StatePlanning:   {StateExecuting},
	StateExecuting:  {StatePlanning, StateReflecting, StateExecuting},
	StateReflecting: {StateExecuting, StatePlanning},
}

// CanTransition reports whether from -> to is a legal state machine edge.
func CanTransition(from, to SessionState) bool {
	if from.Terminal() {
		return false
	}
	if to.Terminal() {
		return true
	}
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SubtaskStatus is the lifecycle status of a SubtaskSpec.
type SubtaskStatus string

const (
	SubtaskPending    SubtaskStatus = "pending"
	SubtaskInProgress SubtaskStatus = "in_progress"
	SubtaskDone       SubtaskStatus = "done"
	SubtaskFailed     SubtaskStatus = "failed"

	// SubtaskSuperseded marks an entry replaced by a newer plan. Superseded
	// entries are never removed; the full plan history is preserved for
	// audit.
	SubtaskSuperseded SubtaskStatus = "superseded"
)

// SubtaskSpec is one ordered step of a plan. Owned exclusively by the
// TaskLedger once planned.
type SubtaskSpec struct {
	ID          string        `json:"id"`
	Description string        `json:"description"`
	Status      SubtaskStatus `json:"status"`

	// Capability optionally names the capability the planner wants invoked
	// for this subtask. When empty the controller dispatches a generic
	// subtask call carrying the description.
	Capability string `json:"capability,omitempty"`

	// Params are the capability parameters chosen by the planner.
	Params map[string]any `json:"params,omitempty"`
}

// Plan is an ordered list of subtasks believed to accomplish the goal.
type Plan []SubtaskSpec

// ProgressLevel is the reflector's coarse progress assessment.
type ProgressLevel string

const (
	ProgressNotStarted   ProgressLevel = "not_started"
	ProgressInProgress   ProgressLevel = "in_progress"
	ProgressNearComplete ProgressLevel = "near_complete"
	ProgressComplete     ProgressLevel = "complete"
)

// ReflectionResult is the structured self-assessment produced by the
// Reflector after one or more actions.
type ReflectionResult struct {
	Progress   ProgressLevel `json:"progress"`
	Confidence float64       `json:"confidence"`
	Insights   []string      `json:"insights,omitempty"`
	Challenges []string      `json:"challenges,omitempty"`
}

// CompletionSignal is the payload of a completion claim. It is a
// distinguished action variant, not a string sentinel; see Action.
type CompletionSignal struct {
	Summary         string   `json:"summary"`
	ResultContent   string   `json:"result_content"`
	Confidence      float64  `json:"confidence"`
	TasksCompleted  []string `json:"tasks_completed,omitempty"`
	RemainingIssues []string `json:"remaining_issues,omitempty"`
}

// IterationRecord is one appended entry of a session's execution history.
// Index is strictly monotonic starting at 1.
type IterationRecord struct {
	Index       int               `json:"index"`
	Action      Action            `json:"action"`
	Observation Observation       `json:"observation"`
	Reflection  *ReflectionResult `json:"reflection,omitempty"`
	Confidence  *float64          `json:"confidence,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// ExecutionSession is the complete state of one goal's execution from
// submission to terminal state. It is owned by the controller and persisted
// through the MemoryStore; once a terminal state is reached the final record
// remains queryable.
type ExecutionSession struct {
	ID    string       `json:"id"`
	Goal  Goal         `json:"goal"`
	State SessionState `json:"state"`

	// Plan is the full audit trail of subtasks, including superseded entries
	// from earlier plans.
	Plan []SubtaskSpec `json:"plan"`

	// History is the append-only iteration record.
	History []IterationRecord `json:"history"`

	// Iterations is the number of iterations consumed from the budget.
	Iterations int       `json:"iterations"`
	StartedAt  time.Time `json:"started_at"`

	// StuckAdjustment is the confidence-threshold reduction currently in
	// force for this session (zero when not stuck). Scoped strictly to the
	// session so concurrent sessions never interfere.
	StuckAdjustment float64 `json:"stuck_adjustment"`

	Config Config `json:"config"`
}

// AppendRecord appends an iteration record, enforcing the monotonic index
// invariant history[i].Index == i+1.
func (s *ExecutionSession) AppendRecord(rec IterationRecord) error {
	want := len(s.History) + 1
	if rec.Index != want {
		return fmt.Errorf("iteration index %d out of order, want %d", rec.Index, want)
	}
	s.History = append(s.History, rec)
	return nil
}

// LastReflection returns the most recent reflection in the history, or nil.
func (s *ExecutionSession) LastReflection() *ReflectionResult {
	for i := len(s.History) - 1; i >= 0; i-- {
		if r := s.History[i].Reflection; r != nil {
			return r
		}
	}
	return nil
}

// Clone returns a deep copy of the session. Stores clone on save and load so
// callers can never alias the persisted state.
func (s *ExecutionSession) Clone() *ExecutionSession {
	if s == nil {
		return nil
	}
	out := *s
	out.Goal.Metadata = cloneStringMap(s.Goal.Metadata)
	out.Plan = cloneSubtasks(s.Plan)
	out.History = make([]IterationRecord, len(s.History))
	for i, rec := range s.History {
		out.History[i] = cloneRecord(rec)
	}
	return &out
}

func cloneRecord(rec IterationRecord) IterationRecord {
	out := rec
	out.Action = rec.Action.clone()
	out.Observation = rec.Observation.clone()
	if rec.Reflection != nil {
		r := *rec.Reflection
		r.Insights = append([]string(nil), rec.Reflection.Insights...)
		r.Challenges = append([]string(nil), rec.Reflection.Challenges...)
		out.Reflection = &r
	}
	if rec.Confidence != nil {
		c := *rec.Confidence
		out.Confidence = &c
	}
	return out
}

func cloneSubtasks(in []SubtaskSpec) []SubtaskSpec {
	if in == nil {
		return nil
	}
	out := make([]SubtaskSpec, len(in))
	for i, sub := range in {
		out[i] = sub
		out[i].Params = cloneAnyMap(sub.Params)
	}
	return out
}

func cloneSignal(sig *CompletionSignal) *CompletionSignal {
	if sig == nil {
		return nil
	}
	out := *sig
	out.TasksCompleted = append([]string(nil), sig.TasksCompleted...)
	out.RemainingIssues = append([]string(nil), sig.RemainingIssues...)
	return &out
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneAnyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
