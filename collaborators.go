package goalloop

import "context"

// Planner decomposes a goal into an ordered plan of subtasks. The history is
// supplied on replanning so the planner can account for what already
// happened, including rejected completion claims.
//
// Planner unavailability is fatal to the session; implementations should wrap
// failures with [ErrPlannerUnavailable].
type Planner interface {
	Decompose(ctx context.Context, goal Goal, history []IterationRecord) (Plan, error)
}

// Reflector produces a structured self-assessment from the full session
// history.
//
// Reflector unavailability is fatal to the session; implementations should
// wrap failures with [ErrReflectorUnavailable].
type Reflector interface {
	Reflect(ctx context.Context, history []IterationRecord) (ReflectionResult, error)
}

// CapabilityExecutor executes a single action. Ordinary failures must be
// encoded in Observation.Success=false rather than returned as errors; an
// error return is reserved for cancellation and infrastructure faults. The
// controller treats a non-cancellation error as a failed observation.
type CapabilityExecutor interface {
	Execute(ctx context.Context, action Action) (Observation, error)
}

// MemoryStore persists session state keyed by session id. Implementations
// must support concurrent reads and writes of distinct sessions; the
// controller imposes no cross-session locking.
//
// Save is called on every state transition; a failure is fatal to the
// session and must never silently drop history. Load returns
// [ErrSessionNotFound] for unknown ids.
type MemoryStore interface {
	Load(ctx context.Context, sessionID string) (*ExecutionSession, error)
	Save(ctx context.Context, session *ExecutionSession) error
}
