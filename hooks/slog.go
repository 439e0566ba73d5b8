package hooks

import (
	"context"
	"log/slog"

	"github.com/driftlabs/goalloop"
)

// SlogHook logs controller events through a structured slog.Logger. It
// implements every hook interface; register it once to get full loop
// visibility.
type SlogHook struct {
	logger *slog.Logger
}

// NewSlogHook creates a SlogHook. A nil logger falls back to slog.Default().
func NewSlogHook(logger *slog.Logger) *SlogHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogHook{logger: logger}
}

// OnBeforeIteration implements goalloop.BeforeIterationHook.
func (h *SlogHook) OnBeforeIteration(
	ctx context.Context,
	_ *goalloop.ExecutionSession,
	event goalloop.BeforeIterationEvent,
) {
	h.logger.DebugContext(ctx, "iteration starting",
		"session_id", event.SessionID,
		"iteration", event.Iteration,
		"subtask_id", event.Subtask.ID,
		"capability", event.Subtask.Capability,
	)
}

// OnAfterIteration implements goalloop.AfterIterationHook.
func (h *SlogHook) OnAfterIteration(
	ctx context.Context,
	_ *goalloop.ExecutionSession,
	event goalloop.AfterIterationEvent,
) {
	h.logger.InfoContext(ctx, "iteration finished",
		"session_id", event.SessionID,
		"iteration", event.Iteration,
		"success", event.Record.Observation.Success,
		"duration", event.Duration,
	)
}

// OnStateTransition implements goalloop.StateTransitionHook.
func (h *SlogHook) OnStateTransition(
	ctx context.Context,
	_ *goalloop.ExecutionSession,
	event goalloop.StateTransitionEvent,
) {
	h.logger.InfoContext(ctx, "state transition",
		"session_id", event.SessionID,
		"from", event.From,
		"to", event.To,
		"reason", event.Reason,
	)
}

// OnCompletionRejected implements goalloop.CompletionRejectedHook.
func (h *SlogHook) OnCompletionRejected(
	ctx context.Context,
	_ *goalloop.ExecutionSession,
	event goalloop.CompletionRejectedEvent,
) {
	h.logger.WarnContext(ctx, "completion rejected",
		"session_id", event.SessionID,
		"kind", string(event.Kind),
		"confidence", event.Signal.Confidence,
		"effective_threshold", event.Decision.EffectiveThreshold,
		"gap", event.Decision.Gap,
		"reason", event.Decision.Reason,
	)
}

// OnError implements goalloop.ErrorHook.
func (h *SlogHook) OnError(
	ctx context.Context,
	_ *goalloop.ExecutionSession,
	event goalloop.ErrorEvent,
) {
	level := slog.LevelWarn
	if event.Fatal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, "session error",
		"session_id", event.SessionID,
		"error", event.Err,
		"fatal", event.Fatal,
	)
}

var (
	_ goalloop.BeforeIterationHook    = (*SlogHook)(nil)
	_ goalloop.AfterIterationHook     = (*SlogHook)(nil)
	_ goalloop.StateTransitionHook    = (*SlogHook)(nil)
	_ goalloop.CompletionRejectedHook = (*SlogHook)(nil)
	_ goalloop.ErrorHook              = (*SlogHook)(nil)
)
