package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/driftlabs/goalloop"
)

// transition moves the session to the next state, fires the transition hook,
// and persists the session. A persistence failure during a transition is
// fatal and overrides the intended state with Failed.
func (l *sessionLoop) transition(ctx context.Context, to goalloop.SessionState, reason string) {
	l.r.mu.Lock()
	from := l.r.session.State
	l.r.session.State = to
	l.r.mu.Unlock()

	l.c.deps.Hooks.FireStateTransition(ctx, l.r.session, goalloop.StateTransitionEvent{
		SessionID: l.r.session.ID,
		From:      from,
		To:        to,
		Reason:    reason,
	})
	l.persist(ctx, to)
}

// persist saves the session snapshot. Saves use a context detached from the
// session deadline so terminal states land in the store even when the
// wall-clock limit or an abort is what ended the session.
func (l *sessionLoop) persist(ctx context.Context, state goalloop.SessionState) {
	l.r.mu.RLock()
	snapshot := l.r.session.Clone()
	l.r.mu.RUnlock()

	saveCtx := context.WithoutCancel(ctx)
	if err := l.c.deps.Store.Save(saveCtx, snapshot); err != nil {
		l.failPersistence(saveCtx, state, err)
	}
}

// failPersistence marks the session Failed with a persistence_failure
// terminal error. It applies even when the session was headed to a different
// terminal state: a result that could not be saved is not trustworthy.
func (l *sessionLoop) failPersistence(ctx context.Context, intended goalloop.SessionState, cause error) {
	l.c.deps.Hooks.FireError(ctx, l.r.session, goalloop.ErrorEvent{
		SessionID: l.r.session.ID,
		Err:       cause,
		Fatal:     true,
	})

	terr := &goalloop.TerminalError{
		Kind:            goalloop.KindPersistenceFailure,
		Message:         fmt.Sprintf("save session in state %s: %v", intended, cause),
		PartialPlan:     l.ledger.Entries(),
		RemainingIssues: l.pendingIssues(),
	}
	l.r.mu.Lock()
	l.r.session.State = goalloop.StateFailed
	l.r.result = &Result{State: goalloop.StateFailed, Err: terr}
	l.r.mu.Unlock()

	// Best effort: the store already failed once, but a transient fault may
	// have cleared.
	snapshot := l.r.session.Clone()
	_ = l.c.deps.Store.Save(context.WithoutCancel(ctx), snapshot)
}

// finish records the terminal result and transitions into the terminal state.
func (l *sessionLoop) finish(ctx context.Context, state goalloop.SessionState, result *Result, reason string) {
	l.r.mu.Lock()
	l.r.result = result
	l.r.mu.Unlock()
	l.transition(ctx, state, reason)
}

// fail terminates the session with a Failed state and a structured terminal
// error carrying the partial plan for diagnosis or resumption.
func (l *sessionLoop) fail(ctx context.Context, kind goalloop.ErrorKind, cause error) {
	l.c.deps.Hooks.FireError(ctx, l.r.session, goalloop.ErrorEvent{
		SessionID: l.r.session.ID,
		Err:       cause,
		Fatal:     true,
	})
	terr := &goalloop.TerminalError{
		Kind:            kind,
		Message:         cause.Error(),
		PartialPlan:     l.ledger.Entries(),
		RemainingIssues: l.pendingIssues(),
	}
	l.finish(ctx, goalloop.StateFailed, &Result{
		State: goalloop.StateFailed,
		Err:   terr,
	}, "fatal error: "+string(kind))
}

// finishCancelled resolves a cancelled session context into its terminal
// state: TimedOut when the wall-clock deadline fired, Aborted when the caller
// cancelled.
func (l *sessionLoop) finishCancelled(ctx context.Context, cause error) {
	if errors.Is(cause, context.DeadlineExceeded) {
		terr := &goalloop.TerminalError{
			Kind:            goalloop.KindBudgetExceeded,
			Message:         "wall-clock limit reached",
			PartialPlan:     l.ledger.Entries(),
			RemainingIssues: l.pendingIssues(),
		}
		l.finish(ctx, goalloop.StateTimedOut, &Result{
			State: goalloop.StateTimedOut,
			Err:   terr,
		}, "wall-clock limit reached")
		return
	}
	terr := &goalloop.TerminalError{
		Kind:            goalloop.KindCallerAbort,
		Message:         "session aborted",
		PartialPlan:     l.ledger.Entries(),
		RemainingIssues: l.pendingIssues(),
	}
	l.finish(ctx, goalloop.StateAborted, &Result{
		State: goalloop.StateAborted,
		Err:   terr,
	}, "aborted by caller")
}

// finishTimedOut terminates the session once either budget limit is spent.
func (l *sessionLoop) finishTimedOut(ctx context.Context) {
	message := "wall-clock limit reached"
	if l.budget.RemainingIterations() == 0 {
		message = fmt.Sprintf("budget exhausted after %d iterations", l.budget.Used())
	}
	terr := &goalloop.TerminalError{
		Kind:            goalloop.KindBudgetExceeded,
		Message:         message,
		PartialPlan:     l.ledger.Entries(),
		RemainingIssues: l.pendingIssues(),
	}
	l.finish(ctx, goalloop.StateTimedOut, &Result{
		State: goalloop.StateTimedOut,
		Err:   terr,
	}, "iteration budget exhausted")
}

// pendingIssues lists the descriptions of subtasks that never ran to
// completion, for inclusion in terminal errors.
func (l *sessionLoop) pendingIssues() []string {
	var issues []string
	for _, sub := range l.ledger.Entries() {
		switch sub.Status {
		case goalloop.SubtaskPending, goalloop.SubtaskInProgress:
			issues = append(issues, "unfinished: "+sub.Description)
		}
	}
	return issues
}
